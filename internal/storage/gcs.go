package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"

	"github.com/HammerMeetNail/giftcircle/internal/models"
)

const gcsPublicHost = "https://storage.googleapis.com"

type objectAPI interface {
	Insert(ctx context.Context, bucket, name, contentType string, data []byte) error
	Delete(ctx context.Context, bucket, name string) error
}

// GCSBackend keeps photos in a Google Cloud Storage bucket. Locators are full
// public object URLs.
type GCSBackend struct {
	bucket  string
	objects objectAPI
}

type GCSOptions struct {
	Bucket          string
	CredentialsJSON string
	CredentialsFile string
}

func NewGCSBackend(ctx context.Context, opts GCSOptions) (*GCSBackend, error) {
	if opts.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	credJSON := []byte(opts.CredentialsJSON)
	if len(credJSON) == 0 && opts.CredentialsFile != "" {
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading gcs credentials: %w", err)
		}
		credJSON = data
	}

	var creds *google.Credentials
	var err error
	if len(credJSON) > 0 {
		creds, err = google.CredentialsFromJSON(ctx, credJSON, gcs.DevstorageReadWriteScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, gcs.DevstorageReadWriteScope)
	}
	if err != nil {
		return nil, fmt.Errorf("loading gcs credentials: %w", err)
	}

	svc, err := gcs.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCSBackend{bucket: opts.Bucket, objects: &gcsObjects{svc: svc}}, nil
}

func (b *GCSBackend) Kind() models.PhotoKind {
	return models.PhotoKindRemote
}

func (b *GCSBackend) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := b.objects.Insert(ctx, b.bucket, name, contentType, data); err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	return b.publicURL(name), nil
}

func (b *GCSBackend) Delete(ctx context.Context, locator string) error {
	name, err := b.objectName(locator)
	if err != nil {
		return err
	}
	err = b.objects.Delete(ctx, b.bucket, name)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

func (b *GCSBackend) URL(locator string) string {
	return locator
}

func (b *GCSBackend) publicURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, b.bucket, url.PathEscape(name))
}

func (b *GCSBackend) objectName(locator string) (string, error) {
	prefix := fmt.Sprintf("%s/%s/", gcsPublicHost, b.bucket)
	escaped, ok := strings.CutPrefix(locator, prefix)
	if !ok || escaped == "" {
		return "", fmt.Errorf("locator %q is not in bucket %s", locator, b.bucket)
	}
	name, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("decoding object name: %w", err)
	}
	return name, nil
}

type gcsObjects struct {
	svc *gcs.Service
}

func (o *gcsObjects) Insert(ctx context.Context, bucket, name, contentType string, data []byte) error {
	obj := &gcs.Object{
		Name:         name,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}
	_, err := o.svc.Objects.Insert(bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		PredefinedAcl("publicRead").
		Context(ctx).
		Do()
	return err
}

func (o *gcsObjects) Delete(ctx context.Context, bucket, name string) error {
	return o.svc.Objects.Delete(bucket, name).Context(ctx).Do()
}
