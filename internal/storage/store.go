package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/giftcircle/internal/logging"
	"github.com/HammerMeetNail/giftcircle/internal/models"
)

const (
	ThumbnailPrefix  = "thumb_"
	photoContentType = "image/jpeg"
)

// Backend stores raw objects. The locator it returns is what gets persisted
// on the photo row.
type Backend interface {
	Kind() models.PhotoKind
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, locator string) error
	URL(locator string) string
}

// Manager processes uploads and writes them to the active backend. Deletes
// go to whichever backend the photo was written with.
type Manager struct {
	processor *ImageProcessor
	active    Backend
	backends  map[models.PhotoKind]Backend
	newName   func() string
}

func NewManager(processor *ImageProcessor, active Backend, others ...Backend) *Manager {
	backends := map[models.PhotoKind]Backend{active.Kind(): active}
	for _, b := range others {
		if b == nil {
			continue
		}
		if _, exists := backends[b.Kind()]; !exists {
			backends[b.Kind()] = b
		}
	}
	return &Manager{
		processor: processor,
		active:    active,
		backends:  backends,
		newName: func() string {
			return uuid.NewString() + ".jpg"
		},
	}
}

func (m *Manager) Validate(upload Upload) error {
	return m.processor.Validate(upload)
}

func (m *Manager) Store(ctx context.Context, upload Upload) (models.PhotoLocation, error) {
	processed, err := m.processor.Process(upload)
	if err != nil {
		return models.PhotoLocation{}, err
	}

	name := m.newName()
	locator, err := m.active.Put(ctx, name, processed.Photo, photoContentType)
	if err != nil {
		return models.PhotoLocation{}, fmt.Errorf("storing photo: %w", err)
	}
	thumbLocator, err := m.active.Put(ctx, ThumbnailPrefix+name, processed.Thumbnail, photoContentType)
	if err != nil {
		if delErr := m.active.Delete(ctx, locator); delErr != nil {
			logging.Warn("Failed to clean up photo after thumbnail error", map[string]interface{}{
				"error":   delErr.Error(),
				"locator": locator,
			})
		}
		return models.PhotoLocation{}, fmt.Errorf("storing thumbnail: %w", err)
	}

	return models.PhotoLocation{
		Kind:             m.active.Kind(),
		Locator:          locator,
		ThumbnailLocator: thumbLocator,
	}, nil
}

// Remove deletes the photo and its thumbnail. A missing thumbnail is not an
// error.
func (m *Manager) Remove(ctx context.Context, loc models.PhotoLocation) error {
	backend, ok := m.backends[loc.Kind]
	if !ok {
		return fmt.Errorf("no storage backend for photo kind %q", loc.Kind)
	}
	if err := backend.Delete(ctx, loc.Locator); err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	if loc.ThumbnailLocator != "" {
		if err := backend.Delete(ctx, loc.ThumbnailLocator); err != nil {
			logging.Warn("Failed to delete photo thumbnail", map[string]interface{}{
				"error":   err.Error(),
				"locator": loc.ThumbnailLocator,
			})
		}
	}
	return nil
}

// URLs returns the public URLs for a photo and its thumbnail.
func (m *Manager) URLs(loc models.PhotoLocation) (string, string) {
	backend, ok := m.backends[loc.Kind]
	if !ok {
		return "", ""
	}
	thumb := ""
	if loc.ThumbnailLocator != "" {
		thumb = backend.URL(loc.ThumbnailLocator)
	}
	return backend.URL(loc.Locator), thumb
}
