package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/HammerMeetNail/giftcircle/internal/apperr"
)

const (
	MaxPhotoDimension = 1200
	ThumbnailSize     = 200
	photoQuality      = 85
	thumbnailQuality  = 80
	DefaultMaxBytes   = 5 * 1024 * 1024
	// MaxInputPixels bounds the decoded size of an upload. A compressed file
	// under the byte cap can still claim enormous dimensions.
	MaxInputPixels = 50_000_000
)

var AllowedContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

var (
	ErrInvalidFileType = apperr.BadRequest("Invalid file type. Only JPEG, PNG, and WebP are allowed.")
	ErrFileTooLarge    = apperr.BadRequest("File too large. Maximum size is 5MB.")
	ErrUnreadableImage = apperr.BadRequest("Image could not be decoded")
	ErrTooManyPixels   = apperr.BadRequest("Image dimensions too large. Maximum is 50 megapixels.")
)

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProcessedImage is a resized photo and its thumbnail, both JPEG encoded.
type ProcessedImage struct {
	Photo     []byte
	Thumbnail []byte
}

type ImageProcessor struct {
	maxBytes int64
}

func NewImageProcessor(maxBytes int64) *ImageProcessor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ImageProcessor{maxBytes: maxBytes}
}

// Validate checks size and sniffed content type. The client supplied
// content type is ignored.
func (p *ImageProcessor) Validate(upload Upload) error {
	if int64(len(upload.Data)) > p.maxBytes {
		return ErrFileTooLarge
	}
	if len(upload.Data) == 0 {
		return ErrUnreadableImage
	}
	detected := mimetype.Detect(upload.Data)
	if !mimetype.EqualsAny(detected.String(), AllowedContentTypes...) {
		return ErrInvalidFileType
	}
	return nil
}

// Process scales the photo to fit inside 1200x1200 without enlarging it
// and builds a 200x200 center-cropped thumbnail.
func (p *ImageProcessor) Process(upload Upload) (*ProcessedImage, error) {
	if err := p.Validate(upload); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, ErrUnreadableImage.Wrap(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxInputPixels {
		return nil, ErrTooManyPixels
	}

	src, _, err := image.Decode(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, ErrUnreadableImage.Wrap(err)
	}

	photo, err := encodeJPEG(fitInside(src, MaxPhotoDimension, MaxPhotoDimension), photoQuality)
	if err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}
	thumb, err := encodeJPEG(cover(src, ThumbnailSize, ThumbnailSize), thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return &ProcessedImage{Photo: photo, Thumbnail: thumb}, nil
}

func fitInside(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return flatten(src, b, w, h)
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return flatten(src, b, nw, nh)
}

func cover(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	scale := math.Max(float64(w)/float64(sw), float64(h)/float64(sh))
	cropW := min(sw, max(1, int(math.Round(float64(w)/scale))))
	cropH := min(sh, max(1, int(math.Round(float64(h)/scale))))
	x0 := b.Min.X + (sw-cropW)/2
	y0 := b.Min.Y + (sh-cropH)/2
	return flatten(src, image.Rect(x0, y0, x0+cropW, y0+cropH), w, h)
}

// flatten scales the region r of src into a w x h opaque image on white.
func flatten(src image.Image, r image.Rectangle, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, r, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
