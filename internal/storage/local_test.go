package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HammerMeetNail/giftcircle/internal/models"
)

func TestLocalBackend_PutDeleteURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	b, err := NewLocalBackend(dir, "/uploads/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Kind() != models.PhotoKindLocal {
		t.Fatalf("expected local kind, got %s", b.Kind())
	}

	locator, err := b.Put(context.Background(), "a.jpg", []byte("data"), "image/jpeg")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if locator != "a.jpg" {
		t.Fatalf("expected bare file name locator, got %q", locator)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	if got := b.URL(locator); got != "/uploads/a.jpg" {
		t.Fatalf("unexpected url %q", got)
	}

	if err := b.Delete(context.Background(), locator); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, got %v", err)
	}
	if err := b.Delete(context.Background(), locator); err != nil {
		t.Fatalf("deleting missing file should not fail: %v", err)
	}
}

func TestLocalBackend_RejectsTraversal(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"../escape.jpg", "nested/a.jpg", "", ".."} {
		if _, err := b.Put(context.Background(), name, []byte("x"), "image/jpeg"); err == nil {
			t.Errorf("expected error for %q", name)
		}
		if err := b.Delete(context.Background(), name); err == nil {
			t.Errorf("expected delete error for %q", name)
		}
	}
}
