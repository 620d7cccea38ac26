package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

func TestSaveOpenStatNestedKey(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "guide-1/study_guide.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	size, err := store.Stat(ctx, "guide-1/study_guide.pdf")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if size != 8 {
		t.Fatalf("expected size 8, got %d", size)
	}

	rc, err := store.Open(ctx, "guide-1/study_guide.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestSaveOverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	ctx := context.Background()

	_ = store.Save(ctx, "a/file.txt", strings.NewReader("first"))
	if err := store.Save(ctx, "a/file.txt", strings.NewReader("second")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the committed file, got %d entries", len(entries))
	}
}

func TestMissingObjectIsNotFound(t *testing.T) {
	store, _ := New(t.TempDir())

	if _, err := store.Open(context.Background(), "missing/file"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on open, got %v", err)
	}
	if _, err := store.Stat(context.Background(), "missing/file"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on stat, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store, _ := New(t.TempDir())

	for _, key := range []string{"../etc/passwd", "/abs/path", "", "a/../../b"} {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for key %q, got %v", key, err)
		}
	}
}
