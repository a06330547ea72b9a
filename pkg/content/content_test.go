package content

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var (
	blob    = []byte("ciphertext bytes")
	blobRef = Ref(blob)
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileSystemStore(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return map[string]Store{
		"memory":     NewMemoryStore(),
		"filesystem": fs,
	}
}

func TestRefAndValidateRef(t *testing.T) {
	if len(blobRef) != 64 {
		t.Fatalf("Ref() length = %d, want 64", len(blobRef))
	}
	if err := ValidateRef(blobRef); err != nil {
		t.Errorf("ValidateRef(Ref()) error = %v", err)
	}

	for _, bad := range []string{"", "abc123", "../../etc/passwd", strings.ToUpper(blobRef), blobRef[:63] + "g"} {
		if err := ValidateRef(bad); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("ValidateRef(%q) error = %v, want ErrInvalidRef", bad, err)
		}
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put(ctx, blobRef, bytes.NewReader(blob), int64(len(blob))); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			// idempotent
			if err := s.Put(ctx, blobRef, bytes.NewReader(blob), int64(len(blob))); err != nil {
				t.Fatalf("second Put() error = %v", err)
			}

			var buf bytes.Buffer
			if err := s.Get(ctx, blobRef, &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(buf.Bytes(), blob) {
				t.Errorf("Get() = %q, want %q", buf.Bytes(), blob)
			}

			if err := s.Delete(ctx, blobRef); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, blobRef); err != nil {
				t.Errorf("Delete() of missing blob error = %v", err)
			}
			if err := s.Get(ctx, blobRef, &buf); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}
			if err := s.ValidateSetup(ctx); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestStores_SizeMismatch(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Put(ctx, blobRef, bytes.NewReader(blob), int64(len(blob))+1)
			if err == nil || !strings.Contains(err.Error(), "size mismatch") {
				t.Errorf("Put() error = %v, want size mismatch", err)
			}
			var buf bytes.Buffer
			if err := s.Get(ctx, blobRef, &buf); !errors.Is(err, ErrNotFound) {
				t.Errorf("partial write is visible: %v", err)
			}
		})
	}
}

func TestFileSystemStore_Layout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	if err := s.Put(context.Background(), blobRef, bytes.NewReader(blob), int64(len(blob))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "content", blobRef)); err != nil {
		t.Errorf("content file not created: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "content"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileSystemStore_RejectsTraversal(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	err = s.Put(context.Background(), "../escape", strings.NewReader("x"), 1)
	if !errors.Is(err, ErrInvalidRef) {
		t.Errorf("Put() error = %v, want ErrInvalidRef", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := NewFromConfig(ctx, Config{})
	if err != nil {
		t.Fatalf("NewFromConfig(memory) error = %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("default backend = %T, want *MemoryStore", s)
	}

	s, err = NewFromConfig(ctx, Config{Backend: "filesystem", Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFromConfig(filesystem) error = %v", err)
	}
	if _, ok := s.(*FileSystemStore); !ok {
		t.Errorf("backend = %T, want *FileSystemStore", s)
	}

	if _, err := NewFromConfig(ctx, Config{Backend: "filesystem"}); err == nil {
		t.Error("expected error for filesystem backend without root")
	}
	if _, err := NewFromConfig(ctx, Config{Backend: "s3"}); err == nil {
		t.Error("expected error for s3 backend without bucket")
	}
	if _, err := NewFromConfig(ctx, Config{Backend: "tape"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
