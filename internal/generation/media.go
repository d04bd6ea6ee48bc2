package generation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MediaStore turns decoded video bytes into a reference the presentation layer
// can play. References only need to live as long as the process.
type MediaStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// FileStore writes videos into a directory and returns their absolute paths.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Save writes data to <dir>/<slug>-<id>.mp4.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(s.Dir, FileName(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing video: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

const maxSlugLength = 48

// FileName builds a unique, filesystem-safe video file name from a title.
func FileName(name string) string {
	base := slug.Make(strings.TrimSuffix(name, "..."))
	if len(base) > maxSlugLength {
		base = strings.TrimRight(base[:maxSlugLength], "-")
	}
	if base == "" {
		base = "storyreel"
	}
	return fmt.Sprintf("%s-%s.mp4", base, uuid.NewString()[:8])
}

// MemoryStore keeps videos in memory under mem:// references. Useful in tests
// and for the HTTP API, which streams videos back itself.
type MemoryStore struct {
	mu     sync.RWMutex
	videos map[string][]byte
}

// MemoryScheme prefixes MemoryStore references.
const MemoryScheme = "mem://"

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{videos: make(map[string][]byte)}
}

// Save stores a copy of data.
func (s *MemoryStore) Save(_ context.Context, name string, data []byte) (string, error) {
	ref := MemoryScheme + strings.TrimSuffix(FileName(name), ".mp4")

	s.mu.Lock()
	s.videos[ref] = append([]byte(nil), data...)
	s.mu.Unlock()

	return ref, nil
}

// Open returns the bytes stored under ref.
func (s *MemoryStore) Open(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.videos[ref]
	return data, ok
}

// Len returns how many videos are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.videos)
}
