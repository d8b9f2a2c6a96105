package liveness

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirSource is a camera backed by a directory of still images, used for
// development and tests where no physical camera exists. Each Frame
// call returns the next image in filename order; the last image repeats
// once the directory is exhausted, like a camera pointed at a frozen
// scene.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over the given directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Acquire lists the directory and returns a camera over its images.
// An empty or unreadable directory fails acquisition.
func (s *DirSource) Acquire(ctx context.Context) (Camera, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", s.dir)
	}
	sort.Strings(paths)

	return &dirCamera{paths: paths}, nil
}

type dirCamera struct {
	mu     sync.Mutex
	paths  []string
	next   int
	closed bool
}

func (c *dirCamera) Frame(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("camera closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := c.next
	if idx >= len(c.paths) {
		idx = len(c.paths) - 1
	} else {
		c.next++
	}

	f, err := os.Open(c.paths[idx])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(c.paths[idx]), err)
	}
	return img, nil
}

func (c *dirCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
