// Package archive accumulates named entries and packs them into a zip.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"
)

type entry struct {
	path string
	data []byte
}

// Builder collects entries keyed by path and packs them on Finalize. It is
// not safe for concurrent use; each export owns its own Builder.
type Builder struct {
	// ModTime is stamped on every entry. Zero means time.Now at Finalize.
	ModTime time.Time

	entries []entry
	paths   map[string]struct{}
}

func NewBuilder() *Builder {
	return &Builder{paths: make(map[string]struct{})}
}

// AddBytes adds a binary entry. Paths must be non-empty and unique.
func (b *Builder) AddBytes(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("add entry: empty path")
	}
	if _, ok := b.paths[path]; ok {
		return fmt.Errorf("add entry: duplicate path %s", path)
	}
	b.paths[path] = struct{}{}
	b.entries = append(b.entries, entry{path: path, data: data})
	return nil
}

// AddString adds a text entry.
func (b *Builder) AddString(path, content string) error {
	return b.AddBytes(path, []byte(content))
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Paths returns entry paths in insertion order.
func (b *Builder) Paths() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.path
	}
	return out
}

// Finalize writes all entries, in insertion order, into a deflated zip and
// returns its bytes. Cancellation is checked between entries.
func (b *Builder) Finalize(ctx context.Context) ([]byte, error) {
	modTime := b.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range b.entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return nil, fmt.Errorf("finalize archive: %w", err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.path,
			Method:   zip.Deflate,
			Modified: modTime,
		})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("create entry %s: %w", e.path, err)
		}
		if _, err := w.Write(e.data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write entry %s: %w", e.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
