package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes archives into a directory. The target, when non-empty,
// overrides the default directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Deliver writes data to <dir>/<name> via a temp file and rename, so a failed
// write never leaves a partial archive under the final name.
func (f *FileSink) Deliver(ctx context.Context, target, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := f.dir
	if target != "" {
		dir = target
	}
	if dir == "" {
		dir = "."
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid archive name %q", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	dest := filepath.Join(dir, name)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write temp archive: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename temp archive: %w", err)
	}
	return dest, nil
}
