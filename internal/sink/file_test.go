package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkDeliver(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)

	loc, err := s.Deliver(context.Background(), "", "a.zip", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if loc != filepath.Join(dir, "a.zip") {
		t.Errorf("unexpected location %s", loc)
	}
	got, err := os.ReadFile(loc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "data" {
		t.Errorf("unexpected content %q", got)
	}
	if _, err := os.Stat(loc + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after delivery")
	}
}

func TestFileSinkTargetOverridesDir(t *testing.T) {
	base := t.TempDir()
	other := filepath.Join(t.TempDir(), "nested", "out")
	s := NewFileSink(base)

	loc, err := s.Deliver(context.Background(), other, "b.zip", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if loc != filepath.Join(other, "b.zip") {
		t.Errorf("unexpected location %s", loc)
	}
}

func TestFileSinkRejectsPathNames(t *testing.T) {
	s := NewFileSink(t.TempDir())
	if _, err := s.Deliver(context.Background(), "", "../escape.zip", nil); err == nil {
		t.Error("expected error for name with path components")
	}
}
