package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.wav")
	if err := WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "RIFF" {
		t.Fatalf("ReadFile() = %q, %v", got, err)
	}
}

func TestWriteLeavesTargetUntouchedOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final.wav")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := Write(path, 0644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Write() error = %v, want boom", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "old" {
		t.Errorf("target overwritten: %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestTempPath(t *testing.T) {
	got := TempPath(filepath.Join("out", "book.final.mp3"))
	want := filepath.Join("out", ".book.final.partial.mp3")
	if got != want {
		t.Errorf("TempPath() = %q, want %q", got, want)
	}
}
