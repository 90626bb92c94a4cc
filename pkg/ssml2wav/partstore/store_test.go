package partstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/ssml"
)

func splitDoc(t *testing.T, voices, max int) []ssml.Part {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<speak version="1.0" xml:lang="en-US">`)
	for i := 0; i < voices; i++ {
		fmt.Fprintf(&b, `<voice name="v%d">text %d</voice>`, i%3, i)
	}
	b.WriteString(`</speak>`)

	doc, err := ssml.Extract(b.String())
	if err != nil {
		t.Fatal(err)
	}
	parts, err := ssml.Split(doc, max)
	if err != nil {
		t.Fatal(err)
	}
	return parts
}

func TestSaveLoadRoundTrip(t *testing.T) {
	outDir := t.TempDir()
	store := New(outDir, "book")
	parts := splitDoc(t, 10, 4)

	paths, err := store.Save(parts)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	wantNames := []string{"book.part01.ssml", "book.part02.ssml", "book.part03.ssml"}
	for i, p := range paths {
		if filepath.Base(p) != wantNames[i] {
			t.Errorf("paths[%d] = %s, want %s", i, filepath.Base(p), wantNames[i])
		}
		if filepath.Dir(p) != filepath.Join(outDir, PartsDirName) {
			t.Errorf("paths[%d] not under parts dir: %s", i, p)
		}
	}

	loaded, loadedPaths, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded) != len(parts) {
		t.Fatalf("len(loaded) = %d, want %d", len(loaded), len(parts))
	}
	for i := range parts {
		if loaded[i].Index != parts[i].Index {
			t.Errorf("loaded[%d].Index = %d, want %d", i, loaded[i].Index, parts[i].Index)
		}
		if loaded[i].Document.String() != parts[i].Document.String() {
			t.Errorf("part %d content differs after round trip", parts[i].Index)
		}
		if loaded[i].VoiceCount != parts[i].VoiceCount {
			t.Errorf("part %d VoiceCount = %d, want %d", parts[i].Index, loaded[i].VoiceCount, parts[i].VoiceCount)
		}
		if loadedPaths[i] != paths[i] {
			t.Errorf("loadedPaths[%d] = %s, want %s", i, loadedPaths[i], paths[i])
		}
	}
}

func TestSaveRemovesStaleParts(t *testing.T) {
	store := New(t.TempDir(), "book")
	if _, err := store.Save(splitDoc(t, 6, 1)); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(store.Dir(), "other.part01.ssml")
	if err := os.WriteFile(other, []byte("<speak></speak>"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Save(splitDoc(t, 2, 1)); err != nil {
		t.Fatal(err)
	}
	loaded, _, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Errorf("len(loaded) = %d, want 2", len(loaded))
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated part file removed: %v", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dir string)
	}{
		{"missing directory", func(string) {}},
		{"empty directory", func(dir string) {
			_ = os.MkdirAll(filepath.Join(dir, PartsDirName), 0755)
		}},
		{"only other stems", func(dir string) {
			_ = os.MkdirAll(filepath.Join(dir, PartsDirName), 0755)
			_ = os.WriteFile(filepath.Join(dir, PartsDirName, "chapter.part01.ssml"), []byte("<speak/>"), 0644)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(dir)
			_, _, err := New(dir, "book").Load()
			var nf *ErrPartsNotFound
			if !errors.As(err, &nf) {
				t.Fatalf("Load() error = %v, want *ErrPartsNotFound", err)
			}
		})
	}
}

func TestLoadSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	partsDir := filepath.Join(dir, PartsDirName)
	if err := os.MkdirAll(partsDir, 0755); err != nil {
		t.Fatal(err)
	}
	// 手作業で分割したファイル名 (桁数不揃い) でも番号順に読み込む
	for _, name := range []string{"book.part10.ssml", "book.part2.ssml", "book.part1.ssml"} {
		body := fmt.Sprintf(`<speak><voice name="a">%s</voice></speak>`, name)
		if err := os.WriteFile(filepath.Join(partsDir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	parts, _, err := New(dir, "book").Load()
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, p := range parts {
		got = append(got, p.Index)
	}
	if fmt.Sprint(got) != "[1 2 10]" {
		t.Errorf("indices = %v, want [1 2 10]", got)
	}
}

func TestLoadDuplicateIndex(t *testing.T) {
	dir := t.TempDir()
	partsDir := filepath.Join(dir, PartsDirName)
	_ = os.MkdirAll(partsDir, 0755)
	for _, name := range []string{"book.part1.ssml", "book.part01.ssml"} {
		_ = os.WriteFile(filepath.Join(partsDir, name), []byte("<speak></speak>"), 0644)
	}
	_, _, err := New(dir, "book").Load()
	var dup *ErrDuplicatePart
	if !errors.As(err, &dup) || dup.Index != 1 {
		t.Fatalf("Load() error = %v, want *ErrDuplicatePart for index 1", err)
	}
}

func TestLoadInvalidPart(t *testing.T) {
	dir := t.TempDir()
	partsDir := filepath.Join(dir, PartsDirName)
	_ = os.MkdirAll(partsDir, 0755)
	_ = os.WriteFile(filepath.Join(partsDir, "book.part01.ssml"), []byte("no root here"), 0644)

	_, _, err := New(dir, "book").Load()
	var se *ssml.ErrStructural
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want wrapped *ssml.ErrStructural", err)
	}
}

func TestNamingHelpers(t *testing.T) {
	if got := Stem("/tmp/in/My Book.ssml"); got != "My Book" {
		t.Errorf("Stem() = %q", got)
	}
	if got := IndexWidth(9); got != 2 {
		t.Errorf("IndexWidth(9) = %d", got)
	}
	if got := IndexWidth(120); got != 3 {
		t.Errorf("IndexWidth(120) = %d", got)
	}
	if got := PartFileName("book", 7, 3); got != "book.part007.ssml" {
		t.Errorf("PartFileName() = %q", got)
	}
	if got := WavPath("out/wavs", "out/parts/book.part07.ssml"); got != filepath.Join("out/wavs", "book.part07.wav") {
		t.Errorf("WavPath() = %q", got)
	}
}
