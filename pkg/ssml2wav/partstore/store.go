package partstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/fileutil"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/ssml"
)

// Store は分割済みパートを <dir>/<stem>.partNN.ssml として保存・再読み込みします。
type Store struct {
	dir     string
	stem    string
	pattern *regexp.Regexp
}

// New は outDir/parts を保存先とする Store を生成します。
func New(outDir, stem string) *Store {
	return &Store{
		dir:     filepath.Join(outDir, PartsDirName),
		stem:    stem,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `\.part(\d+)` + regexp.QuoteMeta(partExt) + `$`),
	}
}

// Dir はパートファイルの保存ディレクトリを返します。
func (s *Store) Dir() string { return s.dir }

// Stem は入力ファイル名から拡張子を除いた部分を返します。
func Stem(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IndexWidth は total 個のパートに必要なゼロ埋め桁数を返します。
// 辞書順と数値順が一致するよう、最低でも2桁にします。
func IndexWidth(total int) int {
	return max(minIndexWidth, len(strconv.Itoa(total)))
}

// PartFileName は通し番号 index のパートファイル名を返します。
func PartFileName(stem string, index, width int) string {
	return fmt.Sprintf("%s.part%0*d%s", stem, width, index, partExt)
}

// WavPath はパートファイルに対応するWAVファイルのパスを wavDir 内に返します。
func WavPath(wavDir, partPath string) string {
	base := strings.TrimSuffix(filepath.Base(partPath), partExt)
	return filepath.Join(wavDir, base+wavExt)
}

// ----------------------------------------------------------------------
// 保存
// ----------------------------------------------------------------------

// Save はパートをファイルに書き出し、書き出したパスをパート番号順に返します。
// 以前の実行で残った同じ stem のパートファイルは先に削除します。
func (s *Store) Save(parts []ssml.Part) ([]string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("パートディレクトリの作成に失敗しました (%s): %w", s.dir, err)
	}
	if err := s.removeStale(); err != nil {
		return nil, err
	}

	width := IndexWidth(len(parts))
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		path := filepath.Join(s.dir, PartFileName(s.stem, p.Index, width))
		if err := fileutil.WriteFile(path, []byte(p.Document.String()), 0644); err != nil {
			return nil, fmt.Errorf("パート %d の書き込みに失敗しました: %w", p.Index, err)
		}
		logger.L.Debugw("パートファイルを書き込みました", "part", p.Index, "voices", p.VoiceCount, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Store) removeStale() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("パートディレクトリの読み込みに失敗しました (%s): %w", s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !s.pattern.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("古いパートファイルの削除に失敗しました (%s): %w", path, err)
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// 読み込み
// ----------------------------------------------------------------------

type partFile struct {
	index int
	path  string
}

// Load は保存済みのパートファイルを通し番号順に読み込みます。
// 該当するファイルが無い場合は *ErrPartsNotFound を返します。
func (s *Store) Load() ([]ssml.Part, []string, error) {
	files, err := s.list()
	if err != nil {
		return nil, nil, err
	}

	parts := make([]ssml.Part, 0, len(files))
	paths := make([]string, 0, len(files))
	for i, f := range files {
		expected := 1
		if i > 0 {
			expected = files[i-1].index + 1
		}
		if f.index != expected {
			logger.L.Warnw("パート番号が連続していません", "part", f.index, "expected", expected, "path", f.path)
		}

		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, nil, &ErrInvalidPart{Path: f.path, WrappedErr: err}
		}
		doc, err := ssml.Extract(string(data))
		if err != nil {
			return nil, nil, &ErrInvalidPart{Path: f.path, WrappedErr: err}
		}
		count, err := ssml.CountVoices(doc)
		if err != nil {
			return nil, nil, &ErrInvalidPart{Path: f.path, WrappedErr: err}
		}

		parts = append(parts, ssml.Part{Index: f.index, Document: *doc, VoiceCount: count})
		paths = append(paths, f.path)
	}
	return parts, paths, nil
}

func (s *Store) list() ([]partFile, error) {
	notFound := &ErrPartsNotFound{Dir: s.dir, Pattern: s.stem + ".part*" + partExt}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound
		}
		return nil, fmt.Errorf("パートディレクトリの読み込みに失敗しました (%s): %w", s.dir, err)
	}

	byIndex := make(map[int][]string)
	var files []partFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := s.pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil || index <= 0 {
			logger.L.Warnw("パート番号を解釈できないファイルを無視します", "file", entry.Name())
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		byIndex[index] = append(byIndex[index], path)
		files = append(files, partFile{index: index, path: path})
	}

	if len(files) == 0 {
		return nil, notFound
	}
	for index, paths := range byIndex {
		if len(paths) > 1 {
			sort.Strings(paths)
			return nil, &ErrDuplicatePart{Index: index, Paths: paths}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].index < files[j].index })
	return files, nil
}
