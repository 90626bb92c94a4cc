package partstore

import (
	"fmt"
	"strings"
)

// ErrPartsNotFound は再利用モードで読み込むパートファイルが1つも無いことを示します。
type ErrPartsNotFound struct {
	Dir     string
	Pattern string
}

func (e *ErrPartsNotFound) Error() string {
	return fmt.Sprintf("パートファイルが見つかりません: %s (パターン: %s)", e.Dir, e.Pattern)
}

// ErrDuplicatePart は同じ通し番号を持つパートファイルが複数あることを示します (例: part1 と part01)。
type ErrDuplicatePart struct {
	Index int
	Paths []string
}

func (e *ErrDuplicatePart) Error() string {
	return fmt.Sprintf("パート番号 %d のファイルが重複しています: %s", e.Index, strings.Join(e.Paths, ", "))
}

// ErrInvalidPart はパートファイルの読み込みまたは解析に失敗したことを示します。
type ErrInvalidPart struct {
	Path       string
	WrappedErr error
}

func (e *ErrInvalidPart) Error() string {
	return fmt.Sprintf("パートファイル %s を読み込めません: %v", e.Path, e.WrappedErr)
}

func (e *ErrInvalidPart) Unwrap() error {
	return e.WrappedErr
}
