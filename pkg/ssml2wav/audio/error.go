package audio

import (
	"errors"
	"fmt"
)

// ErrNoAudioData は結合すべきWAVデータが1つもないことを示します。
var ErrNoAudioData = errors.New("処理対象となる有効なオーディオデータがありません")

// ErrInvalidWAVHeader はWAVデータが短すぎる、またはヘッダーの記載とデータ長が一致しないなど、
// ヘッダーに問題があることを示します。
type ErrInvalidWAVHeader struct {
	Index   int // エラーが発生したパートの番号 (不明な場合は 0)
	Details string
}

func (e *ErrInvalidWAVHeader) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("WAVデータ #%d のヘッダーが無効です: %s", e.Index, e.Details)
	}
	return fmt.Sprintf("WAVデータのヘッダーが無効です: %s", e.Details)
}

// ErrFormatMismatch はパートのサンプル形式 (チャンネル数、ビット深度、サンプリングレート) が
// 期待する形式と異なることを示します。
type ErrFormatMismatch struct {
	Index int
	Path  string
	Got   Format
	Want  Format
}

func (e *ErrFormatMismatch) Error() string {
	return fmt.Sprintf("WAVパート #%d (%s) の形式が一致しません: %s (期待値: %s)", e.Index, e.Path, e.Got, e.Want)
}

// ErrDuplicatePart は同じ番号のパートが複数渡されたことを示します。
type ErrDuplicatePart struct {
	Index int
}

func (e *ErrDuplicatePart) Error() string {
	return fmt.Sprintf("WAVパート #%d が重複しています", e.Index)
}

// ErrDataTooLarge は結合後のデータがWAVの32bitサイズフィールドに収まらないことを示します。
type ErrDataTooLarge struct {
	Size int64
}

func (e *ErrDataTooLarge) Error() string {
	return fmt.Sprintf("結合後のオーディオデータ (%dバイト) がWAVの上限 (%dバイト) を超えています", e.Size, int64(maxDataSize))
}
