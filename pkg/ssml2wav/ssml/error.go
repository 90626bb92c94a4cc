package ssml

import "fmt"

// ErrStructural は <speak> ルート要素が見つからない、または対応する終了タグを
// 特定できないなど、文書構造に問題があることを示します。
type ErrStructural struct {
	Offset  int // 問題を検出したバイト位置 (不明な場合は -1)
	Details string
}

func (e *ErrStructural) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("SSML構造エラー (offset %d): %s", e.Offset, e.Details)
	}
	return fmt.Sprintf("SSML構造エラー: %s", e.Details)
}

// ErrInvalidMaxVoices は max_voices に正の整数以外が指定されたことを示します。
type ErrInvalidMaxVoices struct {
	Value int
}

func (e *ErrInvalidMaxVoices) Error() string {
	return fmt.Sprintf("max_voices は正の整数である必要があります (指定値: %d)", e.Value)
}
