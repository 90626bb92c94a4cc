package config

import "fmt"

// ErrConfiguration は設定値が不正であることを示します。
type ErrConfiguration struct {
	Field   string
	Details string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("設定エラー (%s): %s", e.Field, e.Details)
}
