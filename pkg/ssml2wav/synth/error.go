package synth

import "fmt"

// ErrSynthesis はパートの合成が恒久的なエラー、または再試行の上限により失敗したことを示します。
type ErrSynthesis struct {
	PartIndex  int
	Attempts   int
	WrappedErr error
}

func (e *ErrSynthesis) Error() string {
	return fmt.Sprintf("パート %d の音声合成に失敗しました (試行 %d 回): %v", e.PartIndex, e.Attempts, e.WrappedErr)
}

func (e *ErrSynthesis) Unwrap() error {
	return e.WrappedErr
}

// ErrTransient はプロバイダーが明示的に一時的と判定したエラーです。
type ErrTransient struct {
	WrappedErr error
}

// Transient は err を一時的なエラーとして包みます。
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &ErrTransient{WrappedErr: err}
}

func (e *ErrTransient) Error() string {
	return fmt.Sprintf("一時的なエラー: %v", e.WrappedErr)
}

func (e *ErrTransient) Unwrap() error {
	return e.WrappedErr
}
