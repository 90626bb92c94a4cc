package ssml2wav

import (
	"errors"
	"fmt"
)

// ----------------------------------------------------------------------
// パイプラインエラー (engine.go で利用)
// ----------------------------------------------------------------------

// ErrStage はパイプラインのいずれかのステージで発生した致命的なエラーをラップします。
// メッセージには失敗したステージ名が含まれ、原因は errors.As で取り出せます。
type ErrStage struct {
	Stage      State
	WrappedErr error
}

func (e *ErrStage) Error() string {
	return fmt.Sprintf("ステージ %s で失敗しました: %v", e.Stage, e.WrappedErr)
}

func (e *ErrStage) Unwrap() error {
	return e.WrappedErr
}

// ErrInputNotFound は入力SSMLファイルが存在しないことを示します。
type ErrInputNotFound struct {
	Path string
}

func (e *ErrInputNotFound) Error() string {
	return fmt.Sprintf("入力ファイルが見つかりません: %s", e.Path)
}

// ErrSynthesisDisabled は合成サービスが構成されていない状態で合成が要求されたことを示します。
var ErrSynthesisDisabled = errors.New("音声合成は無効です (分割のみのモード)")

// ErrTranscoderUnavailable はMP3出力が要求されたが変換コマンドが構成されていないことを示します。
var ErrTranscoderUnavailable = errors.New("MP3変換コマンドが構成されていません")
