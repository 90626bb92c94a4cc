package api

import (
	"errors"
	"fmt"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// ErrAPINetwork はAPI呼び出しにおける通信エラーや異常なステータスコードを示します。
// 4xx の場合は *httpkit.NonRetryableHTTPError を包んでおり、StatusCode で取り出せます。
type ErrAPINetwork struct {
	Endpoint   string
	WrappedErr error
}

func (e *ErrAPINetwork) Error() string {
	return fmt.Sprintf("API通信エラー (%s): %v", e.Endpoint, e.WrappedErr)
}

func (e *ErrAPINetwork) Unwrap() error {
	return e.WrappedErr
}

// ErrAPIRequest はURLやリクエストの構築に失敗したことを示します。再試行しても解消しません。
type ErrAPIRequest struct {
	Endpoint   string
	WrappedErr error
}

func (e *ErrAPIRequest) Error() string {
	return fmt.Sprintf("APIリクエストの構築に失敗しました (%s): %v", e.Endpoint, e.WrappedErr)
}

func (e *ErrAPIRequest) Unwrap() error {
	return e.WrappedErr
}

// ErrEmptyAudio はAPIが空の応答ボディを返したことを示します。
type ErrEmptyAudio struct {
	Endpoint string
}

func (e *ErrEmptyAudio) Error() string {
	return fmt.Sprintf("API応答が空です (%s)", e.Endpoint)
}

// ErrInvalidJSON はAPI応答やデータが期待されるJSON形式でなかったことを示します。
type ErrInvalidJSON struct {
	Details    string
	WrappedErr error
}

func (e *ErrInvalidJSON) Error() string {
	return fmt.Sprintf("不正なJSONデータ: %s (詳細: %v)", e.Details, e.WrappedErr)
}

func (e *ErrInvalidJSON) Unwrap() error {
	return e.WrappedErr
}

// StatusCode は err が包む 4xx 応答のステータスコードを返します。
// 5xx や通信エラーの場合 ok は false です。
func StatusCode(err error) (code int, ok bool) {
	var httpErr *httpkit.NonRetryableHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
