package synth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/api"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
)

// ----------------------------------------------------------------------
// 再試行ポリシー
// ----------------------------------------------------------------------

// RetryPolicy は試行回数の上限と再試行前の待機時間を定めます。
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration // 0 の場合は上限なし
}

// DefaultRetryPolicy は3回試行し、1.5秒 × 失敗回数だけ待機するポリシーを返します。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Delay は attempt 回目 (1始まり) の失敗の後に待機する時間を返します。
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(max(attempt, 1))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

// ----------------------------------------------------------------------
// エラー分類
// ----------------------------------------------------------------------

// Classifier はエラーが再試行で解消し得る (一時的) かを判定します。
type Classifier func(err error) bool

// IsTransient は既定の分類関数です。
// 通信エラー、5xx、408、429、タイムアウト、空の応答は一時的とみなします。
// それ以外の 4xx (認証失敗や不正なSSML)、キャンセル、不正な応答、リクエスト構築の失敗、
// 書き込みの失敗、未知のエラーは恒久的とみなします。
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var transientErr *ErrTransient
	if errors.As(err, &transientErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var reqErr *api.ErrAPIRequest
	if errors.As(err, &reqErr) {
		return false
	}
	if code, ok := api.StatusCode(err); ok {
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
	}
	var apiErr *api.ErrAPINetwork
	if errors.As(err, &apiErr) {
		return true
	}
	var emptyErr *api.ErrEmptyAudio
	return errors.As(err, &emptyErr)
}

// ----------------------------------------------------------------------
// 再試行ループ
// ----------------------------------------------------------------------

// Retry は fn を最大 policy.MaxAttempts 回呼び出します。
// classify が恒久的と判定したエラーは直ちに返します。ctx は試行を開始するか、
// 待機を続けるかの判定にのみ使い、実行中の fn を中断しません。
// 戻り値は実際に fn を呼び出した回数と最後のエラーです。
func Retry(ctx context.Context, policy RetryPolicy, classify Classifier, fn func(attempt int) error) (int, error) {
	if classify == nil {
		classify = IsTransient
	}

	var lastErr error
	maxAttempts := policy.attempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempt - 1, lastErr
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if !classify(lastErr) {
			return attempt, lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		logger.L.Warnw("一時的なエラーのため再試行します",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, lastErr
		case <-timer.C:
		}
	}
	return maxAttempts, lastErr
}
