package synth

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/audio"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/fileutil"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/observe"
)

// ----------------------------------------------------------------------
// インターフェース
// ----------------------------------------------------------------------

// Provider はSSML文書1つを受け取り、音声データを返す合成サービスです。
// api.Client がこれを満たします。
type Provider interface {
	Synthesize(ctx context.Context, ssml string) ([]byte, error)
}

// Observer はパートごとの結果を受け取ります。複数のワーカーから並行して呼ばれます。
type Observer interface {
	PartDone(r Result)
	PartFailed(err *ErrSynthesis)
}

// ----------------------------------------------------------------------
// Driver
// ----------------------------------------------------------------------

// Config は Driver の設定です。
type Config struct {
	Retry             RetryPolicy
	Classifier        Classifier
	AttemptTimeout    time.Duration
	RequestsPerSecond float64 // 0 以下の場合は制限しない
	Workers           int
	// Expected はサービスが返す音声に要求する形式です。ゼロ値の場合は検証しません。
	Expected audio.Format
	Observer Observer
}

// Job は合成するパート1つです。
type Job struct {
	Index   int
	SSML    string
	WavPath string
}

// Result は合成に成功したパート1つです。
type Result struct {
	Index    int
	Path     string
	Attempts int
	Info     *audio.Info
	Elapsed  time.Duration
}

// Driver はパートごとに合成サービスを呼び出し、WAVファイルとして保存します。
type Driver struct {
	provider Provider
	cfg      Config
	limiter  *rate.Limiter
}

// NewDriver は新しい Driver を生成します。未設定の項目には既定値を使います。
func NewDriver(provider Provider, cfg Config) *Driver {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = IsTransient
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	d := &Driver{provider: provider, cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, cfg.Workers))
	}
	return d
}

// Synthesize は1つのパートを合成します。
func (d *Driver) Synthesize(ctx context.Context, job Job) (*Result, error) {
	return d.synthesize(ctx, ctx, job)
}

// SynthesizeAll はすべてのパートを最大 Workers 並列で合成し、jobs と同じ順序で結果を返します。
// いずれかのパートが失敗した時点で新しいパートの投入を止めます。
// 実行中のリクエストは中断せず、その結果は破棄されます。
func (d *Driver) SynthesizeAll(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	logger.L.Infow("音声合成バッチ処理開始", "total_parts", len(jobs), "workers", d.cfg.Workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			logger.L.Infow("エラーまたはキャンセルにより残りのパートの投入を中止しました", "next_part", job.Index)
			break
		}

		g.Go(func() error {
			// 空きを待つ間に他のパートが失敗していれば開始しない
			if gctx.Err() != nil {
				return nil
			}
			r, err := d.synthesize(ctx, gctx, job)
			if err != nil {
				return err
			}
			results[i] = *r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// synthesize は runCtx でリクエストを実行し、schedCtx で再試行の継続を判断します。
func (d *Driver) synthesize(runCtx, schedCtx context.Context, job Job) (*Result, error) {
	ctx, span := observe.StartSpan(runCtx, "ssml2wav.synthesize_part")
	defer span.End()
	span.SetAttributes(attribute.Int("part", job.Index), attribute.String("path", job.WavPath))

	start := time.Now()
	var info *audio.Info

	attempts, err := Retry(schedCtx, d.cfg.Retry, d.cfg.Classifier, func(attempt int) error {
		logger.L.Debugw("パートの合成リクエストを送信します", "part", job.Index, "attempt", attempt)

		var err error
		info, err = d.attempt(ctx, schedCtx, job)
		if err != nil {
			logger.L.Warnw("パートの合成に失敗しました",
				"part", job.Index,
				"attempt", attempt,
				"transient", d.cfg.Classifier(err),
				"error", err)
		}
		return err
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		synthErr := &ErrSynthesis{PartIndex: job.Index, Attempts: attempts, WrappedErr: err}
		observe.Fail(span, synthErr)
		if d.cfg.Observer != nil {
			d.cfg.Observer.PartFailed(synthErr)
		}
		return nil, synthErr
	}

	r := &Result{
		Index:    job.Index,
		Path:     job.WavPath,
		Attempts: attempts,
		Info:     info,
		Elapsed:  time.Since(start),
	}
	logger.L.Infow("パートの合成が完了しました",
		"part", job.Index,
		"attempt", attempts,
		"path", job.WavPath,
		"audio_duration", info.Duration(),
		"elapsed", r.Elapsed)
	if d.cfg.Observer != nil {
		d.cfg.Observer.PartDone(*r)
	}
	return r, nil
}

// attempt は1回分のリクエストを行い、応答を検証してから原子的に書き込みます。
func (d *Driver) attempt(runCtx, schedCtx context.Context, job Job) (*audio.Info, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(schedCtx); err != nil {
			return nil, err
		}
	}

	attemptCtx, cancel := context.WithTimeout(runCtx, d.cfg.AttemptTimeout)
	defer cancel()

	data, err := d.provider.Synthesize(attemptCtx, job.SSML)
	if err != nil {
		return nil, err
	}

	info, err := audio.ParseInfo(data, job.Index)
	if err != nil {
		return nil, err
	}
	if d.cfg.Expected != (audio.Format{}) && !info.Format.Compatible(d.cfg.Expected) {
		return nil, &audio.ErrFormatMismatch{Index: job.Index, Path: job.WavPath, Got: info.Format, Want: d.cfg.Expected}
	}

	if err := fileutil.WriteFile(job.WavPath, data, 0644); err != nil {
		return nil, err
	}
	return info, nil
}
