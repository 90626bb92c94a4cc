package ssml2wav

import (
	"context"
	"fmt"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/api"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/audio"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/config"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/journal"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/synth"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/transcode"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/voice"
)

// ----------------------------------------------------------------------
// No-op パターン
// ----------------------------------------------------------------------

// noopProvider は synth.Provider を満たすダミー実装です。分割のみのモードで使います。
type noopProvider struct{}

// Synthesize は何もせず ErrSynthesisDisabled を返します。
func (noopProvider) Synthesize(ctx context.Context, ssml string) ([]byte, error) {
	logger.L.Infow("音声合成は無効です。Synthesize呼び出しはスキップされました。", "ssml_length", len(ssml))
	return nil, ErrSynthesisDisabled
}

// noopRecorder は Recorder を満たすダミー実装です。実行履歴が無効な場合に使います。
type noopRecorder struct{}

func (noopRecorder) StartRun(context.Context, journal.Run) error { return nil }

func (noopRecorder) UpdateState(context.Context, string, string) error { return nil }

func (noopRecorder) RecordPart(context.Context, journal.Part) error { return nil }

func (noopRecorder) FinishRun(context.Context, string, journal.Outcome) error { return nil }

// ----------------------------------------------------------------------
// Factory 関数
// ----------------------------------------------------------------------

// NewEngineExecutor は、設定から合成サービスのクライアント、変換コマンド、実行履歴を準備し、
// EngineExecutorインターフェースを実装した具象型を組み立てて返します。
// cfg は呼び出し側で Validate 済みである必要があります。
func NewEngineExecutor(ctx context.Context, cfg config.Config) (EngineExecutor, error) {
	var opts []EngineOption

	// 1. 合成サービスのクライアント (分割のみの場合はダミー)
	var provider synth.Provider = noopProvider{}
	if cfg.SplitOnly {
		logger.L.Infow("分割のみのモードです。合成サービスへの接続を省略します。", "action", "skip_initialization")
	} else {
		client := api.NewClient(cfg.APIConfig())
		provider = client
		logger.L.Infow("Azure Speech クライアントを初期化しました",
			"region", cfg.Speech.Region,
			"endpoint", cfg.Speech.Endpoint,
			"output_format", client.OutputFormat())

		// 2. ボイスカタログのロード (資格情報の事前確認)
		if cfg.Preflight {
			logger.L.Infow("ボイスカタログをロード中...")
			catalog, err := voice.LoadCatalog(ctx, client)
			if err != nil {
				return nil, fmt.Errorf("Azure Speech への接続またはボイスカタログのロードに失敗しました: %w", err)
			}
			logger.L.Infow("ボイスカタログのロード完了。", "voices", catalog.Len())
			opts = append(opts, WithVoiceCatalog(catalog))
		}
	}

	// 3. MP3変換コマンド
	if cfg.ExportMP3 {
		t, err := transcode.New(cfg.Transcode.Command, cfg.Transcode.Bitrate)
		if err != nil {
			return nil, &config.ErrConfiguration{Field: "transcode.command", Details: err.Error()}
		}
		if err := t.Available(); err != nil {
			// WAVまでは出力できるため、ここでは警告に留める
			logger.L.Warnw("MP3変換コマンドが見つかりません。変換ステージで失敗します。", "command", t.Binary(), "error", err)
		}
		opts = append(opts, WithTranscoder(t))
	}

	// 4. 実行履歴
	if cfg.Journal.Enabled {
		store, err := journal.Open(ctx, cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("実行履歴データベースを開けません (%s): %w", cfg.JournalPath(), err)
		}
		opts = append(opts, WithRecorder(store))
	}

	// 5. EngineConfigの設定
	engineConfig := EngineConfig{
		OutDir:    cfg.OutDir,
		MaxVoices: cfg.MaxVoices,
		Reuse:     cfg.SplitMode == config.ModeReuse,
		SplitOnly: cfg.SplitOnly,
		ExportMP3: cfg.ExportMP3,
		Synth: synth.Config{
			Retry:             cfg.RetryPolicy(),
			AttemptTimeout:    cfg.AttemptTimeout(),
			RequestsPerSecond: cfg.Synthesis.RequestsPerSecond,
			Workers:           cfg.Synthesis.Workers,
		},
		Format: audio.PCM24kMono16,
	}

	executor := NewEngine(provider, engineConfig, opts...)
	logger.L.Infow("Executorの初期化が完了しました。",
		"workers", engineConfig.Synth.Workers,
		"max_attempts", engineConfig.Synth.Retry.MaxAttempts,
		"attempt_timeout", engineConfig.Synth.AttemptTimeout.String())

	return executor, nil
}
