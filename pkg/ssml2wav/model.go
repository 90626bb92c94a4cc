package ssml2wav

import (
	"context"
	"time"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/journal"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/transcode"
)

// ----------------------------------------------------------------------
// インターフェース
// ----------------------------------------------------------------------

// EngineExecutor は、SSMLファイルを分割・合成・結合して音声ファイルを生成するための契約を定義します。
// 実行ごとの切り替え (再利用モード、MP3出力など) は ExecuteOption で指定します。
type EngineExecutor interface {
	// Execute は inputPath のSSMLを処理し、結果を返します。
	// エラー時も途中までの結果 (State は Failed) を返します。
	Execute(ctx context.Context, inputPath string, opts ...ExecuteOption) (*Result, error)
	// Close は実行履歴などのリソースを解放します。
	Close() error
}

// Recorder は実行状態を永続化する先です。*journal.Store がこれを満たします。
type Recorder interface {
	StartRun(ctx context.Context, run journal.Run) error
	UpdateState(ctx context.Context, runID, state string) error
	RecordPart(ctx context.Context, p journal.Part) error
	FinishRun(ctx context.Context, runID string, o journal.Outcome) error
}

// Transcoder は最終WAVをMP3に変換します。*transcode.Transcoder がこれを満たします。
type Transcoder interface {
	ToMP3(ctx context.Context, inWav, outMP3 string) (*transcode.MP3Info, error)
}

// VoiceCatalog は合成サービスで利用可能なボイスの一覧です。*voice.Catalog がこれを満たします。
type VoiceCatalog interface {
	Len() int
	Missing(names []string) []string
}

// ----------------------------------------------------------------------
// 実行結果
// ----------------------------------------------------------------------

// Result は1回の実行の結果です。
type Result struct {
	RunID      string
	Input      string
	State      State
	VoiceCount int      // 入力文書の直下の <voice> 要素数 (再利用モードでは全パートの合計)
	Parts      []string // パートファイル (パート番号順)
	PartWAVs   []string // パートごとのWAV (パート番号順)
	FinalWAV   string
	FinalMP3   string
	Duration   time.Duration // 最終WAVの再生時間
}
