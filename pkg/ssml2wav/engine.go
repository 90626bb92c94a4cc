package ssml2wav

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/audio"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/journal"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/observe"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/partstore"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/ssml"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/synth"
)

type Engine struct {
	provider   synth.Provider
	transcoder Transcoder
	recorder   Recorder
	catalog    VoiceCatalog
	config     EngineConfig
}

// EngineConfig は Engine の既定の動作です。Execute ごとに ExecuteOption で上書きできます。
type EngineConfig struct {
	OutDir    string
	MaxVoices int
	Reuse     bool
	SplitOnly bool
	ExportMP3 bool

	Synth synth.Config
	// Format は合成サービスが返し、最終WAVに書き込む音声形式です。
	Format audio.Format
}

// ----------------------------------------------------------------------
// NewEngineメソッド用のオプション定義 (Functional Options Pattern)
// ----------------------------------------------------------------------

// EngineOption は Engine の任意の依存関係を設定します。
type EngineOption func(*Engine)

// WithTranscoder はMP3変換に使う Transcoder を設定します。
func WithTranscoder(t Transcoder) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.transcoder = t
		}
	}
}

// WithRecorder は実行履歴の記録先を設定します。
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithVoiceCatalog は未知のボイス名を警告するためのカタログを設定します。
func WithVoiceCatalog(c VoiceCatalog) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// NewEngine は新しい Engine インスタンスを作成し、依存関係を注入します。
func NewEngine(provider synth.Provider, config EngineConfig, opts ...EngineOption) *Engine {
	if config.OutDir == "" {
		config.OutDir = "out"
	}
	if config.MaxVoices == 0 {
		config.MaxVoices = ssml.DefaultMaxVoices
	}
	if config.Format == (audio.Format{}) {
		config.Format = audio.PCM24kMono16
	}
	if provider == nil {
		provider = noopProvider{}
	}

	e := &Engine{
		provider: provider,
		recorder: noopRecorder{},
		config:   config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close は Recorder が io.Closer を実装していれば閉じます。
func (e *Engine) Close() error {
	if c, ok := e.recorder.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// ----------------------------------------------------------------------
// Executeメソッド用のオプション定義 (Functional Options Pattern)
// ----------------------------------------------------------------------

// ExecuteConfig は Execute メソッドの実行中に適用されるオプション設定を保持する
// NOTE: この構造体は ExecuteOption 関数によって設定され、Executeメソッド内部でのみ使用されます。
type ExecuteConfig struct {
	OutDir    string
	MaxVoices int
	Reuse     bool
	SplitOnly bool
	ExportMP3 bool
	RunID     string
}

// ExecuteOption はオプションを適用するための関数シグネチャ
type ExecuteOption func(*ExecuteConfig)

// newExecuteConfig は EngineConfig を初期値として Execute の設定を作成する
func (e *Engine) newExecuteConfig() *ExecuteConfig {
	return &ExecuteConfig{
		OutDir:    e.config.OutDir,
		MaxVoices: e.config.MaxVoices,
		Reuse:     e.config.Reuse,
		SplitOnly: e.config.SplitOnly,
		ExportMP3: e.config.ExportMP3,
	}
}

// WithOutDir は出力ディレクトリを指定します。
func WithOutDir(dir string) ExecuteOption {
	return func(cfg *ExecuteConfig) {
		if dir != "" {
			cfg.OutDir = dir
		}
	}
}

// WithMaxVoices は1パートあたりの <voice> 要素数の上限を指定します。
// 0 以下の値はそのまま渡され、分割ステージで *ssml.ErrInvalidMaxVoices になります。
func WithMaxVoices(n int) ExecuteOption {
	return func(cfg *ExecuteConfig) {
		cfg.MaxVoices = n
	}
}

// WithReuseParts は分割を行わず、保存済みのパートファイルを再利用します。
func WithReuseParts(reuse bool) ExecuteOption {
	return func(cfg *ExecuteConfig) {
		cfg.Reuse = reuse
	}
}

// WithSplitOnly はパートファイルの保存までで処理を終えます。
func WithSplitOnly(splitOnly bool) ExecuteOption {
	return func(cfg *ExecuteConfig) {
		cfg.SplitOnly = splitOnly
	}
}

// WithExportMP3 は最終WAVに加えてMP3を出力します。
func WithExportMP3(export bool) ExecuteOption {
	return func(cfg *ExecuteConfig) {
		cfg.ExportMP3 = export
	}
}

// WithRunID は実行IDを指定します。省略時は UUID を生成します。
func WithRunID(id string) ExecuteOption {
	return func(cfg *ExecuteConfig) {
		if id != "" {
			cfg.RunID = id
		}
	}
}

// ----------------------------------------------------------------------
// メイン処理 (Execute メソッド)
// ----------------------------------------------------------------------

// run は1回の Execute の状態です。
type run struct {
	engine *Engine
	cfg    *ExecuteConfig
	result *Result

	store  *partstore.Store
	stem   string
	parts  []ssml.Part
	jobs   []synth.Job
	synths []synth.Result
}

func (e *Engine) Execute(ctx context.Context, inputPath string, opts ...ExecuteOption) (*Result, error) {
	// 1. デフォルト設定の初期化とオプションの適用
	cfg := e.newExecuteConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	stem := partstore.Stem(inputPath)
	r := &run{
		engine: e,
		cfg:    cfg,
		result: &Result{RunID: cfg.RunID, Input: inputPath, State: StateIdle},
		store:  partstore.New(cfg.OutDir, stem),
		stem:   stem,
	}

	mode := modeSplit
	if cfg.Reuse {
		mode = modeReuse
	}

	ctx, span := observe.StartSpan(ctx, "ssml2wav.Execute", trace.WithAttributes(
		attribute.String("run.id", cfg.RunID),
		attribute.String("run.input", inputPath),
		attribute.String("run.mode", mode),
	))
	defer span.End()

	// 2. 実行開始の記録 (記録の失敗は処理を止めない)
	started := time.Now()
	r.record(ctx, "StartRun", func(ctx context.Context) error {
		return e.recorder.StartRun(ctx, journal.Run{
			ID:        cfg.RunID,
			Input:     inputPath,
			Mode:      mode,
			State:     StateIdle.String(),
			StartedAt: started,
		})
	})
	logger.L.Infow("パイプライン開始",
		"run_id", cfg.RunID,
		"input", inputPath,
		"mode", mode,
		"out_dir", cfg.OutDir,
		"max_voices", cfg.MaxVoices,
		"export_mp3", cfg.ExportMP3)

	// 3. ステージの実行
	err := r.execute(ctx)

	// 4. 終了状態の確定と記録
	outcome := journal.Outcome{
		Parts:    len(r.result.Parts),
		FinalWAV: r.result.FinalWAV,
		FinalMP3: r.result.FinalMP3,
	}
	if err != nil {
		r.result.State = StateFailed
		outcome.Error = err.Error()
		observe.Fail(span, err)
		logger.L.Errorw("パイプラインが失敗しました", "run_id", cfg.RunID, "error", err)
	} else {
		r.result.State = StateDone
		logger.L.Infow("パイプライン完了",
			"run_id", cfg.RunID,
			"parts", len(r.result.Parts),
			"final_wav", r.result.FinalWAV,
			"final_mp3", r.result.FinalMP3,
			"duration", r.result.Duration,
			"elapsed", time.Since(started))
	}
	outcome.State = r.result.State.String()
	r.record(ctx, "FinishRun", func(ctx context.Context) error {
		return e.recorder.FinishRun(ctx, cfg.RunID, outcome)
	})

	return r.result, err
}

// execute は各ステージを順に実行します。
func (r *run) execute(ctx context.Context) error {
	// パートの取得: 分割または再利用
	if r.cfg.Reuse {
		if err := r.stage(ctx, StateReusing, r.reuse); err != nil {
			return err
		}
	} else {
		var doc *ssml.Document
		if err := r.stage(ctx, StateExtracting, func(ctx context.Context) error {
			var err error
			doc, err = r.extract()
			return err
		}); err != nil {
			return err
		}
		if err := r.stage(ctx, StateSplitting, func(ctx context.Context) error {
			return r.split(doc)
		}); err != nil {
			return err
		}
	}

	r.warnUnknownVoices()

	if r.cfg.SplitOnly {
		logger.L.Infow("分割のみのモードのため、合成を行わずに終了します", "parts_dir", r.store.Dir(), "parts", len(r.result.Parts))
		return nil
	}

	if err := r.stage(ctx, StateSynthesizing, r.synthesize); err != nil {
		return err
	}
	if err := r.stage(ctx, StateAssembling, r.assemble); err != nil {
		return err
	}

	if r.cfg.ExportMP3 {
		if err := r.stage(ctx, StateTranscoding, r.transcode); err != nil {
			// 最終WAVは削除せずに残す
			logger.L.Warnw("MP3変換に失敗しました。最終WAVは保持されます。", "final_wav", r.result.FinalWAV)
			return err
		}
	}
	return nil
}

// stage は1つのステージをスパンと記録付きで実行し、失敗時は *ErrStage でラップします。
func (r *run) stage(ctx context.Context, s State, fn func(context.Context) error) error {
	r.result.State = s
	r.record(ctx, "UpdateState", func(ctx context.Context) error {
		return r.engine.recorder.UpdateState(ctx, r.result.RunID, s.String())
	})
	logger.L.Infow("ステージ開始", "run_id", r.result.RunID, "stage", s.String())

	ctx, span := observe.StartSpan(ctx, "ssml2wav."+s.String())
	defer span.End()

	start := time.Now()
	if err := fn(ctx); err != nil {
		observe.Fail(span, err)
		return &ErrStage{Stage: s, WrappedErr: err}
	}
	logger.L.Debugw("ステージ完了", "run_id", r.result.RunID, "stage", s.String(), "elapsed", time.Since(start))
	return nil
}

// record は Recorder の呼び出しを実行します。
// 実行のキャンセル後も終了状態を残せるよう、キャンセルされないコンテキストを渡します。
func (r *run) record(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		logger.L.Warnw("実行履歴の記録に失敗しました", "run_id", r.result.RunID, "op", op, "error", err)
	}
}

// ----------------------------------------------------------------------
// ステージ
// ----------------------------------------------------------------------

func (r *run) extract() (*ssml.Document, error) {
	data, err := os.ReadFile(r.result.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ErrInputNotFound{Path: r.result.Input}
		}
		return nil, err
	}

	doc, err := ssml.Extract(string(data))
	if err != nil {
		return nil, err
	}

	count, err := ssml.CountVoices(doc)
	if err != nil {
		return nil, err
	}
	r.result.VoiceCount = count
	logger.L.Infow("入力SSMLの <voice> 要素数", "voices", count, "input", r.result.Input)
	return doc, nil
}

func (r *run) split(doc *ssml.Document) error {
	parts, err := ssml.Split(doc, r.cfg.MaxVoices)
	if err != nil {
		return err
	}
	paths, err := r.store.Save(parts)
	if err != nil {
		return err
	}
	r.parts = parts
	r.result.Parts = paths
	logger.L.Infow("パートに分割しました", "parts", len(parts), "max_voices", r.cfg.MaxVoices, "parts_dir", r.store.Dir())
	return nil
}

func (r *run) reuse(ctx context.Context) error {
	if _, err := os.Stat(r.result.Input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ErrInputNotFound{Path: r.result.Input}
		}
		return err
	}

	parts, paths, err := r.store.Load()
	if err != nil {
		return err
	}
	total := 0
	for _, p := range parts {
		total += p.VoiceCount
	}
	r.parts = parts
	r.result.Parts = paths
	r.result.VoiceCount = total
	logger.L.Infow("保存済みのパートを再利用します", "parts", len(parts), "voices", total, "parts_dir", r.store.Dir())
	return nil
}

// warnUnknownVoices はカタログに無いボイス名を警告します。合成は継続します。
func (r *run) warnUnknownVoices() {
	catalog := r.engine.catalog
	if catalog == nil {
		return
	}

	var names []string
	for _, p := range r.parts {
		voices, err := ssml.Voices(&p.Document)
		if err != nil {
			continue
		}
		for _, v := range voices {
			names = append(names, v.Name())
		}
	}
	for _, name := range catalog.Missing(names) {
		logger.L.Warnw("カタログに無いボイス名です。合成時に失敗する可能性があります。", "voice", name, "catalog_size", catalog.Len())
	}
}

func (r *run) synthesize(ctx context.Context) error {
	wavDir := filepath.Join(r.cfg.OutDir, WavsDirName)

	r.jobs = make([]synth.Job, len(r.parts))
	for i, p := range r.parts {
		r.jobs[i] = synth.Job{
			Index:   p.Index,
			SSML:    p.Document.String(),
			WavPath: partstore.WavPath(wavDir, r.result.Parts[i]),
		}
	}
	if len(r.jobs) == 0 {
		logger.L.Warnw("合成するパートがありません。無音の最終WAVを出力します。", "input", r.result.Input)
		return nil
	}

	cfg := r.engine.config.Synth
	cfg.Expected = r.engine.config.Format
	cfg.Observer = newPartObserver(ctx, r.engine.recorder, r.result.RunID, r.jobs, cfg.Observer)

	results, err := synth.NewDriver(r.engine.provider, cfg).SynthesizeAll(ctx, r.jobs)
	if err != nil {
		return err
	}
	r.synths = results
	r.result.PartWAVs = make([]string, len(results))
	for i, res := range results {
		r.result.PartWAVs[i] = res.Path
	}
	return nil
}

func (r *run) assemble(ctx context.Context) error {
	parts := make([]audio.Part, len(r.synths))
	for i, res := range r.synths {
		parts[i] = audio.Part{Index: res.Index, Path: res.Path}
	}

	outPath := filepath.Join(r.cfg.OutDir, r.stem+finalWavSuffix)
	final, err := audio.NewAssembler(r.engine.config.Format).Assemble(parts, outPath)
	if err != nil {
		return err
	}
	r.result.FinalWAV = final.Path
	r.result.Duration = final.Duration()
	logger.L.Infow("最終WAVを書き込みました", "path", final.Path, "parts", final.Parts, "duration", final.Duration(), "format", final.Format.String())
	return nil
}

func (r *run) transcode(ctx context.Context) error {
	if r.engine.transcoder == nil {
		return ErrTranscoderUnavailable
	}
	outPath := filepath.Join(r.cfg.OutDir, r.stem+finalMP3Suffix)
	info, err := r.engine.transcoder.ToMP3(ctx, r.result.FinalWAV, outPath)
	if err != nil {
		return err
	}
	r.result.FinalMP3 = info.Path
	logger.L.Infow("MP3を書き込みました", "path", info.Path, "sample_rate", info.SampleRate, "duration", info.Duration, "bytes", info.Size)
	return nil
}

// ----------------------------------------------------------------------
// パートごとの記録
// ----------------------------------------------------------------------

// partObserver は合成結果を Recorder に書き込む synth.Observer です。
// 設定済みの Observer があれば、その後に呼び出します。
type partObserver struct {
	ctx   context.Context
	rec   Recorder
	runID string
	paths map[int]string
	next  synth.Observer

	mu sync.Mutex
}

func newPartObserver(ctx context.Context, rec Recorder, runID string, jobs []synth.Job, next synth.Observer) *partObserver {
	paths := make(map[int]string, len(jobs))
	for _, j := range jobs {
		paths[j.Index] = j.WavPath
	}
	return &partObserver{
		ctx:   context.WithoutCancel(ctx),
		rec:   rec,
		runID: runID,
		paths: paths,
		next:  next,
	}
}

func (o *partObserver) PartDone(res synth.Result) {
	o.write(journal.Part{
		RunID:    o.runID,
		Index:    res.Index,
		Path:     res.Path,
		Status:   journal.PartDone,
		Attempts: res.Attempts,
		Elapsed:  res.Elapsed,
	})
	if o.next != nil {
		o.next.PartDone(res)
	}
}

func (o *partObserver) PartFailed(err *synth.ErrSynthesis) {
	o.write(journal.Part{
		RunID:    o.runID,
		Index:    err.PartIndex,
		Path:     o.paths[err.PartIndex],
		Status:   journal.PartFailed,
		Attempts: err.Attempts,
		Error:    err.Error(),
	})
	if o.next != nil {
		o.next.PartFailed(err)
	}
}

func (o *partObserver) write(p journal.Part) {
	// SQLite への書き込みはワーカー間で直列化する
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.rec.RecordPart(o.ctx, p); err != nil {
		logger.L.Warnw("パート結果の記録に失敗しました", "run_id", o.runID, "part", p.Index, "error", err)
	}
}
