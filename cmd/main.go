package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/audio"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/config"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/journal"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/observe"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/partstore"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/ssml"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/synth"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/transcode"
)

var version = "0.1.0-dev"

// ----------------------------------------------------------------------
// 終了コード
// ----------------------------------------------------------------------

const (
	exitOK            = 0
	exitConfiguration = 1
	exitStructural    = 2
	exitNotFound      = 3
	exitSynthesis     = 4
	exitAssembly      = 5
	exitTranscode     = 6
)

// exitCode はエラーの種類から終了コードを決めます。
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var (
		cfgErr        *config.ErrConfiguration
		maxVoicesErr  *ssml.ErrInvalidMaxVoices
		structuralErr *ssml.ErrStructural
		invalidPart   *partstore.ErrInvalidPart
		duplicatePart *partstore.ErrDuplicatePart
		partsNotFound *partstore.ErrPartsNotFound
		inputNotFound *ssml2wav.ErrInputNotFound
		synthErr      *synth.ErrSynthesis
		mismatchErr   *audio.ErrFormatMismatch
		headerErr     *audio.ErrInvalidWAVHeader
		duplicateErr  *audio.ErrDuplicatePart
		transcodeErr  *transcode.ErrTranscode
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &maxVoicesErr):
		return exitConfiguration
	case errors.As(err, &structuralErr), errors.As(err, &invalidPart), errors.As(err, &duplicatePart):
		return exitStructural
	case errors.As(err, &partsNotFound), errors.As(err, &inputNotFound):
		return exitNotFound
	case errors.As(err, &synthErr):
		return exitSynthesis
	case errors.As(err, &mismatchErr), errors.As(err, &headerErr), errors.As(err, &duplicateErr),
		errors.Is(err, audio.ErrNoAudioData):
		return exitAssembly
	case errors.As(err, &transcodeErr), errors.Is(err, ssml2wav.ErrTranscoderUnavailable):
		return exitTranscode
	}
	return exitConfiguration
}

// ----------------------------------------------------------------------
// フラグ
// ----------------------------------------------------------------------

type options struct {
	configPath  string
	outDir      string
	maxVoices   int
	reuse       bool
	splitOnly   bool
	exportMP3   bool
	preflight   bool
	workers     int
	logLevel    string
	traceFile   string
	history     int
	showVersion bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, []string, map[string]bool, error) {
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "設定ファイル (YAML) のパス")
	fs.StringVar(&opts.outDir, "out", config.DefaultOutDir, "出力ディレクトリ")
	fs.IntVar(&opts.maxVoices, "max-voices", ssml.DefaultMaxVoices, "1パートあたりの <voice> 要素数の上限")
	fs.BoolVar(&opts.reuse, "reuse", false, "分割せず out/parts の保存済みパートを再利用する")
	fs.BoolVar(&opts.splitOnly, "split-only", false, "パートファイルの保存までで終了する")
	fs.BoolVar(&opts.exportMP3, "mp3", false, "最終WAVに加えてMP3を出力する (ffmpeg が必要)")
	fs.BoolVar(&opts.preflight, "preflight", false, "開始前にボイス一覧を取得して資格情報を確認する")
	fs.IntVar(&opts.workers, "workers", synth.DefaultWorkers, "並列に合成するパート数")
	fs.StringVar(&opts.logLevel, "log-level", "info", "ログレベル (debug, info, warn, error)")
	fs.StringVar(&opts.traceFile, "trace", "", "トレースをJSONで書き出すファイル")
	fs.IntVar(&opts.history, "history", 0, "直近 N 件の実行履歴を表示して終了する")
	fs.BoolVar(&opts.showVersion, "version", false, "バージョンを表示して終了する")
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, fs.Args(), set, nil
}

// applyFlags は明示的に指定されたフラグだけを設定に反映します。
func applyFlags(cfg *config.Config, opts *options, set map[string]bool) {
	if set["out"] {
		cfg.OutDir = opts.outDir
	}
	if set["max-voices"] {
		cfg.MaxVoices = opts.maxVoices
	}
	if set["reuse"] && opts.reuse {
		cfg.SplitMode = config.ModeReuse
	}
	if set["split-only"] {
		cfg.SplitOnly = opts.splitOnly
	}
	if set["mp3"] {
		cfg.ExportMP3 = opts.exportMP3
	}
	if set["preflight"] {
		cfg.Preflight = opts.preflight
	}
	if set["workers"] {
		cfg.Synthesis.Workers = opts.workers
	}
	if set["log-level"] {
		cfg.Log.Level = opts.logLevel
	}
	if set["trace"] {
		cfg.Trace.File = opts.traceFile
	}
}

// ----------------------------------------------------------------------
// main
// ----------------------------------------------------------------------

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ssml2wav", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "使い方: ssml2wav [flags] <input.ssml>")
		fs.PrintDefaults()
	}

	opts, rest, set, err := parseFlags(fs, args)
	if err != nil {
		return exitConfiguration
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	// 1. 設定の組み立て: 既定値 → ファイル → 環境変数 → フラグ
	cfg, err := config.Load(opts.configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitCode(err)
	}
	applyFlags(&cfg, opts, set)

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfiguration
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.history > 0 {
		if err := printHistory(ctx, stdout, cfg.JournalPath(), opts.history); err != nil {
			logger.L.Errorw("実行履歴の読み込みに失敗しました", "path", cfg.JournalPath(), "error", err)
			return exitConfiguration
		}
		return exitOK
	}

	if len(rest) != 1 {
		fs.Usage()
		return exitConfiguration
	}
	inputPath := rest[0]

	if err := cfg.Validate(); err != nil {
		logger.L.Errorw("設定が不正です", "error", err)
		return exitCode(err)
	}

	// 2. トレース
	shutdownTrace, err := observe.Init(ctx, observe.Config{File: cfg.Trace.File, ServiceName: "ssml2wav"})
	if err != nil {
		logger.L.Errorw("トレースの初期化に失敗しました", "error", err)
		return exitConfiguration
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTrace(shutdownCtx); err != nil {
			logger.L.Warnw("トレースの書き出しに失敗しました", "error", err)
		}
	}()

	// 3. Executorの初期化
	executor, err := ssml2wav.NewEngineExecutor(ctx, cfg)
	if err != nil {
		logger.L.Errorw("Executorの初期化に失敗しました。", "error", err)
		logger.L.Errorw("SPEECH_KEY と SPEECH_REGION (または AZURE_SPEECH_*) が正しいか確認してください。")
		return exitConfiguration
	}
	defer executor.Close()

	// 4. 実行
	res, err := executor.Execute(ctx, inputPath)
	if err != nil {
		if res != nil && res.FinalWAV != "" {
			logger.L.Warnw("最終WAVは出力済みです", "path", res.FinalWAV)
		}
		logger.L.Errorw("処理に失敗しました。", "error", err)
		return exitCode(err)
	}

	if cfg.SplitOnly {
		fmt.Fprintf(stdout, "分割完了: %d パート (%s)\n", len(res.Parts), partstore.New(cfg.OutDir, partstore.Stem(inputPath)).Dir())
		return exitOK
	}
	fmt.Fprintf(stdout, "完了: %s (%s)\n", res.FinalWAV, res.Duration.Round(time.Millisecond))
	if res.FinalMP3 != "" {
		fmt.Fprintf(stdout, "MP3: %s\n", res.FinalMP3)
	}
	return exitOK
}

// printHistory は実行履歴を新しい順に表示します。
func printHistory(ctx context.Context, w io.Writer, path string, limit int) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	store, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tSTATE\tPARTS\tINPUT\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Mode, r.State, r.Parts, r.Input, r.Error)
	}
	return tw.Flush()
}
