package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// L はグローバルなロガーです。キーと値の組で出力します (例: L.Infow("msg", "part", 1))。
	L *zap.SugaredLogger
	// Z はグローバルな zap.Logger です。
	Z *zap.Logger

	fileWriter *lumberjack.Logger
)

func init() {
	// Init が呼ばれるまでは info レベルで stderr に出力する
	z, _ := zap.NewProduction()
	Z = z
	L = z.Sugar()
}

// Config はロガーの設定です。
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console (既定) または json
	File       string // 空の場合はコンソールのみ
	MaxSize    int    // MB
	MaxBackups int
	MaxAge     int // 日数
}

// ParseLevel はレベル名を zapcore.Level に変換します。空文字は info として扱います。
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("サポートされていないログレベルです: %s", level)
}

// Init は設定に従ってグローバルロガーを初期化します。
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		return fmt.Errorf("サポートされていないログ形式です: %s", cfg.Format)
	}

	var output io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("ログディレクトリの作成に失敗しました: %w", err)
		}

		closeFile()
		fileWriter = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    positiveOr(cfg.MaxSize, 64),
			MaxBackups: positiveOr(cfg.MaxBackups, 3),
			MaxAge:     positiveOr(cfg.MaxAge, 7),
			Compress:   true,
		}
		// ファイルとコンソールの両方に出力
		output = io.MultiWriter(os.Stderr, fileWriter)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), level)
	Z = zap.New(core)
	L = Z.Sugar()
	return nil
}

// Sync はバッファをフラッシュし、ログファイルを閉じます。プログラム終了前に呼び出してください。
func Sync() {
	if Z != nil {
		_ = Z.Sync()
	}
	closeFile()
}

func closeFile() {
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
