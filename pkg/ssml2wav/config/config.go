package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/api"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/ssml"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/synth"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/transcode"
)

// 分割モード
const (
	ModeSplit = "split"
	ModeReuse = "reuse"
)

const (
	DefaultOutDir      = "out"
	DefaultRegion      = "canadacentral"
	DefaultJournalFile = "ssml2wav.db"
)

// Config はパイプライン全体の設定です。起動時に一度だけ組み立て、各コンポーネントへ明示的に渡します。
type Config struct {
	OutDir    string `yaml:"out_dir"`
	MaxVoices int    `yaml:"max_voices"`
	SplitMode string `yaml:"split_mode"`
	SplitOnly bool   `yaml:"split_only"`
	ExportMP3 bool   `yaml:"export_mp3"`
	Preflight bool   `yaml:"preflight"`

	Speech    SpeechConfig    `yaml:"speech"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Journal   JournalConfig   `yaml:"journal"`
	Trace     TraceConfig     `yaml:"trace"`
	Log       LogConfig       `yaml:"log"`
}

// SpeechConfig は Azure Speech の接続設定です。
type SpeechConfig struct {
	Key            string `yaml:"key"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	OutputFormat   string `yaml:"output_format"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SynthesisConfig は合成の再試行と並列度の設定です。
type SynthesisConfig struct {
	MaxAttempts           int     `yaml:"max_attempts"`
	BaseDelayMS           int     `yaml:"base_delay_ms"`
	MaxDelayMS            int     `yaml:"max_delay_ms"`
	AttemptTimeoutSeconds int     `yaml:"attempt_timeout_seconds"`
	Workers               int     `yaml:"workers"`
	RequestsPerSecond     float64 `yaml:"requests_per_second"`
}

// TranscodeConfig はMP3変換の設定です。
type TranscodeConfig struct {
	Command string `yaml:"command"`
	Bitrate string `yaml:"bitrate"`
}

// JournalConfig は実行履歴の設定です。
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // 空の場合は out_dir/ssml2wav.db
}

// TraceConfig はトレースの設定です。
type TraceConfig struct {
	File string `yaml:"file"`
}

// LogConfig はログの設定です。
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LookupFunc は環境変数の参照関数です。通常は os.LookupEnv を渡します。
type LookupFunc func(key string) (string, bool)

// Default は既定値の設定を返します。
func Default() Config {
	return Config{
		OutDir:    DefaultOutDir,
		MaxVoices: ssml.DefaultMaxVoices,
		SplitMode: ModeSplit,
		Speech: SpeechConfig{
			Region:         DefaultRegion,
			OutputFormat:   api.DefaultOutputFormat,
			UserAgent:      api.DefaultUserAgent,
			TimeoutSeconds: int(api.DefaultTimeout / time.Second),
		},
		Synthesis: SynthesisConfig{
			MaxAttempts:           synth.DefaultMaxAttempts,
			BaseDelayMS:           int(synth.DefaultBaseDelay / time.Millisecond),
			MaxDelayMS:            int(synth.DefaultMaxDelay / time.Millisecond),
			AttemptTimeoutSeconds: int(synth.DefaultAttemptTimeout / time.Second),
			Workers:               synth.DefaultWorkers,
		},
		Transcode: TranscodeConfig{
			Command: transcode.DefaultCommand,
			Bitrate: transcode.DefaultBitrate,
		},
		Journal: JournalConfig{Enabled: true},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load は既定値に YAML ファイル (path が空なら省略) と環境変数を重ねた設定を返します。
// ファイル内の ${VAR} は lookup で展開します。検証は呼び出し側で Validate を呼んでください。
func Load(path string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, &ErrConfiguration{Field: "config", Details: fmt.Sprintf("設定ファイルが見つかりません: %s", path)}
			}
			return cfg, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
		expanded := os.Expand(string(data), func(key string) string {
			v, _ := lookup(key)
			return v
		})
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, &ErrConfiguration{Field: "config", Details: fmt.Sprintf("設定ファイルの解析に失敗しました: %v", err)}
		}
	}

	ApplyEnv(&cfg, lookup)
	return cfg, nil
}

// ApplyEnv は環境変数の値で設定を上書きします。
// キーは SPEECH_KEY、AZURE_SPEECH_KEY の順、リージョンは SPEECH_REGION、AZURE_SPEECH_REGION の順に参照します。
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	overrideString(&cfg.Speech.Key, lookup, "SPEECH_KEY", "AZURE_SPEECH_KEY")
	overrideString(&cfg.Speech.Region, lookup, "SPEECH_REGION", "AZURE_SPEECH_REGION")
	overrideString(&cfg.Speech.Endpoint, lookup, "SPEECH_ENDPOINT")
	overrideString(&cfg.Transcode.Command, lookup, "FFMPEG_PATH")
	overrideString(&cfg.OutDir, lookup, "SSML2WAV_OUT_DIR")
	overrideInt(&cfg.MaxVoices, lookup, "SSML2WAV_MAX_VOICES")
	overrideInt(&cfg.Synthesis.Workers, lookup, "SSML2WAV_WORKERS")
	overrideString(&cfg.Log.Level, lookup, "SSML2WAV_LOG_LEVEL")
	overrideString(&cfg.Trace.File, lookup, "SSML2WAV_TRACE_FILE")
}

// overrideString は keys を順に参照し、最初に見つかった空でない値で上書きします。
func overrideString(target *string, lookup LookupFunc, keys ...string) {
	for _, key := range keys {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
			return
		}
	}
}

func overrideInt(target *int, lookup LookupFunc, key string) {
	if value, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

// ----------------------------------------------------------------------
// 検証
// ----------------------------------------------------------------------

// Validate は設定値の整合性を確認し、最初に見つかった問題を *ErrConfiguration として返します。
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.OutDir) == "":
		return &ErrConfiguration{Field: "out_dir", Details: "出力ディレクトリが空です"}
	case c.MaxVoices <= 0:
		return &ErrConfiguration{Field: "max_voices", Details: fmt.Sprintf("正の整数である必要があります (指定値: %d)", c.MaxVoices)}
	case c.SplitMode != ModeSplit && c.SplitMode != ModeReuse:
		return &ErrConfiguration{Field: "split_mode", Details: fmt.Sprintf("%q または %q を指定してください (指定値: %q)", ModeSplit, ModeReuse, c.SplitMode)}
	case c.SplitOnly && c.SplitMode == ModeReuse:
		return &ErrConfiguration{Field: "split_only", Details: "再利用モードでは分割のみの実行はできません"}
	}

	if !c.SplitOnly {
		switch {
		case c.Speech.Key == "":
			return &ErrConfiguration{Field: "speech.key", Details: "SPEECH_KEY または AZURE_SPEECH_KEY を設定してください"}
		case c.Speech.Region == "" && c.Speech.Endpoint == "":
			return &ErrConfiguration{Field: "speech.region", Details: "リージョンまたはエンドポイントを設定してください"}
		}
	}

	switch {
	case c.Speech.OutputFormat != "" && c.Speech.OutputFormat != api.DefaultOutputFormat:
		return &ErrConfiguration{Field: "speech.output_format", Details: fmt.Sprintf("%q のみ対応しています (指定値: %q)", api.DefaultOutputFormat, c.Speech.OutputFormat)}
	case c.Speech.TimeoutSeconds <= 0:
		return &ErrConfiguration{Field: "speech.timeout_seconds", Details: "正の整数である必要があります"}
	case c.Synthesis.MaxAttempts <= 0:
		return &ErrConfiguration{Field: "synthesis.max_attempts", Details: "正の整数である必要があります"}
	case c.Synthesis.BaseDelayMS < 0 || c.Synthesis.MaxDelayMS < 0:
		return &ErrConfiguration{Field: "synthesis.base_delay_ms", Details: "待機時間に負の値は指定できません"}
	case c.Synthesis.AttemptTimeoutSeconds <= 0:
		return &ErrConfiguration{Field: "synthesis.attempt_timeout_seconds", Details: "正の整数である必要があります"}
	case c.Synthesis.Workers <= 0:
		return &ErrConfiguration{Field: "synthesis.workers", Details: "正の整数である必要があります"}
	case c.Synthesis.RequestsPerSecond < 0:
		return &ErrConfiguration{Field: "synthesis.requests_per_second", Details: "負の値は指定できません"}
	case c.ExportMP3 && strings.TrimSpace(c.Transcode.Command) == "":
		return &ErrConfiguration{Field: "transcode.command", Details: "MP3出力には変換コマンドが必要です"}
	case c.ExportMP3 && c.Transcode.Bitrate == "":
		return &ErrConfiguration{Field: "transcode.bitrate", Details: "ビットレートが空です"}
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return &ErrConfiguration{Field: "log.level", Details: err.Error()}
	}
	return nil
}

// ----------------------------------------------------------------------
// 派生値
// ----------------------------------------------------------------------

// SpeechTimeout はHTTPクライアントのタイムアウトです。
func (c Config) SpeechTimeout() time.Duration {
	return time.Duration(c.Speech.TimeoutSeconds) * time.Second
}

// RetryPolicy は合成の再試行ポリシーです。
func (c Config) RetryPolicy() synth.RetryPolicy {
	return synth.RetryPolicy{
		MaxAttempts: c.Synthesis.MaxAttempts,
		BaseDelay:   time.Duration(c.Synthesis.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(c.Synthesis.MaxDelayMS) * time.Millisecond,
	}
}

// AttemptTimeout は1回のリクエストのタイムアウトです。
func (c Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Synthesis.AttemptTimeoutSeconds) * time.Second
}

// JournalPath は実行履歴データベースのパスです。
func (c Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.OutDir, DefaultJournalFile)
}

// APIConfig は api.Client の設定です。
func (c Config) APIConfig() api.Config {
	return api.Config{
		Key:          c.Speech.Key,
		Region:       c.Speech.Region,
		Endpoint:     c.Speech.Endpoint,
		OutputFormat: c.Speech.OutputFormat,
		UserAgent:    c.Speech.UserAgent,
		Timeout:      c.SpeechTimeout(),
	}
}

// LoggerConfig は logger.Init の設定です。
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
	}
}
