// Package transcode は最終WAVを外部の ffmpeg でMP3に変換します。
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mattn/go-shellwords"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/fileutil"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
)

const (
	DefaultCommand = "ffmpeg"
	DefaultBitrate = "160k"

	// go-mp3 のデコード出力は16bitステレオ
	decodedBytesPerFrame = 4
	maxStderrBytes       = 2048
)

// ErrTranscode はMP3への変換に失敗したことを示します。最終WAVは削除されません。
type ErrTranscode struct {
	Input      string
	Output     string
	Details    string
	Stderr     string
	WrappedErr error
}

func (e *ErrTranscode) Error() string {
	msg := fmt.Sprintf("MP3への変換に失敗しました (%s -> %s): %s", e.Input, e.Output, e.Details)
	if e.WrappedErr != nil {
		msg += fmt.Sprintf(": %v", e.WrappedErr)
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ErrTranscode) Unwrap() error {
	return e.WrappedErr
}

// MP3Info は変換後のMP3をデコードして確認した情報です。
type MP3Info struct {
	Path       string
	SampleRate int
	Duration   time.Duration
	Size       int64
}

// Transcoder は ffmpeg コマンドを呼び出してMP3を生成します。
type Transcoder struct {
	argv    []string
	bitrate string
}

// New は command (シェル風の文字列。例: "ffmpeg -threads 2") を解析して Transcoder を生成します。
func New(command, bitrate string) (*Transcoder, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	if bitrate == "" {
		bitrate = DefaultBitrate
	}

	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("変換コマンドの解析に失敗しました: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("変換コマンドが空です")
	}
	return &Transcoder{argv: args, bitrate: bitrate}, nil
}

// Binary は実行するプログラム名です。
func (t *Transcoder) Binary() string { return t.argv[0] }

// Available は実行ファイルが見つかるかを確認します。
func (t *Transcoder) Available() error {
	_, err := exec.LookPath(t.argv[0])
	return err
}

// ToMP3 は inWav を outMP3 に変換し、出力がデコード可能であることを確認してから配置します。
func (t *Transcoder) ToMP3(ctx context.Context, inWav, outMP3 string) (*MP3Info, error) {
	fail := func(details string, err error, stderr string) error {
		return &ErrTranscode{Input: inWav, Output: outMP3, Details: details, Stderr: stderr, WrappedErr: err}
	}

	bin, err := exec.LookPath(t.argv[0])
	if err != nil {
		return nil, fail(fmt.Sprintf("変換コマンド %q が見つかりません (FFMPEG_PATH で指定できます)", t.argv[0]), err, "")
	}

	tmp := fileutil.TempPath(outMP3)
	defer os.Remove(tmp)

	args := append([]string{}, t.argv[1:]...)
	args = append(args,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inWav,
		"-vn", "-codec:a", "libmp3lame", "-b:a", t.bitrate,
		"-f", "mp3", tmp,
	)

	logger.L.Infow("MP3への変換を開始します", "command", bin, "input", inWav, "bitrate", t.bitrate)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fail("変換コマンドがエラー終了しました", err, tail(stderr.String()))
	}

	info, err := inspect(tmp)
	if err != nil {
		return nil, fail("変換結果をMP3としてデコードできません", err, tail(stderr.String()))
	}
	if err := os.Rename(tmp, outMP3); err != nil {
		return nil, fail("変換結果の配置に失敗しました", err, "")
	}
	info.Path = outMP3

	logger.L.Infow("MP3への変換が完了しました",
		"path", outMP3,
		"sample_rate", info.SampleRate,
		"duration", info.Duration,
		"bytes", info.Size)
	return info, nil
}

// inspect はMP3ファイルのヘッダーを go-mp3 でデコードし、サンプリングレートと長さを求めます。
func inspect(path string) (*MP3Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, fmt.Errorf("出力ファイルが空です")
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	info := &MP3Info{SampleRate: decoder.SampleRate(), Size: st.Size()}
	if length := decoder.Length(); length > 0 && info.SampleRate > 0 {
		frames := length / decodedBytesPerFrame
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		return "..." + s[len(s)-maxStderrBytes:]
	}
	return s
}
