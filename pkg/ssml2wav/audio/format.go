package audio

import (
	"fmt"
	"time"
)

// Format はWAVのサンプル形式です。
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// PCM24kMono16 は合成リクエストで指定する既定の形式 (riff-24khz-16bit-mono-pcm) です。
var PCM24kMono16 = Format{
	AudioFormat:   FormatPCM,
	Channels:      1,
	SampleRate:    24000,
	BitsPerSample: 16,
}

// BlockAlign は1サンプルフレームのバイト数です。
func (f Format) BlockAlign() uint16 {
	return f.Channels * ((f.BitsPerSample + 7) / 8)
}

// ByteRate は1秒あたりのバイト数です。
func (f Format) ByteRate() uint32 {
	return f.SampleRate * uint32(f.BlockAlign())
}

// Compatible はサンプルデータをそのまま連結できる形式かを判定します。
// フォーマットコードの違い (PCM と EXTENSIBLE) は問いません。
func (f Format) Compatible(other Format) bool {
	return f.Channels == other.Channels &&
		f.SampleRate == other.SampleRate &&
		f.BitsPerSample == other.BitsPerSample
}

// Duration は dataSize バイトの再生時間を返します。
func (f Format) Duration(dataSize int64) time.Duration {
	rate := f.ByteRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(dataSize) * time.Second / time.Duration(rate)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", f.SampleRate, f.BitsPerSample, f.Channels)
}
