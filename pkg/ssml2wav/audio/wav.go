package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// Info はWAVファイル内のサンプル形式と data チャンクの位置です。
type Info struct {
	Format     Format
	DataOffset int64 // data チャンク本体の開始位置
	DataSize   int64
}

// Duration は data チャンクの再生時間です。
func (i *Info) Duration() time.Duration {
	return i.Format.Duration(i.DataSize)
}

// ----------------------------------------------------------------------
// 読み込み
// ----------------------------------------------------------------------

// ParseInfo はWAVバイト列のヘッダーを解析します。index はエラー表示用のパート番号です。
func ParseInfo(wavBytes []byte, index int) (*Info, error) {
	return ReadInfo(bytes.NewReader(wavBytes), int64(len(wavBytes)), index)
}

// OpenInfo はWAVファイルを開いてヘッダーを解析します。
func OpenInfo(path string, index int) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("WAVファイルを開けません (%s): %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("WAVファイルの情報を取得できません (%s): %w", path, err)
	}
	return ReadInfo(f, st.Size(), index)
}

// ReadInfo は RIFF チャンクを順に辿り、fmt チャンクと data チャンクを探します。
// LIST などのメタデータチャンクは読み飛ばします。
func ReadInfo(r io.ReaderAt, size int64, index int) (*Info, error) {
	invalid := func(format string, args ...any) error {
		return &ErrInvalidWAVHeader{Index: index, Details: fmt.Sprintf(format, args...)}
	}

	// RIFFヘッダー (12バイト: RIFF + file size + WAVE) の存在確認
	if size < WavRiffHeaderSize {
		return nil, invalid("WAVファイルサイズが短すぎます (RIFFヘッダー不足: %dバイト)", size)
	}
	header := make([]byte, WavRiffHeaderSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, invalid("RIFFヘッダーを読み込めません: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, invalid("RIFF/WAVE 識別子がありません")
	}

	var (
		format    Format
		fmtFound  bool
		offset    = int64(WavRiffHeaderSize)
		chunkHead = make([]byte, ChunkHeaderSize)
	)

	// ファイル終端まで、または data チャンクが見つかるまでループ
	for offset+ChunkHeaderSize <= size {
		if _, err := r.ReadAt(chunkHead, offset); err != nil {
			return nil, invalid("チャンクヘッダーを読み込めません (offset %d): %v", offset, err)
		}
		chunkID := string(chunkHead[:ChunkIDSize])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHead[ChunkIDSize:]))
		body := offset + ChunkHeaderSize

		switch chunkID {
		case "fmt ":
			if chunkSize < PCMFmtChunkSize || body+chunkSize > size {
				return nil, invalid("fmt チャンクのサイズが不正です (%dバイト)", chunkSize)
			}
			buf := make([]byte, PCMFmtChunkSize)
			if _, err := r.ReadAt(buf, body); err != nil {
				return nil, invalid("fmt チャンクを読み込めません: %v", err)
			}
			format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(buf[0:2]),
				Channels:      binary.LittleEndian.Uint16(buf[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(buf[4:8]),
				BitsPerSample: binary.LittleEndian.Uint16(buf[14:16]),
			}
			if format.AudioFormat != FormatPCM && format.AudioFormat != FormatExtensible {
				return nil, invalid("リニアPCM以外の形式には対応していません (format=%d)", format.AudioFormat)
			}
			if format.Channels == 0 || format.SampleRate == 0 || format.BitsPerSample == 0 {
				return nil, invalid("fmt チャンクの値が不正です (%s)", format)
			}
			fmtFound = true

		case "data":
			if !fmtFound {
				return nil, invalid("data チャンクが fmt チャンクより前にあります")
			}
			if body+chunkSize > size {
				return nil, invalid("dataチャンクのデータ長 (%d) がファイルサイズを超過しています", chunkSize)
			}
			return &Info{Format: format, DataOffset: body, DataSize: chunkSize}, nil
		}

		// data チャンクでない場合 (LIST, fact など) はスキップ
		offset = body + chunkSize
		// パディングバイトの考慮 (奇数長のチャンクデータの後)
		if chunkSize%2 != 0 {
			offset++
		}
	}

	return nil, invalid("WAVファイル内に 'data' チャンクが見つかりませんでした")
}

// ----------------------------------------------------------------------
// 書き込み
// ----------------------------------------------------------------------

// WriteHeader は正規化した44バイトのPCM WAVヘッダーを書き込みます。
func WriteHeader(w io.Writer, f Format, dataSize int64) error {
	if dataSize < 0 || dataSize > maxDataSize {
		return &ErrDataTooLarge{Size: dataSize}
	}

	header := make([]byte, WavTotalHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[RiffChunkSizeOffset:], uint32(dataSize)+WavTotalHeaderSize-RiffChunkIDSize-RiffChunkSizeSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], PCMFmtChunkSize)
	binary.LittleEndian.PutUint16(header[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], f.Channels)
	binary.LittleEndian.PutUint32(header[24:28], f.SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], f.ByteRate())
	binary.LittleEndian.PutUint16(header[32:34], f.BlockAlign())
	binary.LittleEndian.PutUint16(header[34:36], f.BitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[DataChunkSizeOffset:], uint32(dataSize))

	_, err := w.Write(header)
	return err
}

// Encode はPCMサンプル列から完全なWAVバイト列を生成します。
func Encode(f Format, pcm []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(WavTotalHeaderSize + len(pcm))
	if err := WriteHeader(&buf, f, int64(len(pcm))); err != nil {
		return nil, err
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// ReadPCM は Info が指す data チャンクの本体を返します。
func ReadPCM(r io.ReaderAt, info *Info) ([]byte, error) {
	pcm := make([]byte, info.DataSize)
	if len(pcm) == 0 {
		return pcm, nil
	}
	if _, err := r.ReadAt(pcm, info.DataOffset); err != nil {
		return nil, err
	}
	return pcm, nil
}
