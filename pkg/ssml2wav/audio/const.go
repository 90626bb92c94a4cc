package audio

import "math"

// ----------------------------------------------------------------------
// WAV ファイル定数 (動的チャンク探索ベース)
// ----------------------------------------------------------------------

const (
	// RIFF 構造の必須サイズ定数
	RiffChunkIDSize   = 4 // "RIFF" チャンクIDのサイズ
	RiffChunkSizeSize = 4 // ファイルサイズフィールドのサイズ
	WaveIDSize        = 4 // "WAVE" 識別子のサイズ

	// 各チャンクヘッダーのサイズ定数
	ChunkIDSize   = 4
	ChunkSizeSize = 4
)

const (
	ChunkHeaderSize   = ChunkIDSize + ChunkSizeSize                      // チャンクヘッダーの合計サイズ (8バイト)
	WavRiffHeaderSize = RiffChunkIDSize + RiffChunkSizeSize + WaveIDSize // RIFFヘッダーの合計サイズ (12バイト)
	PCMFmtChunkSize   = 16                                               // PCM の fmt チャンク本体のサイズ

	// 正規化したPCMヘッダーの合計サイズ (44バイト)
	WavTotalHeaderSize = WavRiffHeaderSize + ChunkHeaderSize + PCMFmtChunkSize + ChunkHeaderSize
)

const (
	// 正規化した44バイトヘッダー内のオフセット
	RiffChunkSizeOffset = RiffChunkIDSize        // RIFFチャンクサイズ (4バイト目)
	DataChunkSizeOffset = WavTotalHeaderSize - 4 // dataチャンクサイズ (40バイト目)
)

const (
	// FormatPCM はリニアPCMを示す fmt チャンクのフォーマットコードです。
	FormatPCM uint16 = 1
	// FormatExtensible は WAVE_FORMAT_EXTENSIBLE のフォーマットコードです。
	FormatExtensible uint16 = 0xFFFE

	// RIFFサイズフィールド (32bit) に収まる data チャンクの最大長
	maxDataSize = math.MaxUint32 - (WavTotalHeaderSize - RiffChunkIDSize - RiffChunkSizeSize)
)
