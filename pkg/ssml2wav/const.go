package ssml2wav

import "github.com/shouni/go-ssml2wav/pkg/ssml2wav/partstore"

// ----------------------------------------------------------------------
// 出力ファイル定数
// ----------------------------------------------------------------------

const (
	finalWavSuffix = ".final.wav"
	finalMP3Suffix = ".final.mp3"

	// WavsDirName はパートごとのWAVを保存する out_dir 内のディレクトリ名です。
	WavsDirName = partstore.WavsDirName
)

// 実行モード (journal に記録する値)
const (
	modeSplit = "split"
	modeReuse = "reuse"
)
