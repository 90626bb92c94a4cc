package partstore

const (
	// PartsDirName は出力ディレクトリ内のパートファイル置き場です。
	PartsDirName = "parts"
	// WavsDirName は出力ディレクトリ内のパートごとのWAV置き場です。
	WavsDirName = "wavs"

	partExt = ".ssml"
	wavExt  = ".wav"

	// ファイル名の通し番号の最小桁数
	minIndexWidth = 2
)
