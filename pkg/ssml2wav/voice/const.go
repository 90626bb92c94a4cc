package voice

const (
	// loadContext はボイス一覧ロード時のエラー表示に使う文脈名です。
	loadContext = "ボイス一覧ロード時"

	// StatusGA は一般提供中のボイスを示す Status 値です。
	StatusGA = "GA"
)
