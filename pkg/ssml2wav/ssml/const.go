package ssml

const (
	// RootTagName はSSML文書のルート要素名です。
	RootTagName = "speak"
	// VoiceTagName は分割の最小単位となるボイス要素名です。
	VoiceTagName = "voice"

	// DefaultMaxVoices は1パートあたりの <voice> 要素数の既定上限です。
	// Azure Speech の1リクエストあたりのボイス数制限に合わせた値。
	DefaultMaxVoices = 48

	byteOrderMark = "\uFEFF"
)
