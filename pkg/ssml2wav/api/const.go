package api

import "time"

const (
	// SynthesisEndpoint はSSMLを受け取り音声を返すエンドポイントです。
	SynthesisEndpoint = "/cognitiveservices/v1"
	// VoicesListEndpoint は利用可能なボイスの一覧を返すエンドポイントです。
	VoicesListEndpoint = "/cognitiveservices/voices/list"

	// DefaultOutputFormat はモノラル・16bit・24kHz のリニアPCM (RIFFヘッダー付き) です。
	DefaultOutputFormat = "riff-24khz-16bit-mono-pcm"
	DefaultUserAgent    = "go-ssml2wav"
	DefaultTimeout      = 120 * time.Second

	regionHostTemplate = "https://%s.tts.speech.microsoft.com"

	headerSubscriptionKey = "Ocp-Apim-Subscription-Key"
	headerOutputFormat    = "X-Microsoft-OutputFormat"
	contentTypeSSML       = "application/ssml+xml"
)
