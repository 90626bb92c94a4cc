package ssml2wav

// State はパイプラインのステージです。
//
//	Extracting → Splitting|Reusing → Synthesizing → Assembling → (Transcoding) → Done
//
// いずれかのステージが失敗すると Failed になり、そのステージのエラーを ErrStage として返します。
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateSplitting
	StateReusing
	StateSynthesizing
	StateAssembling
	StateTranscoding
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateExtracting:   "extracting",
	StateSplitting:    "splitting",
	StateReusing:      "reusing",
	StateSynthesizing: "synthesizing",
	StateAssembling:   "assembling",
	StateTranscoding:  "transcoding",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal は s が終了状態かを返します。
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
