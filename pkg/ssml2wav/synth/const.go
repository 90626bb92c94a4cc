package synth

import "time"

const (
	// DefaultMaxAttempts は1パートあたりの最大試行回数です (初回 + 再試行2回)。
	DefaultMaxAttempts = 3
	// DefaultBaseDelay は再試行前の待機時間の単位です。n 回目の失敗後は BaseDelay × n 待機します。
	DefaultBaseDelay = 1500 * time.Millisecond
	// DefaultMaxDelay は再試行前の待機時間の上限です。
	DefaultMaxDelay = 30 * time.Second
	// DefaultAttemptTimeout は1回のリクエストのタイムアウトです。
	DefaultAttemptTimeout = 300 * time.Second
	// DefaultWorkers は並列に合成するパート数の既定値です。
	DefaultWorkers = 1
)
