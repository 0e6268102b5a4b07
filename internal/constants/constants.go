// Package constants collects the tunable defaults shared across
// easydk-go's internal packages.
package constants

import "time"

const (
	// MaxMarksPerQueue is the size of a task queue's mark table.
	// Requesting a 41st live mark fails with Unavailable.
	MaxMarksPerQueue = 40

	// DefaultBufferPoolSize is used when a caller does not specify a
	// buffer surface pool capacity.
	DefaultBufferPoolSize = 8

	// DefaultAlignment is the default plane stride alignment in bytes.
	DefaultAlignment = 64

	// DefaultEngineNum is the default number of inference engines spawned
	// per session when a descriptor leaves EngineNum unset.
	DefaultEngineNum = 1

	// DefaultBatchTimeout is used when a session descriptor leaves
	// BatchTimeout unset, whatever its batch policy.
	DefaultBatchTimeout = 200 * time.Millisecond

	// DefaultModelCacheLimit is the default value of CNIS_MODEL_CACHE_LIMIT
	// when the environment variable is unset or invalid.
	DefaultModelCacheLimit = 3

	// ModelCacheLimitEnv is the environment variable name recognised by
	// the model loader.
	ModelCacheLimitEnv = "CNIS_MODEL_CACHE_LIMIT"

	// PipelineWorkerPollWindow is the poll window pipeline workers use
	// while blocking on their bounded input queue.
	PipelineWorkerPollWindow = 200 * time.Microsecond

	// WaitForStopRecheck is the periodic re-check interval used by
	// wait_for_stop.
	WaitForStopRecheck = 1 * time.Second

	// DefaultNodeQueueDepth bounds a pipeline node's per-worker input queue.
	DefaultNodeQueueDepth = 32

	// BatcherPollInterval bounds how long a session's batcher goroutine
	// sleeps between priority-queue checks when idle; it doubles as the
	// granularity at which batch_timeout_ms is honoured.
	BatcherPollInterval = 500 * time.Microsecond

	// PriorityLevels is the number of priority lanes (0..9) in a
	// session's input queue.
	PriorityLevels = 10

	// DefaultBatchDim is used when a session descriptor leaves BatchDim
	// unset; matches the common single-item default.
	DefaultBatchDim = 1

	// RPSWindow is the rolling window over which a session's per-tag and
	// aggregate request/unit rates are computed.
	RPSWindow = 2 * time.Second
)
