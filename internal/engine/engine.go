// Package engine implements the inference engine: a pool of executor
// slots, each owning one task queue, that runs forward passes for one
// loaded model.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/devmem"
	"github.com/cambricon/easydk-go/internal/logging"
	"github.com/cambricon/easydk-go/internal/model"
	"github.com/cambricon/easydk-go/internal/taskqueue"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// Backend runs one forward pass. Implementations own the actual
// compute; the engine's job is scheduling and timing, not execution.
type Backend interface {
	Forward(inputs, outputs []*bufsurface.Surface) error
}

// executor is one engine_num slot: one task queue plus the backend
// invocation bound to it.
type executor struct {
	id      int
	queue   *taskqueue.Queue
	backend Backend
}

// Engine is a pool of executor slots bound to one loaded model and device.
type Engine struct {
	deviceID  int
	modelInfo *model.Info
	executors []*executor
	next      atomic.Uint64
	log       *logging.Logger
}

// New creates engineNum executor slots for modelInfo on deviceID, each
// driven by backend.
func New(deviceID int, modelInfo *model.Info, engineNum int, backend Backend) (*Engine, error) {
	if engineNum <= 0 {
		engineNum = 1
	}
	if backend == nil {
		return nil, easydk.NewDeviceError("engine", "create", deviceID, easydk.KindInvalidArg, "backend is required")
	}
	if _, err := devmem.Bind(deviceID); err != nil {
		return nil, easydk.Wrap("engine", "create", err)
	}
	e := &Engine{
		deviceID:  deviceID,
		modelInfo: modelInfo,
		log:       logging.Default().WithComponent("engine").WithDevice(deviceID),
	}
	for i := 0; i < engineNum; i++ {
		e.executors = append(e.executors, &executor{
			id:      i,
			queue:   taskqueue.New(deviceID),
			backend: backend,
		})
	}
	return e, nil
}

// pick round-robins across executors.
func (e *Engine) pick() *executor {
	idx := e.next.Add(1) - 1
	return e.executors[idx%uint64(len(e.executors))]
}

// Run enqueues one forward pass and blocks until the engine's task
// queue reports it complete, returning the measured execution time.
func (e *Engine) Run(ctx context.Context, inputs, outputs []*bufsurface.Surface) (time.Duration, error) {
	ex := e.pick()

	start, err := ex.queue.PlaceMark()
	if err != nil {
		return 0, err
	}
	defer start.Release()

	var runErr error
	if err := ex.queue.Submit(func() {
		runErr = ex.backend.Forward(inputs, outputs)
	}); err != nil {
		return 0, err
	}

	end, err := ex.queue.PlaceMark()
	if err != nil {
		return 0, err
	}
	defer end.Release()

	if err := ex.queue.Sync(ctx); err != nil {
		return 0, err
	}
	if runErr != nil {
		return 0, easydk.NewDeviceError("engine", "run", e.deviceID, easydk.KindBackend, runErr.Error())
	}

	elapsed, err := ex.queue.Elapsed(start, end)
	if err != nil {
		return 0, err
	}
	return elapsed, nil
}

// ExecutorCount returns the number of executor slots in the pool.
func (e *Engine) ExecutorCount() int { return len(e.executors) }

// Close destroys every executor's task queue, waiting for in-flight
// work to drain.
func (e *Engine) Close(ctx context.Context) error {
	for _, ex := range e.executors {
		if err := ex.queue.Destroy(ctx); err != nil {
			return err
		}
	}
	return nil
}
