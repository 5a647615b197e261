package scheduler

import (
	"sync"

	"github.com/chinifabio/renoir-go/block"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/health"
	"go.uber.org/zap"
)

// Execution is a launched graph: every (block, replica) worker is
// running in its own goroutine, reporting status into Registry.
type Execution struct {
	Registry *health.Registry
	wg       sync.WaitGroup
	errsMu   sync.Mutex
	errs     []error
}

// Wait blocks until every worker goroutine has returned, then reports
// the first panic-wrapped error observed across all of them, if any.
func (ex *Execution) Wait() error {
	ex.wg.Wait()
	ex.errsMu.Lock()
	defer ex.errsMu.Unlock()
	if len(ex.errs) == 0 {
		return nil
	}
	return ex.errs[0]
}

func (ex *Execution) recordErr(err error) {
	ex.errsMu.Lock()
	defer ex.errsMu.Unlock()
	ex.errs = append(ex.errs, err)
}

// Run wires a block arena and launches one worker goroutine per
// (block, replica), per §4.2: each worker pulls its operator chain to
// completion behind a crash-catching guard, ships produced elements to
// its wired outputs, and reports status into opts.Registry so a
// supervisor can poll for completion or crash via Registry.Probe rather
// than relying on a dedicated monitor actor.
func Run(a *block.Arena, opts Options) (*Execution, error) {
	g, err := Wire(a, opts)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeInherit, "wiring block graph")
	}

	registry := opts.Registry
	if registry == nil {
		registry = health.NewRegistry(nil)
	}
	logger := opts.logger()

	ex := &Execution{Registry: registry}

	for _, b := range a.Blocks() {
		n := g.ReplicaCount(b.ID)
		for idx := 0; idx < n; idx++ {
			ctx := g.Context(b.ID, idx)
			ctx.Meta = coord.ExecutionMetadata{
				Coord: coord.Coord{
					BlockID:   b.ID,
					HostID:    opts.hostForReplica(idx),
					ReplicaID: coord.ReplicaID(idx),
				},
				Parallelism: n,
				Fingerprint: coord.NewFingerprint(),
			}
			status := registry.Register(ctx.Meta.Coord)

			ex.wg.Add(1)
			go runWorker(ex, b, ctx, status, logger)
		}
	}

	return ex, nil
}

// runWorker pulls one replica's materialized operator chain to
// Terminate, shipping every produced element to the block's wired
// outputs and recovering from any panic so one crashed replica cannot
// take the process down with it.
func runWorker(ex *Execution, b *block.Block, ctx block.BlockContext, status *health.WorkerStatus, logger *zap.Logger) {
	defer ex.wg.Done()
	coordID := ctx.Meta.Coord

	defer func() {
		if r := recover(); r != nil {
			status.Set(health.StatusCrashed)
			err := errs.Newf(errs.CodePanic, "replica %s panicked: %v", coordID, r)
			logger.Error("worker panicked", zap.Stringer("coord", coordID), zap.Any("recover", r))
			ex.recordErr(err)
		}
	}()

	op := b.Materialize(ctx)
	op.Setup(ctx.Meta)

	for {
		e := op.Next()
		for _, out := range ctx.Outputs {
			out.Send(e)
		}
		if e.Tag() == element.TagTerminate {
			break
		}
	}

	for _, out := range ctx.Outputs {
		out.Close()
	}
	status.Set(health.StatusCompleted)
	logger.Debug("worker completed", zap.Stringer("coord", coordID))
}
