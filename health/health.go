// Package health implements the pull-based liveness probe that replaces
// the actor-based liveness monitor per §9: each worker exposes a status
// atomic byte, and a supervising probe polls every registered worker to
// decide whether the job has finished or crashed.
package health

import (
	"sync"
	"sync/atomic"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/prometheus/client_golang/prometheus"
)

// Status is the lifecycle state of one worker.
type Status int32

const (
	StatusRunning Status = iota
	StatusCompleted
	StatusCrashed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// WorkerStatus is a handle a single worker goroutine uses to publish its
// own status; reads and writes are lock-free.
type WorkerStatus struct {
	coord coord.Coord
	value int32
	gauge prometheus.Gauge
}

// Set publishes a new status for this worker.
func (w *WorkerStatus) Set(s Status) {
	atomic.StoreInt32(&w.value, int32(s))
	if w.gauge != nil {
		w.gauge.Set(float64(s))
	}
}

// Get reads this worker's current status.
func (w *WorkerStatus) Get() Status {
	return Status(atomic.LoadInt32(&w.value))
}

// Registry is the process-wide table of worker statuses for one
// execution, exported as a prometheus gauge per replica so an operator
// can also observe liveness externally.
type Registry struct {
	mu      sync.RWMutex
	workers map[coord.Coord]*WorkerStatus
	gauge   *prometheus.GaugeVec
}

// NewRegistry builds a registry and registers its gauge vector with reg
// (pass prometheus.DefaultRegisterer in production; tests can pass a
// fresh prometheus.NewRegistry()).
func NewRegistry(reg prometheus.Registerer) *Registry {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "renoir_worker_status",
		Help: "Per-replica worker lifecycle status: 0=running, 1=completed, 2=crashed.",
	}, []string{"block_id", "host_id", "replica_id"})
	if reg != nil {
		reg.MustRegister(gauge)
	}
	return &Registry{workers: make(map[coord.Coord]*WorkerStatus), gauge: gauge}
}

// Register creates and stores a status handle for the given replica
// coord, initialized to Running.
func (r *Registry) Register(c coord.Coord) *WorkerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var g prometheus.Gauge
	if r.gauge != nil {
		g = r.gauge.WithLabelValues(labelValues(c)...)
	}
	w := &WorkerStatus{coord: c, gauge: g}
	w.Set(StatusRunning)
	r.workers[c] = w
	return w
}

func labelValues(c coord.Coord) []string {
	return []string{itoa(int(c.BlockID)), itoa(int(c.HostID)), itoa(int(c.ReplicaID))}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Snapshot is a point-in-time read of every registered worker's status.
type Snapshot struct {
	Statuses      map[coord.Coord]Status
	AnyCrashed    bool
	AllTerminated bool // every worker is Completed or Crashed
}

// Probe reads every registered worker's status atomic without blocking
// on any of them, matching §4.2/§5's "status polling" cancellation model.
func (r *Registry) Probe() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{Statuses: make(map[coord.Coord]Status, len(r.workers)), AllTerminated: true}
	for c, w := range r.workers {
		s := w.Get()
		snap.Statuses[c] = s
		if s == StatusRunning {
			snap.AllTerminated = false
		}
		if s == StatusCrashed {
			snap.AnyCrashed = true
		}
	}
	return snap
}
