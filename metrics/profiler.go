// Package metrics carries per-frame timing and the optional process-level
// profiling toggle around the frame driver.
package metrics

import "github.com/pkg/profile"

// Kind selects which pkg/profile backend a Profiler starts.
type Kind string

const (
	None      Kind = "none"
	CPU       Kind = "cpu"
	Memory    Kind = "mem"
	Block     Kind = "block"
	Goroutine Kind = "goroutine"
	Mutex     Kind = "mutex"
	Trace     Kind = "trace"
)

// Profiler unifies process-level profiling behind one start/stop pair, the
// way gioverse-chat's own profile.Profiler unifies Gio's own profiler with
// pkg/profile. This generalization drops the Gio-specific per-frame
// recorder, since there is no window loop here to drive it from, and keeps
// only the process-wide profile.Profile backends.
type Profiler struct {
	starter func(*profile.Profile)
	stopper func()
}

// NewProfiler builds a Profiler for the requested kind. Start is a no-op
// for Kind None or an unrecognized value.
func NewProfiler(kind Kind) *Profiler {
	switch kind {
	case CPU:
		return &Profiler{starter: profile.CPUProfile}
	case Memory:
		return &Profiler{starter: profile.MemProfile}
	case Block:
		return &Profiler{starter: profile.BlockProfile}
	case Goroutine:
		return &Profiler{starter: profile.GoroutineProfile}
	case Mutex:
		return &Profiler{starter: profile.MutexProfile}
	case Trace:
		return &Profiler{starter: profile.TraceProfile}
	default:
		return &Profiler{}
	}
}

// Start begins profiling, if a backend was configured.
func (p *Profiler) Start() {
	if p.starter != nil {
		p.stopper = profile.Start(p.starter).Stop
	}
}

// Stop ends profiling, if it was started.
func (p *Profiler) Stop() {
	if p.stopper != nil {
		p.stopper()
	}
}
