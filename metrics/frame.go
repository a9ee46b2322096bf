package metrics

import "time"

// FrameMetrics reports per-phase timing for one frame, handed back to the
// embedder alongside the composited scene.
type FrameMetrics struct {
	BuildTime     time.Duration
	SyncBuildTime time.Duration
	LayoutTime    time.Duration
	PaintTime     time.Duration
	CompositeTime time.Duration
	FrameTime     time.Duration
}

// Stopwatch accumulates a single phase's elapsed time across possibly
// several start/stop spans within one frame (e.g. layout may run in
// several DFS passes pruned by relayout boundaries).
type Stopwatch struct {
	start   time.Time
	elapsed time.Duration
}

// Start begins timing a span.
func (s *Stopwatch) Start() { s.start = time.Now() }

// Stop ends the current span and adds its duration to the accumulated
// total.
func (s *Stopwatch) Stop() { s.elapsed += time.Since(s.start) }

// Elapsed returns the accumulated duration across every Start/Stop span.
func (s *Stopwatch) Elapsed() time.Duration { return s.elapsed }
