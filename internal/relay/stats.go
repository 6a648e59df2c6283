package relay

import (
	"fmt"
	"time"
)

// Stats accumulates run counters. The loop updates them single-threaded;
// readers outside the loop should treat them as a snapshot.
type Stats struct {
	Cycles    int64
	Members   int64
	Lines     int64
	Comments  int64
	Malformed int64
	Deduped   int64

	started time.Time
}

func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// Elapsed is the wall time since the run began.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.started)
}

// Rate returns thousands of relayed lines per second over the whole run.
func (s *Stats) Rate() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Lines) / secs / 1000
}

// Summary renders a one-line digest for shutdown and checkpoint logs.
func (s *Stats) Summary() string {
	return fmt.Sprintf("cycles=%d members=%d lines=%d malformed=%d deduped=%d rate=%.1fK lines/s",
		s.Cycles, s.Members, s.Lines, s.Malformed, s.Deduped, s.Rate())
}
