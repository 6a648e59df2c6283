// Package relay drives the sync cycle: request, process, decide, persist,
// sleep. The decision logic is a pure function over an immutable cursor so
// every branch of the protocol is testable without I/O.
package relay

import (
	"fmt"
	"time"

	"github.com/ma-dusty/wssApiToSyslogRelay/internal/wss"
	"github.com/ma-dusty/wssApiToSyslogRelay/pkg/timeutil"
)

// Cursor identifies where the next sync request resumes. It is a plain
// value: every state transition produces a new Cursor, nothing mutates one
// in place.
type Cursor struct {
	// StartTime is epoch ms. The wire request floors it to the hour; the
	// cursor itself keeps full resolution so checkpoints stay exact.
	StartTime int64

	// EndTime is epoch ms, or 0 for "unbounded, keep polling forever".
	EndTime int64

	// Token is the opaque resumption handle, wss.InitialToken before the
	// service has issued one.
	Token string
}

// NewCursor builds a starting cursor with no token yet.
func NewCursor(startMS, endMS int64) Cursor {
	return Cursor{StartTime: startMS, EndTime: endMS, Token: wss.InitialToken}
}

// Bounded reports whether the cursor has an end date.
func (c Cursor) Bounded() bool {
	return c.EndTime != 0
}

// WithToken returns a copy carrying the given token.
func (c Cursor) WithToken(token string) Cursor {
	c.Token = token
	return c
}

// WithStart returns a copy with an advanced checkpoint.
func (c Cursor) WithStart(ms int64) Cursor {
	c.StartTime = ms
	return c
}

// Reset returns a copy with the token cleared back to the initial value.
// The start time stays at the last checkpoint, so a reset re-covers only
// the window since the last fully processed member.
func (c Cursor) Reset() Cursor {
	c.Token = wss.InitialToken
	return c
}

// Validate enforces the range rules before the first request.
func (c Cursor) Validate(now time.Time) error {
	if c.StartTime < 0 {
		return fmt.Errorf("start time %d is negative", c.StartTime)
	}
	if c.EndTime == 0 {
		return nil
	}
	if c.EndTime < c.StartTime {
		return fmt.Errorf("end time %s is before start time %s",
			timeutil.FromMillis(c.EndTime), timeutil.FromMillis(c.StartTime))
	}
	if timeutil.FromMillis(c.EndTime).After(now) {
		return fmt.Errorf("end time %s is in the future", timeutil.FromMillis(c.EndTime))
	}
	return nil
}

// String renders the cursor for logs.
func (c Cursor) String() string {
	end := "unbounded"
	if c.Bounded() {
		end = timeutil.FromMillis(c.EndTime).Format(time.RFC3339)
	}
	return fmt.Sprintf("start=%s end=%s token=%s",
		timeutil.FromMillis(c.StartTime).Format(time.RFC3339), end, c.Token)
}
