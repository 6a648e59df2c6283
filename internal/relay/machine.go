package relay

import (
	"fmt"
	"time"

	"github.com/ma-dusty/wssApiToSyslogRelay/internal/wss"
)

// Action is what the loop does once a cycle has been decided.
type Action int

const (
	// ActionImmediateRepeat requests again with at most the configured
	// more-data pause (zero by default).
	ActionImmediateRepeat Action = iota

	// ActionSleepThenRepeat waits out the decision's delay first.
	ActionSleepThenRepeat

	// ActionResetAndRepeat clears the token back to the initial value and
	// requests again from the last checkpoint without delay.
	ActionResetAndRepeat

	// ActionTerminate ends the run: a bounded range is fully satisfied.
	ActionTerminate
)

func (a Action) String() string {
	switch a {
	case ActionImmediateRepeat:
		return "repeat"
	case ActionSleepThenRepeat:
		return "sleep then repeat"
	case ActionResetAndRepeat:
		return "reset token and repeat"
	case ActionTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Delays are the configured inter-cycle pauses.
type Delays struct {
	// Idle applies when the service reports no more data for now.
	Idle time.Duration

	// More applies between back-to-back downloads while data remains.
	More time.Duration

	// Error applies after any failed cycle.
	Error time.Duration
}

// DefaultDelays mirrors the pause timings the relay has always shipped with.
func DefaultDelays() Delays {
	return Delays{
		Idle:  30 * time.Second,
		More:  0,
		Error: 10 * time.Minute,
	}
}

// retryAfterPadding is added to the server's Retry-After value so the next
// request lands safely past the window.
const retryAfterPadding = 2 * time.Second

// Outcome is the classified result of one request-and-process step. The
// loop fills it in; Decide consumes it without touching the network.
type Outcome struct {
	// NetworkErr is set when the request never yielded a response.
	NetworkErr error

	StatusCode int
	BodyLen    int

	// Poisoned marks the known partial-archive body size.
	Poisoned bool

	// Trailer is valid only when TrailerOK is set.
	Trailer   wss.Trailer
	TrailerOK bool

	// RetryAfter carries the server backoff from a 429, when parsable.
	RetryAfter   time.Duration
	RetryAfterOK bool

	// ArchiveErr is set when a 200 body that should hold an archive did
	// not parse as one.
	ArchiveErr error

	// ProcessedMembers counts members fully relayed this cycle.
	ProcessedMembers int

	// LastMemberTS is the embedded timestamp (epoch ms) of the last
	// successfully processed member, 0 when the cycle had none.
	LastMemberTS int64
}

// Decision is the machine's verdict for one cycle.
type Decision struct {
	Action Action
	Delay  time.Duration
	Next   Cursor
	Reason string

	// Critical asks the loop to log the reason at the investigation level.
	Critical bool
}

// Decide implements the sync decision table over (status code, trailer
// status, token equality, end-date presence). It is pure: no I/O, no clock,
// no mutation of prev.
func Decide(prev Cursor, out Outcome, d Delays) Decision {
	if out.NetworkErr != nil {
		return Decision{
			Action: ActionSleepThenRepeat,
			Delay:  d.Error,
			Next:   prev,
			Reason: fmt.Sprintf("network failure: %v", out.NetworkErr),
		}
	}

	// The poisoned body wins over everything else in the response: the
	// current token can never produce a complete archive again.
	if out.Poisoned {
		return Decision{
			Action: ActionResetAndRepeat,
			Next:   prev.Reset(),
			Reason: fmt.Sprintf("poisoned partial archive (%d bytes); resetting token", out.BodyLen),
		}
	}

	switch out.StatusCode {
	case 200:
		return decide200(prev, out, d)
	case 400:
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   "service rejected the request as malformed (HTTP 400)",
			Critical: true,
		}
	case 401, 403:
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   fmt.Sprintf("credentials rejected (HTTP %d); fix the API username/password", out.StatusCode),
			Critical: true,
		}
	case 410:
		return Decision{
			Action: ActionResetAndRepeat,
			Next:   prev.Reset(),
			Reason: "token expired upstream (HTTP 410); resetting to the last checkpoint",
		}
	case 429:
		if out.RetryAfterOK {
			return Decision{
				Action: ActionSleepThenRepeat,
				Delay:  out.RetryAfter + retryAfterPadding,
				Next:   prev,
				Reason: fmt.Sprintf("rate limited; honoring Retry-After of %s", out.RetryAfter),
			}
		}
		return Decision{
			Action: ActionSleepThenRepeat,
			Delay:  d.Error,
			Next:   prev,
			Reason: "rate limited without a usable Retry-After header",
		}
	case 500, 503:
		return Decision{
			Action: ActionSleepThenRepeat,
			Delay:  d.Error,
			Next:   prev,
			Reason: fmt.Sprintf("server error (HTTP %d)", out.StatusCode),
		}
	default:
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   fmt.Sprintf("unrecognized HTTP status %d", out.StatusCode),
			Critical: true,
		}
	}
}

func decide200(prev Cursor, out Outcome, d Delays) Decision {
	if out.ArchiveErr != nil {
		// The token is deliberately not adopted: nothing from this cycle
		// is trusted.
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   fmt.Sprintf("unreadable archive in a %d byte body: %v", out.BodyLen, out.ArchiveErr),
			Critical: true,
		}
	}
	if !out.TrailerOK {
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   fmt.Sprintf("200 response without a parsable trailer (%d bytes)", out.BodyLen),
			Critical: true,
		}
	}

	switch out.Trailer.Status {
	case wss.StatusMore:
		next := advance(prev, out)
		if out.Trailer.Token != "" {
			next = next.WithToken(out.Trailer.Token)
		}
		return Decision{
			Action: ActionImmediateRepeat,
			Delay:  d.More,
			Next:   next,
			Reason: "more data available",
		}

	case wss.StatusAbort:
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   "service aborted the download server-side",
			Critical: true,
		}

	case wss.StatusDone:
		// An empty trailer token means "no new token", never a change.
		tokenChanged := out.Trailer.Token != "" && out.Trailer.Token != prev.Token
		next := advance(prev, out)
		if tokenChanged {
			next = next.WithToken(out.Trailer.Token)
		}
		if prev.Bounded() {
			reason := "bounded range fully satisfied, no data found"
			if tokenChanged || out.ProcessedMembers > 0 {
				reason = "bounded range fully satisfied"
			}
			return Decision{Action: ActionTerminate, Next: next, Reason: reason}
		}
		return Decision{
			Action: ActionSleepThenRepeat,
			Delay:  d.Idle,
			Next:   next,
			Reason: "no more data available for now",
		}

	default:
		return Decision{
			Action:   ActionSleepThenRepeat,
			Delay:    d.Error,
			Next:     prev,
			Reason:   fmt.Sprintf("unrecognized trailer status %q", out.Trailer.Status),
			Critical: true,
		}
	}
}

// advance moves the checkpoint to the last successfully processed member.
// With no members this cycle, the checkpoint stays put.
func advance(prev Cursor, out Outcome) Cursor {
	if out.LastMemberTS > 0 {
		return prev.WithStart(out.LastMemberTS)
	}
	return prev
}
