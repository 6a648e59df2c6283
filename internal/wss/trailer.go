package wss

import (
	"bytes"
	"errors"
	"fmt"
)

// InitialToken is the token value sent before the service has issued one.
const InitialToken = "none"

// Trailer markers as they appear at the tail of a 200 body.
const (
	tokenMarker  = "X-sync-token: "
	statusMarker = "X-sync-status: "

	// statusLen is the fixed width of the wire status ("done", "more", "abor").
	statusLen = 4

	// lineBreak ends both trailer lines: one CRLF separates the token line
	// from the status line, another closes the status line.
	lineBreak = "\r\n"
)

// Sentinel errors for trailer parsing and protocol classification.
var (
	// ErrNetwork marks transport-level failures (DNS, reset, timeout).
	ErrNetwork = errors.New("network failure")

	// ErrBadTrailer marks a 200 body whose tail does not carry the two
	// expected sync markers.
	ErrBadTrailer = errors.New("malformed sync trailer")

	// ErrPoisonedBody marks the known server anomaly where a body of one
	// exact size is a partial archive that can never be completed under
	// the current token. The only recovery is a token reset.
	ErrPoisonedBody = errors.New("poisoned partial archive")

	// ErrAuth marks 401/403 responses.
	ErrAuth = errors.New("credentials rejected")

	// ErrTokenInvalid marks 410 responses: the token has expired upstream.
	ErrTokenInvalid = errors.New("sync token no longer valid")

	// ErrRateLimited marks 429 responses.
	ErrRateLimited = errors.New("rate limited")

	// ErrServer marks 500/503 responses.
	ErrServer = errors.New("server error")
)

// SyncStatus is the trailer's verdict on the current token.
type SyncStatus string

const (
	// StatusMore means more archives are immediately available under the
	// new token.
	StatusMore SyncStatus = "more"

	// StatusDone means the service has no further data for the range right
	// now.
	StatusDone SyncStatus = "done"

	// StatusAbort means the service gave up on this download server-side.
	StatusAbort SyncStatus = "abort"
)

// Trailer is the metadata appended after the archive bytes of a 200 body.
type Trailer struct {
	Token  string
	Status SyncStatus
}

// Limits holds the empirically observed sizes of the sync protocol. None of
// them are contractual; they are configurable so a vendor-side change does
// not require a new build.
type Limits struct {
	// TrailerWindow bounds how far from the end of the body the markers
	// are searched for.
	TrailerWindow int

	// MaxTokenLen bounds the parsed token; anything longer means the
	// markers matched garbage.
	MaxTokenLen int

	// TrailerOnlySizes are total body lengths of valid "no data" responses
	// that consist of the trailer alone.
	TrailerOnlySizes []int

	// PoisonedBodySize is the exact body length of the known unusable
	// partial-archive anomaly.
	PoisonedBodySize int
}

// DefaultLimits returns the sizes observed from the production service.
func DefaultLimits() Limits {
	return Limits{
		TrailerWindow:    150,
		MaxTokenLen:      68,
		TrailerOnlySizes: []int{41, 105},
		PoisonedBodySize: 203,
	}
}

// TrailerOnly reports whether a body of n bytes is one of the known
// trailer-only "no data" responses.
func (l Limits) TrailerOnly(n int) bool {
	for _, s := range l.TrailerOnlySizes {
		if n == s {
			return true
		}
	}
	return false
}

// Poisoned reports whether a body of n bytes is the unusable partial-archive
// anomaly.
func (l Limits) Poisoned(n int) bool {
	return l.PoisonedBodySize > 0 && n == l.PoisonedBodySize
}

// ParseTrailer extracts the token and status appended to a 200 body:
// "X-sync-token: <token>\r\nX-sync-status: <stat>\r\n". The poisoned-size
// check runs first: that anomaly must win no matter what the trailer bytes
// happen to say.
func ParseTrailer(body []byte, lim Limits) (Trailer, error) {
	if lim.Poisoned(len(body)) {
		return Trailer{}, fmt.Errorf("%w: body is exactly %d bytes", ErrPoisonedBody, len(body))
	}

	tail := body
	if lim.TrailerWindow > 0 && len(tail) > lim.TrailerWindow {
		tail = tail[len(tail)-lim.TrailerWindow:]
	}

	posToken := bytes.Index(tail, []byte(tokenMarker))
	posStatus := bytes.Index(tail, []byte(statusMarker))
	if posToken < 0 || posStatus < 0 {
		return Trailer{}, fmt.Errorf("%w: markers not found in final %d bytes", ErrBadTrailer, len(tail))
	}

	tokenStart := posToken + len(tokenMarker)
	tokenEnd := posStatus - len(lineBreak)
	if tokenEnd < tokenStart || string(tail[tokenEnd:posStatus]) != lineBreak {
		return Trailer{}, fmt.Errorf("%w: token and status lines not CRLF separated", ErrBadTrailer)
	}
	if bytes.ContainsAny(tail[tokenStart:tokenEnd], lineBreak) {
		return Trailer{}, fmt.Errorf("%w: token spans multiple lines", ErrBadTrailer)
	}
	token := string(tail[tokenStart:tokenEnd])
	if lim.MaxTokenLen > 0 && len(token) > lim.MaxTokenLen {
		return Trailer{}, fmt.Errorf("%w: token is %d bytes, limit %d", ErrBadTrailer, len(token), lim.MaxTokenLen)
	}

	statusStart := posStatus + len(statusMarker)
	if statusStart+statusLen > len(tail) {
		return Trailer{}, fmt.Errorf("%w: status truncated", ErrBadTrailer)
	}
	status, err := parseStatus(string(tail[statusStart : statusStart+statusLen]))
	if err != nil {
		return Trailer{}, err
	}

	return Trailer{Token: token, Status: status}, nil
}

func parseStatus(s string) (SyncStatus, error) {
	switch s {
	case "done":
		return StatusDone, nil
	case "more":
		return StatusMore, nil
	case "abor": // "abort" truncated to the fixed wire width
		return StatusAbort, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrBadTrailer, s)
	}
}

// ClassifyStatus maps a non-200 HTTP status to the protocol error category.
// It returns nil for 200; callers decide what a nil classification means for
// the body they hold.
func ClassifyStatus(code int) error {
	switch code {
	case 200:
		return nil
	case 400:
		return errors.New("HTTP 400: service rejected the request parameters")
	case 401, 403:
		return fmt.Errorf("%w: HTTP %d", ErrAuth, code)
	case 410:
		return fmt.Errorf("%w: HTTP 410", ErrTokenInvalid)
	case 429:
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	case 500, 503:
		return fmt.Errorf("%w: HTTP %d", ErrServer, code)
	default:
		return fmt.Errorf("unrecognized HTTP status %d", code)
	}
}
