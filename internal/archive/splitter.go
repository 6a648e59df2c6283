package archive

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultMaxLineBytes bounds the scan for a line terminator. The
	// longest vendor line seen in production is around 18,000 bytes, but
	// line lengths are not contractual, so the bound stays configurable.
	DefaultMaxLineBytes = 25000

	initialScanBuf = 64 * 1024

	// maxLeadingFields is the bounded split of a data line: tenant id,
	// date, time, appliance name, one spare, then the rest verbatim.
	maxLeadingFields = 6
)

// Splitter yields decoded log lines from a decompressing member stream.
// The terminator search runs over the raw single-byte vendor encoding; each
// line is decoded from ISO 8859-15 only after its bounds are known.
type Splitter struct {
	sc  *bufio.Scanner
	dec *encoding.Decoder
}

// NewSplitter wraps a member reader. maxLineBytes <= 0 selects the default.
func NewSplitter(r io.Reader, maxLineBytes int) *Splitter {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	// The scanner treats the larger of cap(buf) and max as the real
	// bound, so the initial buffer must never exceed maxLineBytes.
	initial := initialScanBuf
	if initial > maxLineBytes {
		initial = maxLineBytes
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initial), maxLineBytes)
	return &Splitter{sc: sc, dec: charmap.ISO8859_15.NewDecoder()}
}

// Scan advances to the next line. It returns false at end of stream or on
// error; check Err afterwards.
func (s *Splitter) Scan() bool {
	return s.sc.Scan()
}

// Err reports the first error hit by Scan. bufio.ErrTooLong means a line
// exceeded the configured bound; decompression failures arrive wrapped as
// ErrDecode by the member reader.
func (s *Splitter) Err() error {
	return s.sc.Err()
}

// Line classifies and decodes the current line.
func (s *Splitter) Line() Line {
	decoded, err := s.dec.String(s.sc.Text())
	if err != nil {
		// ISO 8859-15 defines all 256 byte values, so this cannot
		// happen; keep the raw bytes if it somehow does.
		decoded = s.sc.Text()
	}
	return ParseLine(decoded)
}

// Line is one decoded log line.
type Line struct {
	Raw string

	// Comment marks vendor commentary ('#' first). It goes to the
	// operational log, never to the sink.
	Comment bool

	// Malformed marks a data line without the leading fields the envelope
	// needs. Logged and skipped; never aborts the member.
	Malformed bool

	TenantID  string
	Date      string // vendor form, YYYY-MM-DD
	Time      string // passes through unchanged
	Appliance string
}

// ParseLine splits a decoded line into its classification and leading fields.
func ParseLine(raw string) Line {
	if strings.HasPrefix(raw, "#") {
		return Line{Raw: raw, Comment: true}
	}

	fields := strings.SplitN(raw, " ", maxLeadingFields)
	if len(fields) < 3 {
		return Line{Raw: raw, Malformed: true}
	}

	l := Line{
		Raw:      raw,
		TenantID: fields[0],
		Date:     fields[1],
		Time:     fields[2],
	}
	if len(fields) > 3 {
		l.Appliance = fields[3]
	}
	return l
}

// Envelope builds the outbound header for a data line:
// "mmm dd hh:mm:ss hostIdentifier-tenantID".
func (l Line) Envelope(hostIdentifier string) (string, error) {
	d, err := EnvelopeDate(l.Date)
	if err != nil {
		return "", err
	}
	return d + " " + l.Time + " " + hostIdentifier + "-" + l.TenantID, nil
}

// EnvelopeDate reformats the vendor date (2020-06-15) into the fixed
// three-letter-month form of the envelope (Jun 15).
func EnvelopeDate(vendorDate string) (string, error) {
	t, err := time.Parse("2006-01-02", vendorDate)
	if err != nil {
		return "", fmt.Errorf("line date %q is not YYYY-MM-DD: %w", vendorDate, err)
	}
	return t.Format("Jan 02"), nil
}
