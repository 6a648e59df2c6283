// Package archive opens the zip container returned by the sync service and
// streams its gzip members out as decoded log lines.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/ma-dusty/wssApiToSyslogRelay/pkg/timeutil"
)

// Member names look like cloud_12345_20200615120000.log.gz: a fixed prefix
// of 12 characters, then the compact timestamp.
const (
	memberSuffix    = ".gz"
	timestampOffset = 12
)

var (
	// ErrBadContainer marks a body that should hold an archive but does
	// not parse as one. Always worth investigating: the known no-data and
	// poisoned sizes are excluded before this is raised.
	ErrBadContainer = errors.New("response body is not a valid archive")

	// ErrDecode marks a member whose gzip stream cannot be read. The
	// member is skipped; the cycle continues.
	ErrDecode = errors.New("member decompression failed")

	// ErrUnrecognizedMember marks a member entry that is not a compressed
	// log: wrong suffix or no parsable timestamp in the name.
	ErrUnrecognizedMember = errors.New("member is not a compressed log")
)

// Archive is a read-only view over one response body.
type Archive struct {
	// Members are the recognized compressed logs, in container order.
	Members []Member

	// Skipped are entries that were present but not relayable.
	Skipped []SkippedMember
}

// Member is one compressed log inside the archive.
type Member struct {
	Name string

	// Timestamp is embedded in the member name and becomes the checkpoint
	// candidate once the member is fully processed.
	Timestamp time.Time

	file *zip.File
}

// SkippedMember records why an entry was not relayed.
type SkippedMember struct {
	Name string
	Err  error
}

// Open validates the container and classifies its entries. It never reads
// member data; that happens lazily through Member.Open.
func Open(body []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}

	a := &Archive{}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, memberSuffix) {
			a.Skipped = append(a.Skipped, SkippedMember{
				Name: f.Name,
				Err:  fmt.Errorf("%w: name does not end in %s", ErrUnrecognizedMember, memberSuffix),
			})
			continue
		}
		ts, err := memberTimestamp(f.Name)
		if err != nil {
			a.Skipped = append(a.Skipped, SkippedMember{
				Name: f.Name,
				Err:  fmt.Errorf("%w: %v", ErrUnrecognizedMember, err),
			})
			continue
		}
		a.Members = append(a.Members, Member{Name: f.Name, Timestamp: ts, file: f})
	}
	return a, nil
}

// Open returns a streaming decompressing reader over the member. Read
// errors after a successful open surface through the reader wrapped as
// ErrDecode, so a scan loop can classify them without extra plumbing.
func (m *Member) Open() (io.ReadCloser, error) {
	rc, err := m.file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, m.Name, err)
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, m.Name, err)
	}
	return &memberReader{name: m.Name, raw: rc, gz: gz}, nil
}

// CompressedSize reports the stored size of the member, for stats.
func (m *Member) CompressedSize() int64 {
	return int64(m.file.CompressedSize64)
}

func memberTimestamp(name string) (time.Time, error) {
	end := timestampOffset + len(timeutil.CompactLayout)
	if len(name) < end {
		return time.Time{}, errors.New("name too short for an embedded timestamp")
	}
	return timeutil.ParseCompact(name[timestampOffset:end])
}

type memberReader struct {
	name string
	raw  io.ReadCloser
	gz   *gzip.Reader
}

func (r *memberReader) Read(p []byte) (int, error) {
	n, err := r.gz.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %s: %v", ErrDecode, r.name, err)
	}
	return n, err
}

func (r *memberReader) Close() error {
	gzErr := r.gz.Close()
	rawErr := r.raw.Close()
	if gzErr != nil {
		return gzErr
	}
	return rawErr
}
