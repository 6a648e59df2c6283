package sink

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultSyslogPort is used when the destination URI carries no port.
const DefaultSyslogPort = "514"

// RFC 3164 facility and severity codes. PRI = facility*8 + severity.
var facilities = map[string]int{
	"kern":     0,
	"user":     1,
	"mail":     2,
	"daemon":   3,
	"auth":     4,
	"syslog":   5,
	"lpr":      6,
	"news":     7,
	"uucp":     8,
	"cron":     9,
	"authpriv": 10,
	"ftp":      11,
	"local0":   16,
	"local1":   17,
	"local2":   18,
	"local3":   19,
	"local4":   20,
	"local5":   21,
	"local6":   22,
	"local7":   23,
}

var severities = map[string]int{
	"emerg":   0,
	"alert":   1,
	"crit":    2,
	"err":     3,
	"error":   3,
	"warn":    4,
	"warning": 4,
	"notice":  5,
	"info":    6,
	"debug":   7,
}

func init() {
	Register("syslog", openSyslog)
}

// SyslogSink sends each record as one UDP datagram in BSD syslog framing:
// the PRI header followed by the record's envelope and raw line. Datagrams
// go out in Accept order; there is no buffering to flush.
type SyslogSink struct {
	conn net.Conn
	pri  []byte
}

// openSyslog is the Opener for the syslog scheme. Defaults to user.info.
func openSyslog(u *url.URL, _ OpenOptions) (Sink, error) {
	if u.Hostname() == "" {
		return nil, fmt.Errorf("syslog URI requires a host (e.g., syslog://collector:514)")
	}

	address := u.Host
	if u.Port() == "" {
		address = net.JoinHostPort(u.Hostname(), DefaultSyslogPort)
	}

	facility := facilities["user"]
	if v := u.Query().Get("facility"); v != "" {
		f, ok := facilities[strings.ToLower(v)]
		if !ok {
			return nil, fmt.Errorf("unknown syslog facility %q", v)
		}
		facility = f
	}

	severity := severities["info"]
	if v := u.Query().Get("severity"); v != "" {
		s, ok := severities[strings.ToLower(v)]
		if !ok {
			return nil, fmt.Errorf("unknown syslog severity %q", v)
		}
		severity = s
	}

	return NewSyslogSink(address, facility, severity)
}

// NewSyslogSink dials the given UDP address and stamps every record with
// the PRI computed from facility and severity.
func NewSyslogSink(address string, facility, severity int) (*SyslogSink, error) {
	conn, err := net.Dial("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve syslog destination %s: %w", address, err)
	}
	return &SyslogSink{
		conn: conn,
		pri:  []byte(fmt.Sprintf("<%d>", facility*8+severity)),
	}, nil
}

func (s *SyslogSink) Accept(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := make([]byte, 0, len(s.pri)+len(rec.Envelope)+1+len(rec.Raw))
	msg = append(msg, s.pri...)
	msg = append(msg, rec.Envelope...)
	msg = append(msg, ' ')
	msg = append(msg, rec.Raw...)

	if _, err := s.conn.Write(msg); err != nil {
		return fmt.Errorf("syslog send failed: %w", err)
	}
	return nil
}

func (s *SyslogSink) Flush(context.Context) error {
	return nil
}

func (s *SyslogSink) Close() error {
	return s.conn.Close()
}

// SyslogWriter adapts a syslog destination to io.WriteCloser so the relay's
// own log output can be teed to a collector. Each written line becomes one
// daemon-facility datagram.
type SyslogWriter struct {
	conn net.Conn
	pri  []byte
}

// NewSyslogWriter dials address (port 514 assumed when absent).
func NewSyslogWriter(address string) (*SyslogWriter, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, DefaultSyslogPort)
	}
	conn, err := net.Dial("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve syslog destination %s: %w", address, err)
	}
	return &SyslogWriter{
		conn: conn,
		pri:  []byte(fmt.Sprintf("<%d>", facilities["daemon"]*8+severities["info"])),
	}, nil
}

func (w *SyslogWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}

	msg := make([]byte, 0, len(w.pri)+len(line))
	msg = append(msg, w.pri...)
	msg = append(msg, line...)

	if _, err := w.conn.Write(msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *SyslogWriter) Close() error {
	return w.conn.Close()
}
