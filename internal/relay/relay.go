package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ma-dusty/wssApiToSyslogRelay/internal/archive"
	"github.com/ma-dusty/wssApiToSyslogRelay/internal/checkpoint"
	"github.com/ma-dusty/wssApiToSyslogRelay/internal/logging"
	"github.com/ma-dusty/wssApiToSyslogRelay/internal/sink"
	"github.com/ma-dusty/wssApiToSyslogRelay/internal/wss"
	"github.com/ma-dusty/wssApiToSyslogRelay/pkg/lru"
	"github.com/ma-dusty/wssApiToSyslogRelay/pkg/timeutil"
)

// progressEvery is how many relayed lines pass between progress callbacks.
const progressEvery = 1000

// Config tunes a Relay run.
type Config struct {
	// HostIdentifier appears in every record's envelope, joined to the
	// line's tenant ID as host-tenant.
	HostIdentifier string

	// MaxLineBytes bounds one source line; a longer line abandons the
	// member it appears in. Zero means archive.DefaultMaxLineBytes.
	MaxLineBytes int

	// Limits describe the provider's trailer wire format.
	Limits wss.Limits

	// Delays are the inter-cycle pauses.
	Delays Delays

	// SaveArchives keeps a copy of each downloaded body under ArchiveDir.
	SaveArchives bool
	ArchiveDir   string

	// DedupCapacity bounds the seen-member cache. Zero disables dedup.
	DedupCapacity int

	// Once stops after the first cycle regardless of the decision.
	Once bool

	// Progress, when set, is called after every progressEvery relayed lines.
	Progress func()
}

// Relay owns one sync loop: fetch, process, decide, persist, sleep.
type Relay struct {
	client *wss.Client
	snk    sink.Sink
	store  *checkpoint.Store
	log    logging.Logger
	cfg    Config
	seen   *lru.Cache
	stats  *Stats
}

// New assembles a relay. A nil store runs without persistence (dry runs,
// replays); a nil logger falls back to the process default.
func New(client *wss.Client, snk sink.Sink, store *checkpoint.Store, log logging.Logger, cfg Config) *Relay {
	if log == nil {
		log = logging.Default()
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = archive.DefaultMaxLineBytes
	}
	if cfg.Limits.TrailerWindow == 0 {
		cfg.Limits = wss.DefaultLimits()
	}
	return &Relay{
		client: client,
		snk:    snk,
		store:  store,
		log:    log,
		cfg:    cfg,
		seen:   lru.New(cfg.DedupCapacity),
		stats:  NewStats(),
	}
}

// Stats exposes the run counters.
func (r *Relay) Stats() *Stats {
	return r.stats
}

// Run drives the loop from the given cursor until the context is canceled,
// a bounded range is satisfied, or (in Once mode) one cycle completes.
func (r *Relay) Run(ctx context.Context, cur Cursor) error {
	r.log.Info("relay starting [%s]", cur)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.stats.Cycles++
		resp, fetchErr := r.client.Fetch(ctx, cur.StartTime, cur.EndTime, cur.Token)
		if fetchErr != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		out, err := r.process(ctx, resp, fetchErr)
		if err != nil {
			// Sink failures and cancellation stop the run outright:
			// continuing would silently drop lines.
			return err
		}

		dec := Decide(cur, out, r.cfg.Delays)
		r.logDecision(dec)

		if dec.Next != cur {
			if err := r.persist(dec.Next); err != nil {
				return err
			}
		}
		cur = dec.Next

		if dec.Action == ActionTerminate {
			r.log.Info("relay finished: %s", r.stats.Summary())
			return nil
		}
		if r.cfg.Once {
			r.log.Info("single cycle complete: %s", r.stats.Summary())
			return nil
		}

		if dec.Delay > 0 {
			if err := sleep(ctx, dec.Delay); err != nil {
				return err
			}
		}
	}
}

// process turns one HTTP exchange into a classified Outcome. It relays
// archive members to the sink as a side effect. The returned error is
// fatal to the run; everything recoverable lands in the Outcome instead.
func (r *Relay) process(ctx context.Context, resp *wss.Response, fetchErr error) (Outcome, error) {
	if fetchErr != nil {
		return Outcome{NetworkErr: fetchErr}, nil
	}

	out := Outcome{StatusCode: resp.StatusCode, BodyLen: len(resp.Body)}

	if resp.StatusCode != 200 {
		if resp.StatusCode == 429 {
			out.RetryAfter, out.RetryAfterOK = resp.RetryAfter()
		}
		if err := wss.ClassifyStatus(resp.StatusCode); err != nil {
			r.log.Debug("sync request refused: %v", err)
		}
		return out, nil
	}

	if r.cfg.Limits.Poisoned(len(resp.Body)) {
		out.Poisoned = true
		return out, nil
	}

	tr, err := wss.ParseTrailer(resp.Body, r.cfg.Limits)
	if err != nil {
		r.log.Error("trailer unreadable in %d byte body: %v", len(resp.Body), err)
		return out, nil
	}
	out.Trailer = tr
	out.TrailerOK = true

	// An aborted download carries no usable archive.
	if tr.Status == wss.StatusAbort {
		return out, nil
	}
	if r.cfg.Limits.TrailerOnly(len(resp.Body)) {
		r.log.Debug("trailer-only response, no archive attached")
		return out, nil
	}

	if r.cfg.SaveArchives {
		r.saveArchive(resp.Body)
	}

	arch, err := archive.Open(resp.Body)
	if err != nil {
		out.ArchiveErr = err
		return out, nil
	}

	for _, sk := range arch.Skipped {
		r.log.Error("skipping unrecognized member %s: %v", sk.Name, sk.Err)
	}

	for i := range arch.Members {
		m := &arch.Members[i]
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if r.seen.Seen(m.Name) {
			r.log.Debug("member %s already relayed, skipping", m.Name)
			r.stats.Deduped++
			out.LastMemberTS = timeutil.ToMillis(m.Timestamp)
			continue
		}

		if err := r.relayMember(ctx, m); err != nil {
			if isMemberError(err) {
				r.log.Error("abandoning member %s: %v", m.Name, err)
				continue
			}
			return out, err
		}
		out.ProcessedMembers++
		out.LastMemberTS = timeutil.ToMillis(m.Timestamp)
	}

	return out, nil
}

// relayMember streams one member's lines to the sink and flushes it, so a
// later failure costs at most the member in flight.
func (r *Relay) relayMember(ctx context.Context, m *archive.Member) error {
	begun := time.Now()

	rc, err := m.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var lines int64
	sp := archive.NewSplitter(rc, r.cfg.MaxLineBytes)
	for sp.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sp.Line()

		if line.Comment {
			r.log.Info("member %s header: %s", m.Name, line.Raw)
			r.stats.Comments++
			continue
		}
		if line.Malformed {
			r.log.Error("dropping malformed line in %s: %.120s", m.Name, line.Raw)
			r.stats.Malformed++
			continue
		}

		env, err := line.Envelope(r.cfg.HostIdentifier)
		if err != nil {
			r.log.Error("dropping line with unusable date in %s: %v", m.Name, err)
			r.stats.Malformed++
			continue
		}

		if err := r.snk.Accept(ctx, sink.Record{Envelope: env, Raw: line.Raw}); err != nil {
			return fmt.Errorf("sink rejected record: %w", err)
		}
		lines++
		r.stats.Lines++
		if r.cfg.Progress != nil && lines%progressEvery == 0 {
			r.cfg.Progress()
		}
	}
	if err := sp.Err(); err != nil {
		return err
	}

	if err := r.snk.Flush(ctx); err != nil {
		return fmt.Errorf("sink flush failed: %w", err)
	}

	r.stats.Members++
	elapsed := time.Since(begun)
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(lines) / secs / 1000
	}
	r.log.Info("relayed %s [lines=%d compressed=%s elapsed=%s rate=%.1fK lines/s]",
		m.Name, lines, timeutil.FormatBytes(m.CompressedSize()),
		elapsed.Round(time.Millisecond), rate)
	return nil
}

// isMemberError reports whether the failure is confined to one member.
// Decode problems and oversized lines abandon the member; anything else
// (sink, context) is fatal to the run.
func isMemberError(err error) bool {
	return errors.Is(err, archive.ErrDecode) || errors.Is(err, bufio.ErrTooLong)
}

// ReplayArchive pushes every member of an already-opened archive through
// the same member pipeline the live loop uses. No requests, no dedup, no
// checkpointing: this is the debug path for re-processing a saved body.
func (r *Relay) ReplayArchive(ctx context.Context, arc *archive.Archive) error {
	for _, sk := range arc.Skipped {
		r.log.Error("skipping unrecognized member %s: %v", sk.Name, sk.Err)
	}
	for i := range arc.Members {
		m := &arc.Members[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.relayMember(ctx, m); err != nil {
			if isMemberError(err) {
				r.log.Error("abandoning member %s: %v", m.Name, err)
				continue
			}
			return err
		}
	}
	return nil
}

func (r *Relay) persist(next Cursor) error {
	if r.store == nil {
		return nil
	}
	err := r.store.Save(checkpoint.State{StartTime: next.StartTime, Token: next.Token})
	if err != nil {
		return fmt.Errorf("cannot persist checkpoint: %w", err)
	}
	r.log.Debug("checkpoint saved [%s]", next)
	return nil
}

func (r *Relay) logDecision(dec Decision) {
	switch {
	case dec.Critical:
		r.log.Critical("%s; retrying in %s", dec.Reason, dec.Delay)
	case dec.Delay > 0:
		r.log.Info("%s; sleeping %s", dec.Reason, dec.Delay)
	default:
		r.log.Info("%s", dec.Reason)
	}
}

// saveArchive writes a copy of the raw response body for offline replay.
// Failures are logged and swallowed; a copy is never worth stopping for.
func (r *Relay) saveArchive(body []byte) {
	dir := r.cfg.ArchiveDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.log.Error("cannot create archive directory %s: %v", dir, err)
		return
	}

	name := fmt.Sprintf("cloud_archive_%s.zip", timeutil.FormatCompact(time.Now()))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		r.log.Error("cannot save archive copy: %v", err)
		return
	}
	r.log.Debug("saved archive copy to %s", path)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
