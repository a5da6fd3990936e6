// Package stream incrementally ingests a growing log file.
//
// A Session polls one file: it reads the bytes appended since the previous
// poll, extracts the records they complete and merges them into the dataset
// it owns. Repeated polls never duplicate or lose a record.
package stream

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/cursor"
	"github.com/PauloFidalgo/cmov-5g/internal/pkg/label"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 2 * time.Second

// State is the phase a session is in.
type State int

const (
	Idle State = iota
	Polling
	Extracting
	Merging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Extracting:
		return "extracting"
	case Merging:
		return "merging"
	default:
		return "unknown"
	}
}

// Splitter separates text into the part ready for extraction and a remainder
// kept for the next poll.
type Splitter func(text string) (complete, rest string)

// Config describes a session. Source defaults to the base name of Path and
// Splitter to extracting everything that was read.
type Config struct {
	Path      string
	Source    string
	Extractor domain.Extractor
	Sink      domain.RecordWriter
	Splitter  Splitter
	Clock     func() time.Time
}

// Session owns the cursor, pending tail and dataset of one monitored file.
type Session struct {
	cfg     Config
	tracker *cursor.Tracker
	logger  domain.Logger

	// pollMu serializes polls and sinkMu appends to the sink; mu guards the
	// fields below and is never held while extracting or appending.
	pollMu     sync.Mutex
	sinkMu     sync.Mutex
	mu         sync.RWMutex
	enabled    bool
	phase      State
	generation uint64
	pending    string
	dataset    domain.Dataset
	persisted  int
	lastUpdate time.Time
	lastErr    error
}

// New creates an idle session.
func New(cfg Config, logger domain.Logger) (*Session, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("stream: path is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("stream: extractor is required")
	}
	if cfg.Source == "" {
		cfg.Source = filepath.Base(cfg.Path)
	}
	if cfg.Splitter == nil {
		cfg.Splitter = func(text string) (string, string) { return text, "" }
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Session{
		cfg:     cfg,
		tracker: cursor.NewTracker(cfg.Path),
		logger:  logger,
		phase:   Polling,
	}, nil
}

// Source returns the name the session's records are stored under.
func (s *Session) Source() string {
	return s.cfg.Source
}

// Enable starts accepting polls.
func (s *Session) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// Disable stops accepting polls. The dataset and cursor are kept.
func (s *Session) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Reset returns the session to idle with an empty dataset and the cursor at
// the start of the file. A poll in flight when Reset is called discards its
// result, and an append to the sink in flight finishes before Reset returns.
func (s *Session) Reset() {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = false
	s.phase = Polling
	s.generation++
	s.pending = ""
	s.dataset = domain.Dataset{}
	s.persisted = 0
	s.lastUpdate = time.Time{}
	s.lastErr = nil
	s.tracker.Reset()
	infra.ObserveDataset(s.cfg.Source, 0, 0)
}

// State reports the current phase.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if !s.enabled {
		return Idle
	}
	return s.phase
}

// Snapshot returns a copy of the accumulated dataset.
func (s *Session) Snapshot() domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset.Clone()
}

// Last returns the n most recent records.
func (s *Session) Last(n int) []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset.Last(n)
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() domain.MonitorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.MonitorStatus{
		Path:       s.cfg.Path,
		Source:     s.cfg.Source,
		Label:      label.Describe(s.cfg.Source),
		State:      s.stateLocked().String(),
		Offset:     s.tracker.Offset(),
		Records:    s.dataset.Len(),
		MaxID:      s.dataset.MaxID(),
		Pending:    len(s.pending),
		LastUpdate: s.lastUpdate,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// Poll runs one read, extract and merge cycle. It does nothing while the
// session is idle. Read and extraction failures are returned but leave the
// session polling; the dataset is only changed by a successful merge.
//
// A poll that reads nothing releases a held-back block whose last line is
// finished, so a block missing metric lines is not kept pending forever once
// the writer goes quiet. Records the sink has not accepted yet are resent on
// every poll until it does.
func (s *Session) Poll(ctx context.Context) (domain.PollResult, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return domain.PollResult{}, nil
	}
	gen := s.generation
	pending := s.pending
	chunk, err := s.tracker.Read()
	s.mu.Unlock()

	if err != nil {
		infra.IncReadErrors()
		s.fail(gen, err)
		return domain.PollResult{}, errors.Wrapf(err, "poll %s", s.cfg.Source)
	}

	result := domain.PollResult{Bytes: len(chunk.Data)}
	var complete, rest string
	if chunk.Empty() {
		if !lineFinished(pending) {
			return s.finish(ctx, gen, result)
		}
		complete = pending
	} else {
		complete, rest = s.cfg.Splitter(pending + string(chunk.Data))
	}
	if !s.setPending(gen, rest) || strings.TrimSpace(complete) == "" {
		return s.finish(ctx, gen, result)
	}

	s.setPhase(gen, Extracting)
	start := time.Now()
	table, err := s.cfg.Extractor.Extract(ctx, complete)
	infra.ObserveExtraction(time.Since(start), domain.FailureReason(err))
	if errors.Is(err, domain.ErrNoRecords) {
		s.setPhase(gen, Polling)
		return s.finish(ctx, gen, result)
	}
	var incoming domain.Dataset
	if err == nil {
		incoming, err = table.Dataset()
	}
	if err != nil {
		s.fail(gen, err)
		return result, errors.Wrapf(err, "extract %s", s.cfg.Source)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return result, nil
	}
	s.phase = Merging
	merged, added := domain.Merge(s.dataset, incoming)
	s.dataset = merged
	s.lastUpdate = s.cfg.Clock()
	s.lastErr = nil
	s.phase = Polling
	s.mu.Unlock()

	result.Extracted = incoming.Len()
	result.Added = added
	result.Dropped = incoming.Len() - added

	return s.finish(ctx, gen, result)
}

func (s *Session) finish(ctx context.Context, gen uint64, result domain.PollResult) (domain.PollResult, error) {
	err := s.persist(ctx, gen)
	if err != nil {
		s.fail(gen, err)
	}
	s.observe(gen, result)
	return result, err
}

// persist hands the sink every record it has not accepted yet. sinkMu keeps
// Reset from running while an append is in flight.
func (s *Session) persist(ctx context.Context, gen uint64) error {
	if s.cfg.Sink == nil {
		return nil
	}
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()

	s.mu.RLock()
	if s.generation != gen || s.persisted >= s.dataset.Len() {
		s.mu.RUnlock()
		return nil
	}
	unsent := append([]domain.Record(nil), s.dataset.Records[s.persisted:]...)
	s.mu.RUnlock()

	if err := s.cfg.Sink.Append(ctx, s.cfg.Source, unsent); err != nil {
		return errors.Wrapf(err, "persist %d records of %s", len(unsent), s.cfg.Source)
	}

	s.mu.Lock()
	s.persisted += len(unsent)
	s.mu.Unlock()
	return nil
}

// lineFinished reports whether text is non-empty and its last line is
// complete: newline terminated, or closed by its unit bracket.
func lineFinished(text string) bool {
	if text == "" {
		return false
	}
	tail := text[strings.LastIndexByte(text, '\n')+1:]
	tail = strings.TrimRight(tail, " \t\r")
	return tail == "" || strings.HasSuffix(tail, "]")
}

// Run polls every interval until ctx is cancelled. The first poll happens
// immediately.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tickCtx := infra.WithCorrelationID(ctx, uuid.NewString())
		result, err := s.Poll(tickCtx)
		switch {
		case err != nil:
			s.log(tickCtx, "stream: %v", err)
		case result.Added > 0:
			s.log(tickCtx, "stream: %s: merged %d new records (%d already seen)", s.cfg.Source, result.Added, result.Dropped)
		}

		select {
		case <-ctx.Done():
			s.log(ctx, "stream: %s: context cancelled: %v", s.cfg.Source, ctx.Err())
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) setPending(gen uint64, pending string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.pending = pending
	return true
}

func (s *Session) setPhase(gen uint64, phase State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.phase = phase
	}
}

func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.phase = Polling
		s.lastErr = err
	}
}

func (s *Session) observe(gen uint64, result domain.PollResult) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation != gen {
		return
	}
	infra.ObservePoll(s.cfg.Source, s.tracker.Offset(), s.dataset.Len(), result.Added, result.Dropped)
}

func (s *Session) log(ctx context.Context, format string, v ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(ctx, format, v...)
}
