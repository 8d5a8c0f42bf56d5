package replay

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
)

var (
	// ErrAlreadyRecording is returned by StartRecord while a session is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by StopRecord while idle.
	ErrNotRecording = errors.New("not recording")
)

// DefaultInterval is the tick interval used when none is configured.
const DefaultInterval = 10 * time.Second

// SnapshotSink receives each persisted tick's snapshot for side-channel
// export (metrics stores and the like). Sink failures are logged, never
// fatal to the recording session.
type SnapshotSink interface {
	WriteSnapshot(snap graph.Snapshot, at time.Time) error
}

// SaveService is the recording scheduler. While recording, it appends every
// received command to the active command log and, at a fixed interval,
// swaps the buffer, pairs the interval's commands with the snapshot taken
// at the interval's start, and persists the resulting ReplayLog into the
// session folder.
//
// A single mutex guards the session-start marker and the append/swap
// transition, so every command lands in exactly one interval's buffer and
// is attributed to exactly one session.
type SaveService struct {
	commandLog  *CommandLog
	snapshotter *SnapshotLogger
	logger      *Logger
	rootPath    string
	interval    time.Duration
	sinks       []SnapshotSink

	mu            sync.Mutex
	startInstant  time.Time // zero while idle
	sessionFolder string
	intervalStart time.Duration  // offset of the pending interval's start
	pending       graph.Snapshot // snapshot taken at intervalStart

	// Per-session scheduler resources, created under mu in the same
	// critical section that publishes the session marker, so a concurrent
	// StopRecord never observes the marker without them.
	ticker *time.Ticker
	done   chan struct{}
	wg     *sync.WaitGroup

	now func() time.Time
}

// NewSaveService creates a recording service for the given live graph.
// ReplayLogs are persisted under rootPath, one folder per session. A zero
// or negative interval falls back to DefaultInterval.
func NewSaveService(g *graph.Graph, rootPath string, interval time.Duration, sinks ...SnapshotSink) *SaveService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SaveService{
		commandLog:  NewCommandLog(),
		snapshotter: NewSnapshotLogger(g),
		logger:      NewLogger(),
		rootPath:    rootPath,
		interval:    interval,
		sinks:       sinks,
		now:         time.Now,
	}
}

// StartRecord begins a new recording session: it marks the current instant
// as the session start, creates the session folder named by that instant's
// epoch seconds, takes the session's initial snapshot, and schedules the
// periodic tick.
func (s *SaveService) StartRecord() error {
	s.mu.Lock()
	if !s.startInstant.IsZero() {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	start := s.now()
	folder := filepath.Join(s.rootPath, strconv.FormatInt(start.Unix(), 10))
	ticker := time.NewTicker(s.interval)
	done := make(chan struct{})
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.startInstant = start
	s.sessionFolder = folder
	s.intervalStart = 0
	s.commandLog.Swap() // drop anything buffered across sessions
	s.ticker = ticker
	s.done = done
	s.wg = wg
	s.mu.Unlock()

	// Directory creation and the initial snapshot run outside the lock;
	// commands received meanwhile are already attributed to this session,
	// and a concurrent StopRecord already sees a fully formed one.
	if err := os.MkdirAll(folder, 0755); err != nil {
		s.mu.Lock()
		if s.done == done {
			s.startInstant = time.Time{}
			s.sessionFolder = ""
			s.done = nil
			s.ticker = nil
			s.wg = nil
		}
		s.mu.Unlock()
		ticker.Stop()
		// The scheduler goroutine was never launched; balance the Add so a
		// StopRecord that intervened is released from its Wait.
		wg.Done()
		return fmt.Errorf("failed to create session folder: %w", err)
	}

	pending := s.snapshotter.TakeSnapshot()
	s.mu.Lock()
	// Install the snapshot only if this session is still the active one.
	if s.done == done {
		s.pending = pending
	}
	s.mu.Unlock()

	go s.run(ticker, done, wg)

	log.Printf("Recording replay logs into %s (interval %s)", folder, s.interval)
	return nil
}

// StopRecord ends the active session. Commands received afterwards are
// dropped until the next StartRecord. An in-flight tick completes; no
// further ticks fire.
func (s *SaveService) StopRecord() error {
	s.mu.Lock()
	if s.startInstant.IsZero() {
		s.mu.Unlock()
		return ErrNotRecording
	}
	done := s.done
	ticker := s.ticker
	wg := s.wg
	s.startInstant = time.Time{}
	s.sessionFolder = ""
	s.pending = graph.Snapshot{}
	s.commandLog.Swap()
	s.done = nil
	s.ticker = nil
	s.wg = nil
	s.mu.Unlock()

	close(done)
	wg.Wait()
	ticker.Stop()

	log.Println("Stopped recording replay logs")
	return nil
}

// Recording reports whether a session is active and, if so, its folder.
func (s *SaveService) Recording() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.startInstant.IsZero(), s.sessionFolder
}

// Receive appends a command to the active session's command log. While
// idle the command is dropped: there is no session to attribute it to.
// Multiple producers may call Receive concurrently.
func (s *SaveService) Receive(cmd model.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startInstant.IsZero() {
		return
	}
	s.commandLog.Append(cmd, s.now().Sub(s.startInstant))
}

// run is the per-session scheduler loop. It works on the resources of the
// session that launched it, never the service fields, so a later session
// cannot be disturbed by a stale goroutine.
func (s *SaveService) run(ticker *time.Ticker, done chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-done:
			return
		}
	}
}

// tick executes one recording cycle. Only the buffer swap and session state
// reads happen under the lock; compression, snapshotting and disk I/O all
// run after release so ingestion is not stalled by slow writes.
func (s *SaveService) tick() {
	s.mu.Lock()
	if s.startInstant.IsZero() {
		s.mu.Unlock()
		return
	}
	buf := s.commandLog.Swap()
	folder := s.sessionFolder
	from := s.intervalStart
	to := s.now().Sub(s.startInstant)
	snap := s.pending
	s.intervalStart = to
	s.mu.Unlock()

	compressed := Compress(buf)
	rl := s.logger.CreateReplayLog(snap, compressed, from, to)
	if err := s.logger.SaveReplayLog(rl, folder); err != nil {
		// A failed write abandons this cycle only; the next tick still runs.
		log.Printf("Error persisting replay log for %s: %v", folder, err)
	}

	next := s.snapshotter.TakeSnapshot()
	s.mu.Lock()
	// The session may have stopped or restarted while the snapshot was
	// taken; only install it for the session this tick belongs to.
	if s.sessionFolder == folder {
		s.pending = next
	}
	s.mu.Unlock()

	at := time.Now()
	for _, sink := range s.sinks {
		if err := sink.WriteSnapshot(next, at); err != nil {
			log.Printf("Error exporting snapshot: %v", err)
		}
	}
}
