package replay

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
)

func init() {
	// Register the concrete component and command types carried inside
	// ReplayLog interface fields for gob encoding/decoding.
	gob.Register(model.TrafficStats{})
	gob.Register(model.FilterMatch{})
	gob.Register(model.NodeUpdate{})
	gob.Register(model.ConnectionUpdate{})
	gob.Register(model.FilterApply{})
}

var (
	// ErrNoReplayData is returned when a session folder or artifact is missing.
	ErrNoReplayData = errors.New("no replay data")
	// ErrCorruptReplay is returned when an artifact exists but cannot be decoded.
	ErrCorruptReplay = errors.New("corrupt replay data")
)

const artifactSuffix = ".replay"

// ReplayLog is the immutable persisted artifact for one recording interval:
// the graph snapshot taken at the interval's start plus the compressed
// command log covering the interval.
type ReplayLog struct {
	From     time.Duration // offset of the interval start from the session start
	To       time.Duration // offset of the interval end
	Snapshot graph.Snapshot
	Commands []TimedCommand
}

// Logger assembles, persists and loads ReplayLog artifacts.
type Logger struct{}

// NewLogger creates a replay logger.
func NewLogger() *Logger {
	return &Logger{}
}

// CreateReplayLog binds a graph snapshot to the compressed command log for
// the interval [from, to). Pure assembly, no I/O.
func (l *Logger) CreateReplayLog(snap graph.Snapshot, cmds []TimedCommand, from, to time.Duration) *ReplayLog {
	return &ReplayLog{From: from, To: to, Snapshot: snap, Commands: cmds}
}

// SaveReplayLog serializes rl into folder. The artifact is written to a
// temporary file first and renamed into place, so a crash mid-write leaves
// no partially written artifact behind and never touches completed ones.
func (l *Logger) SaveReplayLog(rl *ReplayLog, folder string) error {
	tmp, err := os.CreateTemp(folder, "replay_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(rl); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode replay log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	final := filepath.Join(folder, artifactName(rl.From, rl.To))
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return l.writeSummary(rl, folder)
}

// artifactName encodes the covered interval in milliseconds from the
// session start. Zero-padding keeps lexical order equal to interval order.
func artifactName(from, to time.Duration) string {
	return fmt.Sprintf("%012d-%012d%s", from.Milliseconds(), to.Milliseconds(), artifactSuffix)
}

// SessionSummary is the per-session sidecar describing the latest state of
// a recording session. It is informational; loading never depends on it.
type SessionSummary struct {
	Artifacts   int    `json:"artifacts"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
	CoveredMs   int64  `json:"covered_ms"`
	UpdatedAt   string `json:"updated_at"`
}

func (l *Logger) writeSummary(rl *ReplayLog, folder string) error {
	artifacts, err := ListArtifacts(folder)
	if err != nil {
		return err
	}

	summary := SessionSummary{
		Artifacts:   len(artifacts),
		Nodes:       len(rl.Snapshot.Nodes),
		Connections: len(rl.Snapshot.Connections),
		CoveredMs:   rl.To.Milliseconds(),
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	file, err := os.Create(filepath.Join(folder, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// LoadReplayLog reads one artifact file back into memory.
func LoadReplayLog(path string) (*ReplayLog, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", path, ErrNoReplayData)
		}
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer file.Close()

	var rl ReplayLog
	if err := gob.NewDecoder(file).Decode(&rl); err != nil {
		return nil, fmt.Errorf("artifact %s: %w: %v", path, ErrCorruptReplay, err)
	}
	return &rl, nil
}

// ListArtifacts returns the artifact paths in a session folder, ordered by
// interval start.
func ListArtifacts(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session folder %s: %w", folder, ErrNoReplayData)
		}
		return nil, fmt.Errorf("failed to read session folder %s: %w", folder, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), artifactSuffix) {
			continue
		}
		out = append(out, filepath.Join(folder, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// LoadAt finds and loads the artifact of a session whose interval contains
// the given offset from the session start.
func LoadAt(folder string, offset time.Duration) (*ReplayLog, error) {
	paths, err := ListArtifacts(folder)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		rl, err := LoadReplayLog(p)
		if err != nil {
			return nil, err
		}
		if offset >= rl.From && offset < rl.To {
			return rl, nil
		}
	}
	return nil, fmt.Errorf("no artifact covers offset %s in %s: %w", offset, folder, ErrNoReplayData)
}

// Replay reconstructs the graph state at the end of rl's interval: it
// rebuilds the graph from the snapshot taken at the interval start and
// applies the recorded commands in order.
func Replay(rl *ReplayLog, numShards uint32) (*graph.Graph, error) {
	g := graph.FromSnapshot(rl.Snapshot, numShards)
	if err := ApplyAll(g, rl.Commands); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptReplay, err)
	}
	return g, nil
}
