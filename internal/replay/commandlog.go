// Package replay records the evolution of the network graph: it buffers the
// command stream, snapshots the graph at fixed intervals, binds both into
// persisted ReplayLog artifacts, and plays them back.
package replay

import (
	"sort"
	"time"

	"GraphTrace/internal/model"
)

// TimedCommand is one command tagged with its offset from the start of the
// recording session.
type TimedCommand struct {
	Offset  time.Duration
	Command model.Command
}

// CommandLog is the append-only buffer of commands received since the last
// swap. It is not safe for concurrent use on its own: the SaveService
// serializes Append and Swap under its session lock, which is what makes a
// swap indivisible with respect to concurrent appends.
type CommandLog struct {
	active []TimedCommand
}

// NewCommandLog returns an empty command log.
func NewCommandLog() *CommandLog {
	return &CommandLog{}
}

// Append records cmd at the given offset from the session start.
func (l *CommandLog) Append(cmd model.Command, offset time.Duration) {
	l.active = append(l.active, TimedCommand{Offset: offset, Command: cmd})
}

// Swap exchanges the active buffer for a fresh empty one and returns the
// previous buffer for downstream processing.
func (l *CommandLog) Swap() []TimedCommand {
	prev := l.active
	l.active = nil
	return prev
}

// Len returns the number of buffered commands.
func (l *CommandLog) Len() int {
	return len(l.active)
}

// Compress collapses buf into a replay-ready sequence that reproduces the
// same final graph state as replaying the full buffer. Update commands
// carry absolute post-update state, so per entity only the last one within
// a segment matters. FilterApply commands are compression barriers: a
// filter stamps the nodes present at the moment it runs, so an update that
// first creates a node must not be collapsed past a filter into a position
// after it. Collapsing therefore happens only within the segments between
// filters; the filters themselves all survive, in place.
func Compress(buf []TimedCommand) []TimedCommand {
	if len(buf) == 0 {
		return nil
	}

	var out []TimedCommand
	start := 0
	for i, tc := range buf {
		if _, ok := tc.Command.(model.FilterApply); ok {
			out = append(out, collapse(buf[start:i])...)
			out = append(out, tc)
			start = i + 1
		}
	}
	out = append(out, collapse(buf[start:])...)
	return out
}

// collapse keeps the last command per (kind, entity key) within one
// barrier-free segment and emits the survivors in offset order.
func collapse(seg []TimedCommand) []TimedCommand {
	if len(seg) == 0 {
		return nil
	}

	last := make(map[string]int, len(seg))
	for i, tc := range seg {
		last[tc.Command.EntityKey()] = i
	}

	out := make([]TimedCommand, 0, len(last))
	for i, tc := range seg {
		if last[tc.Command.EntityKey()] == i {
			out = append(out, tc)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}
