package replay

import "GraphTrace/internal/graph"

// SnapshotLogger takes point-in-time copies of the live graph for the
// recording pipeline. The copy runs synchronously on the calling goroutine;
// the graph's copy barrier bounds how long ingestion waits.
type SnapshotLogger struct {
	graph *graph.Graph
}

// NewSnapshotLogger creates a snapshot logger bound to the live graph.
func NewSnapshotLogger(g *graph.Graph) *SnapshotLogger {
	return &SnapshotLogger{graph: g}
}

// TakeSnapshot deep-copies the live graph and flattens it into its
// serializable form.
func (s *SnapshotLogger) TakeSnapshot() graph.Snapshot {
	return s.graph.SnapshotCopy().Export()
}
