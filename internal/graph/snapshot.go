package graph

import (
	"sort"

	"GraphTrace/internal/model"
)

// NodeRecord is the serializable form of one node.
type NodeRecord struct {
	Addr       model.Address
	Components map[model.ComponentKind]model.Component
}

// ConnectionRecord is the serializable form of one connection.
type ConnectionRecord struct {
	Src        model.Address
	Dst        model.Address
	Components map[model.ComponentKind]model.Component
}

// Snapshot is the flat serializable form of a graph at one instant. Records
// are sorted by key so two exports of equal graphs are structurally equal.
type Snapshot struct {
	Nodes       []NodeRecord
	Connections []ConnectionRecord
}

// Export flattens the graph into its serializable snapshot form. Call it on
// a SnapshotCopy rather than the live graph when ingestion is running.
func (g *Graph) Export() Snapshot {
	var snap Snapshot

	for _, n := range g.Nodes() {
		snap.Nodes = append(snap.Nodes, NodeRecord{
			Addr:       n.Address(),
			Components: n.cloneComponents(),
		})
	}
	for _, c := range g.Connections() {
		snap.Connections = append(snap.Connections, ConnectionRecord{
			Src:        c.Source(),
			Dst:        c.Destination(),
			Components: c.cloneComponents(),
		})
	}

	sort.Slice(snap.Nodes, func(i, j int) bool {
		return snap.Nodes[i].Addr.Compare(snap.Nodes[j].Addr) < 0
	})
	sort.Slice(snap.Connections, func(i, j int) bool {
		a, b := snap.Connections[i], snap.Connections[j]
		if cmp := a.Src.Compare(b.Src); cmp != 0 {
			return cmp < 0
		}
		return a.Dst.Compare(b.Dst) < 0
	})
	return snap
}

// FromSnapshot rebuilds a live graph from its serializable form.
func FromSnapshot(snap Snapshot, numShards uint32) *Graph {
	g := New(numShards)
	for _, rec := range snap.Nodes {
		n := g.UpsertNode(rec.Addr)
		for _, c := range rec.Components {
			n.SetComponent(c)
		}
	}
	for _, rec := range snap.Connections {
		c := g.UpsertConnection(rec.Src, rec.Dst)
		for _, comp := range rec.Components {
			c.SetComponent(comp)
		}
	}
	return g
}
