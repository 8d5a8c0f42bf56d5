package graph

import (
	"errors"
	"sync"
	"testing"
	"time"

	"GraphTrace/internal/model"
)

func TestGraph_UpsertNodeIsIdempotent(t *testing.T) {
	g := New(4)
	a := model.Address(0x0A000001)

	n1 := g.UpsertNode(a)
	n2 := g.UpsertNode(a)
	if n1 != n2 {
		t.Error("UpsertNode for the same address should return the same node")
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}
}

func TestGraph_UpsertConnectionIsIdempotent(t *testing.T) {
	g := New(4)
	a := model.Address(1)
	b := model.Address(2)

	c1 := g.UpsertConnection(a, b)
	c2 := g.UpsertConnection(a, b)
	if c1 != c2 {
		t.Error("UpsertConnection for the same pair should return the same connection")
	}
	if g.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", g.ConnectionCount())
	}

	// The endpoints were created implicitly.
	if _, err := g.Node(a); err != nil {
		t.Errorf("Source endpoint missing: %v", err)
	}
	if _, err := g.Node(b); err != nil {
		t.Errorf("Destination endpoint missing: %v", err)
	}

	// Opposite direction is a distinct connection.
	c3 := g.UpsertConnection(b, a)
	if c3 == c1 {
		t.Error("Connections for opposite directions should be distinct")
	}
	if g.ConnectionCount() != 2 {
		t.Errorf("ConnectionCount = %d, want 2", g.ConnectionCount())
	}
}

func TestGraph_LookupMissesReturnNotFound(t *testing.T) {
	g := New(4)
	if _, err := g.Node(7); !errors.Is(err, ErrNotFound) {
		t.Errorf("Node miss error = %v, want ErrNotFound", err)
	}
	if _, err := g.Connection(7, 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("Connection miss error = %v, want ErrNotFound", err)
	}
}

func TestGraph_RemoveNodeRemovesIncidentConnections(t *testing.T) {
	g := New(4)
	a, b, c := model.Address(1), model.Address(2), model.Address(3)
	g.UpsertConnection(a, b)
	g.UpsertConnection(b, c)
	g.UpsertConnection(c, a)

	g.RemoveNode(b)

	if _, err := g.Node(b); !errors.Is(err, ErrNotFound) {
		t.Error("Removed node should not be found")
	}
	if _, err := g.Connection(a, b); !errors.Is(err, ErrNotFound) {
		t.Error("Connection into the removed node should be gone")
	}
	if _, err := g.Connection(b, c); !errors.Is(err, ErrNotFound) {
		t.Error("Connection out of the removed node should be gone")
	}
	if _, err := g.Connection(c, a); err != nil {
		t.Errorf("Unrelated connection should survive: %v", err)
	}
	if g.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", g.ConnectionCount())
	}
}

func TestComponentStore_AbsentKindIsValidMiss(t *testing.T) {
	g := New(4)
	n := g.UpsertNode(1)

	if _, ok := n.Component(model.KindFilterMatch); ok {
		t.Error("Expected no filter match component on a fresh node")
	}

	n.SetComponent(model.FilterMatch{FilterName: "lab", Color: 0xFF0000})
	c, ok := n.Component(model.KindFilterMatch)
	if !ok {
		t.Fatal("Expected filter match component after SetComponent")
	}
	if c.(model.FilterMatch).FilterName != "lab" {
		t.Errorf("Component content mismatch: %+v", c)
	}

	// Setting again replaces the previous component.
	n.SetComponent(model.FilterMatch{FilterName: "lab2"})
	c, _ = n.Component(model.KindFilterMatch)
	if c.(model.FilterMatch).FilterName != "lab2" {
		t.Errorf("SetComponent should replace the prior component, got %+v", c)
	}

	n.RemoveComponent(model.KindFilterMatch)
	if _, ok := n.Component(model.KindFilterMatch); ok {
		t.Error("Expected component to be gone after RemoveComponent")
	}
}

func TestComponentStore_AddTrafficAccumulates(t *testing.T) {
	g := New(4)
	c := g.UpsertConnection(1, 2)

	t0 := time.Now()
	s1 := c.AddTraffic(1, 100, t0)
	s2 := c.AddTraffic(1, 50, t0.Add(time.Second))

	if s1.Packets != 1 || s1.Bytes != 100 {
		t.Errorf("First AddTraffic = %+v", s1)
	}
	if s2.Packets != 2 || s2.Bytes != 150 {
		t.Errorf("Second AddTraffic = %+v", s2)
	}
	if !s2.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen should stay at the first observation, got %v", s2.FirstSeen)
	}
	if !s2.LastSeen.Equal(t0.Add(time.Second)) {
		t.Errorf("LastSeen should advance, got %v", s2.LastSeen)
	}
}

func TestGraph_SnapshotCopyIsIndependent(t *testing.T) {
	g := New(4)
	a, b := model.Address(1), model.Address(2)
	conn := g.UpsertConnection(a, b)
	conn.AddTraffic(5, 500, time.Now())

	snap := g.SnapshotCopy()

	// Mutations after the copy must not leak into the snapshot.
	conn.AddTraffic(5, 500, time.Now())
	g.UpsertNode(3)
	g.UpsertConnection(2, 3)

	if snap.NodeCount() != 2 {
		t.Errorf("Snapshot NodeCount = %d, want 2", snap.NodeCount())
	}
	if snap.ConnectionCount() != 1 {
		t.Errorf("Snapshot ConnectionCount = %d, want 1", snap.ConnectionCount())
	}

	sc, err := snap.Connection(a, b)
	if err != nil {
		t.Fatalf("Snapshot connection missing: %v", err)
	}
	comp, ok := sc.Component(model.KindTrafficStats)
	if !ok {
		t.Fatal("Snapshot connection should carry traffic stats")
	}
	stats := comp.(model.TrafficStats)
	if stats.Packets != 5 || stats.Bytes != 500 {
		t.Errorf("Snapshot stats = %+v, want the pre-copy values", stats)
	}
}

func TestGraph_SnapshotCopyDuringConcurrentIngest(t *testing.T) {
	g := New(8)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Ingestion stream.
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				src := model.Address(uint32(w*1000 + i%100))
				dst := model.Address(uint32(i % 50))
				g.UpsertConnection(src, dst).AddTraffic(1, 64, time.Now())
			}
		}(w)
	}

	// Concurrent snapshots: every connection seen must have both endpoints.
	for i := 0; i < 20; i++ {
		snap := g.SnapshotCopy()
		for _, c := range snap.Connections() {
			if _, err := snap.Node(c.Source()); err != nil {
				t.Errorf("Snapshot connection %s>%s with missing source", c.Source(), c.Destination())
			}
			if _, err := snap.Node(c.Destination()); err != nil {
				t.Errorf("Snapshot connection %s>%s with missing destination", c.Source(), c.Destination())
			}
		}
	}

	close(stop)
	wg.Wait()
}

func TestGraph_ExportFromSnapshotRoundTrip(t *testing.T) {
	g := New(4)
	g.UpsertConnection(1, 2).AddTraffic(3, 300, time.Unix(100, 0))
	g.UpsertNode(1).AddTraffic(3, 300, time.Unix(100, 0))
	g.UpsertNode(9).SetComponent(model.FilterMatch{FilterName: "lab", Color: 0x00FF00, Safe: true})

	snap := g.Export()
	rebuilt := FromSnapshot(snap, 4)

	if rebuilt.NodeCount() != g.NodeCount() {
		t.Errorf("Rebuilt NodeCount = %d, want %d", rebuilt.NodeCount(), g.NodeCount())
	}
	if rebuilt.ConnectionCount() != g.ConnectionCount() {
		t.Errorf("Rebuilt ConnectionCount = %d, want %d", rebuilt.ConnectionCount(), g.ConnectionCount())
	}

	c, err := rebuilt.Connection(1, 2)
	if err != nil {
		t.Fatalf("Rebuilt connection missing: %v", err)
	}
	comp, ok := c.Component(model.KindTrafficStats)
	if !ok || comp.(model.TrafficStats).Bytes != 300 {
		t.Errorf("Rebuilt connection stats mismatch: %+v", comp)
	}

	n, err := rebuilt.Node(9)
	if err != nil {
		t.Fatalf("Rebuilt node missing: %v", err)
	}
	fm, ok := n.Component(model.KindFilterMatch)
	if !ok || fm.(model.FilterMatch).FilterName != "lab" {
		t.Errorf("Rebuilt node filter mismatch: %+v", fm)
	}
}
