package engine

import (
	"sync"
	"testing"
	"time"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
)

type recordingSink struct {
	mu   sync.Mutex
	cmds []model.Command
}

func (r *recordingSink) Receive(cmd model.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recordingSink) commands() []model.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Command(nil), r.cmds...)
}

func TestIngestor_ProcessSample(t *testing.T) {
	g := graph.New(4)
	sink := &recordingSink{}
	in := NewIngestor(g, sink, 1, 16)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in.Start()
	in.Input() <- &model.TrafficSample{Timestamp: at, Src: 1, Dst: 2, Length: 60}
	in.Stop()

	conn, err := g.Connection(1, 2)
	if err != nil {
		t.Fatalf("Connection(1, 2) missing: %v", err)
	}
	comp, _ := conn.Component(model.KindTrafficStats)
	if stats := comp.(model.TrafficStats); stats.Packets != 1 || stats.Bytes != 60 || !stats.FirstSeen.Equal(at) {
		t.Errorf("Connection stats = %+v", stats)
	}

	for _, addr := range []model.Address{1, 2} {
		n, err := g.Node(addr)
		if err != nil {
			t.Fatalf("Node(%d) missing: %v", addr, err)
		}
		comp, _ := n.Component(model.KindTrafficStats)
		if stats := comp.(model.TrafficStats); stats.Packets != 1 || stats.Bytes != 60 {
			t.Errorf("Node %d stats = %+v", addr, stats)
		}
	}

	cmds := sink.commands()
	if len(cmds) != 3 {
		t.Fatalf("Emitted %d commands, want 3 (connection + both endpoints)", len(cmds))
	}
	cu, ok := cmds[0].(model.ConnectionUpdate)
	if !ok || cu.Src != 1 || cu.Dst != 2 || cu.Stats.Packets != 1 {
		t.Errorf("First command = %#v, want connection update", cmds[0])
	}
	seen := map[model.Address]bool{}
	for _, c := range cmds[1:] {
		nu, ok := c.(model.NodeUpdate)
		if !ok {
			t.Fatalf("Command = %#v, want node update", c)
		}
		seen[nu.Addr] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("Node updates cover %v, want both endpoints", seen)
	}
}

func TestIngestor_CommandsCarryAbsoluteTotals(t *testing.T) {
	g := graph.New(4)
	sink := &recordingSink{}
	in := NewIngestor(g, sink, 1, 16)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in.Start()
	for i := 0; i < 3; i++ {
		in.Input() <- &model.TrafficSample{Timestamp: at.Add(time.Duration(i) * time.Second), Src: 1, Dst: 2, Length: 100}
	}
	in.Stop()

	cmds := sink.commands()
	if len(cmds) != 9 {
		t.Fatalf("Emitted %d commands, want 9", len(cmds))
	}
	// The last connection update carries the running total, not a delta.
	last := cmds[6].(model.ConnectionUpdate)
	if last.Stats.Packets != 3 || last.Stats.Bytes != 300 {
		t.Errorf("Final connection stats = %+v, want totals {3, 300}", last.Stats)
	}
	if !last.Stats.FirstSeen.Equal(at) {
		t.Errorf("FirstSeen = %v, want first sample time %v", last.Stats.FirstSeen, at)
	}
	if !last.Stats.LastSeen.Equal(at.Add(2 * time.Second)) {
		t.Errorf("LastSeen = %v, want last sample time", last.Stats.LastSeen)
	}
}

// vanishingRecorder removes a node from the graph when it sees the first
// command, forcing the endpoint lookups that follow to miss.
type vanishingRecorder struct {
	recordingSink
	graph  *graph.Graph
	remove model.Address
	once   sync.Once
}

func (r *vanishingRecorder) Receive(cmd model.Command) {
	r.recordingSink.Receive(cmd)
	r.once.Do(func() { r.graph.RemoveNode(r.remove) })
}

func TestIngestor_VanishedEndpointStillRecordsConnection(t *testing.T) {
	g := graph.New(4)
	sink := &vanishingRecorder{graph: g, remove: 2}
	in := NewIngestor(g, sink, 1, 1)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in.process(&model.TrafficSample{Timestamp: at, Src: 1, Dst: 2, Length: 60})

	// The connection was mutated in the live graph, so the command stream
	// must carry the matching update even though the node updates were
	// skipped.
	cmds := sink.commands()
	if len(cmds) != 1 {
		t.Fatalf("Emitted %d commands, want only the connection update", len(cmds))
	}
	cu, ok := cmds[0].(model.ConnectionUpdate)
	if !ok {
		t.Fatalf("Command = %#v, want connection update", cmds[0])
	}
	if cu.Stats.Packets != 1 || cu.Stats.Bytes != 60 {
		t.Errorf("Recorded connection stats = %+v, want {1, 60}", cu.Stats)
	}
}

func TestIngestor_ConcurrentWorkersLoseNoUpdates(t *testing.T) {
	g := graph.New(16)
	sink := &recordingSink{}
	in := NewIngestor(g, sink, 4, 256)

	const samples = 5000
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	in.Start()
	for i := 0; i < samples; i++ {
		in.Input() <- &model.TrafficSample{Timestamp: at, Src: 1, Dst: 2, Length: 10}
	}
	in.Stop()

	conn, err := g.Connection(1, 2)
	if err != nil {
		t.Fatalf("Connection(1, 2) missing: %v", err)
	}
	comp, _ := conn.Component(model.KindTrafficStats)
	if stats := comp.(model.TrafficStats); stats.Packets != samples || stats.Bytes != samples*10 {
		t.Errorf("Connection stats = %+v, want {%d, %d}", stats, samples, samples*10)
	}

	n, err := g.Node(1)
	if err != nil {
		t.Fatalf("Node(1) missing: %v", err)
	}
	comp, _ = n.Component(model.KindTrafficStats)
	if stats := comp.(model.TrafficStats); stats.Packets != samples {
		t.Errorf("Node packets = %d, want %d", stats.Packets, samples)
	}

	if got := len(sink.commands()); got != 3*samples {
		t.Errorf("Emitted %d commands, want %d", got, 3*samples)
	}
}
