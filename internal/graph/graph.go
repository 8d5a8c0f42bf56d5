// Package graph implements the concurrent network graph: hosts as nodes,
// observed connections as directed edges, both carrying component stores.
// Node and connection maps are sharded with a read-write lock per shard, so
// ingestion, rendering reads and snapshotting proceed concurrently.
package graph

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"GraphTrace/internal/model"
)

// ErrNotFound is returned by non-upsert lookups for unknown keys.
var ErrNotFound = errors.New("not found")

const defaultShardCount = 256

// PairKey identifies a connection by its ordered endpoint pair.
type PairKey struct {
	Src model.Address
	Dst model.Address
}

func (k PairKey) String() string {
	return fmt.Sprintf("%s>%s", k.Src, k.Dst)
}

type nodeShard struct {
	mu    sync.RWMutex
	nodes map[model.Address]*Node
}

type connShard struct {
	mu    sync.RWMutex
	conns map[PairKey]*Connection
}

// Graph is the concurrent mutable directed graph of hosts and connections.
// All methods are safe for concurrent use.
type Graph struct {
	nodeShards []*nodeShard
	connShards []*connShard
	shardCount uint32
}

// New creates an empty graph with the given shard count. Counts outside
// (0, 32768) fall back to the default.
func New(numShards uint32) *Graph {
	if numShards == 0 || numShards >= 32768 {
		numShards = defaultShardCount
	}
	g := &Graph{
		nodeShards: make([]*nodeShard, numShards),
		connShards: make([]*connShard, numShards),
		shardCount: numShards,
	}
	for i := uint32(0); i < numShards; i++ {
		g.nodeShards[i] = &nodeShard{nodes: make(map[model.Address]*Node)}
		g.connShards[i] = &connShard{conns: make(map[PairKey]*Connection)}
	}
	return g
}

func (g *Graph) nodeShard(addr model.Address) *nodeShard {
	b := addr.Bytes()
	h := fnv.New32a()
	h.Write(b[:])
	return g.nodeShards[h.Sum32()%g.shardCount]
}

func (g *Graph) connShard(key PairKey) *connShard {
	sb, db := key.Src.Bytes(), key.Dst.Bytes()
	h := fnv.New32a()
	h.Write(sb[:])
	h.Write(db[:])
	return g.connShards[h.Sum32()%g.shardCount]
}

// UpsertNode returns the node for addr, creating and inserting it first if
// the address has not been observed before.
func (g *Graph) UpsertNode(addr model.Address) *Node {
	shard := g.nodeShard(addr)

	shard.mu.RLock()
	n, ok := shard.nodes[addr]
	shard.mu.RUnlock()
	if ok {
		return n
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if n, ok = shard.nodes[addr]; ok {
		return n
	}
	n = newNode(addr)
	shard.nodes[addr] = n
	return n
}

// Node returns the node for addr, or ErrNotFound.
func (g *Graph) Node(addr model.Address) (*Node, error) {
	shard := g.nodeShard(addr)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	if n, ok := shard.nodes[addr]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("node %s: %w", addr, ErrNotFound)
}

// UpsertConnection returns the connection for the ordered (src, dst) pair,
// creating it first if this pair has not been observed before. Both
// endpoints are upserted as nodes, so the endpoint invariant holds by
// construction.
func (g *Graph) UpsertConnection(src, dst model.Address) *Connection {
	g.UpsertNode(src)
	g.UpsertNode(dst)

	key := PairKey{Src: src, Dst: dst}
	shard := g.connShard(key)

	shard.mu.RLock()
	c, ok := shard.conns[key]
	shard.mu.RUnlock()
	if ok {
		return c
	}

	// Endpoint check runs before the shard write lock is taken; no code
	// path holds more than one shard lock at a time.
	g.assertEndpoints(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if c, ok = shard.conns[key]; ok {
		return c
	}
	c = newConnection(src, dst)
	shard.conns[key] = c
	return c
}

// assertEndpoints panics when a connection is about to be inserted while one
// of its endpoints is missing from the graph. That state cannot be reached
// through the public API and indicates a programming error.
func (g *Graph) assertEndpoints(key PairKey) {
	if _, err := g.Node(key.Src); err != nil {
		panic(fmt.Sprintf("graph invariant violated: connection %s references absent source node", key))
	}
	if _, err := g.Node(key.Dst); err != nil {
		panic(fmt.Sprintf("graph invariant violated: connection %s references absent destination node", key))
	}
}

// Connection returns the connection for the ordered (src, dst) pair, or
// ErrNotFound. It never creates one.
func (g *Graph) Connection(src, dst model.Address) (*Connection, error) {
	key := PairKey{Src: src, Dst: dst}
	shard := g.connShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	if c, ok := shard.conns[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("connection %s: %w", key, ErrNotFound)
}

// RemoveConnection drops the connection for the ordered pair. Removing an
// unknown pair is a no-op.
func (g *Graph) RemoveConnection(src, dst model.Address) {
	key := PairKey{Src: src, Dst: dst}
	shard := g.connShard(key)
	shard.mu.Lock()
	delete(shard.conns, key)
	shard.mu.Unlock()
}

// RemoveNode drops the node for addr together with every connection that
// references it, preserving the endpoint invariant. Removing an unknown
// address is a no-op.
func (g *Graph) RemoveNode(addr model.Address) {
	for _, shard := range g.connShards {
		shard.mu.Lock()
		for key := range shard.conns {
			if key.Src == addr || key.Dst == addr {
				delete(shard.conns, key)
			}
		}
		shard.mu.Unlock()
	}

	shard := g.nodeShard(addr)
	shard.mu.Lock()
	delete(shard.nodes, addr)
	shard.mu.Unlock()
}

// Nodes returns the current nodes as of the call. The slice is a private
// copy; the nodes it points to are the live entities.
func (g *Graph) Nodes() []*Node {
	var out []*Node
	for _, shard := range g.nodeShards {
		shard.mu.RLock()
		for _, n := range shard.nodes {
			out = append(out, n)
		}
		shard.mu.RUnlock()
	}
	return out
}

// Connections returns the current connections as of the call.
func (g *Graph) Connections() []*Connection {
	var out []*Connection
	for _, shard := range g.connShards {
		shard.mu.RLock()
		for _, c := range shard.conns {
			out = append(out, c)
		}
		shard.mu.RUnlock()
	}
	return out
}

// NodeCount returns the number of nodes currently in the graph.
func (g *Graph) NodeCount() int {
	total := 0
	for _, shard := range g.nodeShards {
		shard.mu.RLock()
		total += len(shard.nodes)
		shard.mu.RUnlock()
	}
	return total
}

// ConnectionCount returns the number of connections currently in the graph.
func (g *Graph) ConnectionCount() int {
	total := 0
	for _, shard := range g.connShards {
		shard.mu.RLock()
		total += len(shard.conns)
		shard.mu.RUnlock()
	}
	return total
}

// SnapshotCopy returns a fully independent deep copy of the graph
// reflecting a single consistent instant. All shard read locks are held for
// the duration of the copy (the copy barrier): concurrent readers proceed,
// mutations wait for the copy. The shards themselves are copied in parallel.
func (g *Graph) SnapshotCopy() *Graph {
	for _, shard := range g.nodeShards {
		shard.mu.RLock()
	}
	for _, shard := range g.connShards {
		shard.mu.RLock()
	}
	defer func() {
		for _, shard := range g.nodeShards {
			shard.mu.RUnlock()
		}
		for _, shard := range g.connShards {
			shard.mu.RUnlock()
		}
	}()

	snap := New(g.shardCount)

	var wg sync.WaitGroup
	wg.Add(int(g.shardCount) * 2)

	for i := uint32(0); i < g.shardCount; i++ {
		go func(i uint32) {
			defer wg.Done()
			src := g.nodeShards[i]
			copied := make(map[model.Address]*Node, len(src.nodes))
			for addr, n := range src.nodes {
				copied[addr] = n.clone()
			}
			snap.nodeShards[i].nodes = copied
		}(i)

		go func(i uint32) {
			defer wg.Done()
			src := g.connShards[i]
			copied := make(map[PairKey]*Connection, len(src.conns))
			for key, c := range src.conns {
				copied[key] = c.clone()
			}
			snap.connShards[i].conns = copied
		}(i)
	}

	wg.Wait()
	return snap
}
