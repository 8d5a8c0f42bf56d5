package graph

import (
	"sync"
	"time"

	"GraphTrace/internal/model"
)

// componentStore is the per-entity attribute bag. Reads and writes of
// individual components are serialized by the store's own lock, so a reader
// never observes a half-replaced component.
type componentStore struct {
	mu         sync.RWMutex
	components map[model.ComponentKind]model.Component
}

// Component returns the component of the given kind. The second result is
// false when the entity holds no component of that kind; this is a valid
// state, not an error.
func (s *componentStore) Component(kind model.ComponentKind) (model.Component, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.components[kind]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// SetComponent replaces any prior component of the same kind.
func (s *componentStore) SetComponent(c model.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components[c.Kind()] = c.Clone()
}

// RemoveComponent drops the component of the given kind, if present.
func (s *componentStore) RemoveComponent(kind model.ComponentKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.components, kind)
}

// AddTraffic folds one observed packet into the entity's traffic statistics
// and returns the resulting totals. The read-modify-write runs under the
// store lock so concurrent workers never lose an update.
func (s *componentStore) AddTraffic(packets, bytes uint64, at time.Time) model.TrafficStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, _ := s.components[model.KindTrafficStats].(model.TrafficStats)
	if stats.FirstSeen.IsZero() {
		stats.FirstSeen = at
	}
	stats.LastSeen = at
	stats.Packets += packets
	stats.Bytes += bytes
	s.components[model.KindTrafficStats] = stats
	return stats
}

// cloneComponents returns a deep copy of the component map.
func (s *componentStore) cloneComponents() map[model.ComponentKind]model.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.ComponentKind]model.Component, len(s.components))
	for k, c := range s.components {
		out[k] = c.Clone()
	}
	return out
}

// Node is one observed host, keyed by its address. Nodes are created on
// first observation and live as long as the graph does unless removed by
// administrative logic.
type Node struct {
	addr model.Address
	componentStore
}

func newNode(addr model.Address) *Node {
	return &Node{
		addr:           addr,
		componentStore: componentStore{components: make(map[model.ComponentKind]model.Component)},
	}
}

// Address returns the node's immutable key.
func (n *Node) Address() model.Address { return n.addr }

func (n *Node) clone() *Node {
	return &Node{
		addr:           n.addr,
		componentStore: componentStore{components: n.cloneComponents()},
	}
}

// Connection is directed observed traffic from one node to another, keyed
// by the ordered (source, destination) pair. Repeat traffic between the same
// pair collapses into updated statistics on the existing connection.
type Connection struct {
	src, dst model.Address
	componentStore
}

func newConnection(src, dst model.Address) *Connection {
	return &Connection{
		src:            src,
		dst:            dst,
		componentStore: componentStore{components: make(map[model.ComponentKind]model.Component)},
	}
}

// Source returns the source endpoint address.
func (c *Connection) Source() model.Address { return c.src }

// Destination returns the destination endpoint address.
func (c *Connection) Destination() model.Address { return c.dst }

func (c *Connection) clone() *Connection {
	return &Connection{
		src:            c.src,
		dst:            c.dst,
		componentStore: componentStore{components: c.cloneComponents()},
	}
}
