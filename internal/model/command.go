package model

import "fmt"

// CommandKind identifies the concrete type of a Command.
type CommandKind uint8

const (
	// KindNodeUpdate updates one node's traffic statistics.
	KindNodeUpdate CommandKind = iota + 1
	// KindConnectionUpdate updates one connection's traffic statistics.
	KindConnectionUpdate
	// KindFilterApply stamps a filter match onto all nodes a filter matches.
	KindFilterApply
)

// Command is an immutable description of one graph mutation. The set of
// implementations is closed: NodeUpdate, ConnectionUpdate and FilterApply.
// Replay dispatch switches exhaustively over these types.
//
// Update commands carry absolute post-update state rather than deltas, so
// that keeping only the last command per entity within an interval
// reproduces the exact final state on replay.
type Command interface {
	CommandKind() CommandKind

	// EntityKey returns the key commands are collapsed by during command
	// log compression. Commands with equal keys supersede one another.
	EntityKey() string
}

// NodeUpdate sets a node's traffic statistics to the carried values,
// creating the node if it does not exist yet.
type NodeUpdate struct {
	Addr  Address
	Stats TrafficStats
}

// CommandKind implements Command.
func (c NodeUpdate) CommandKind() CommandKind { return KindNodeUpdate }

// EntityKey implements Command.
func (c NodeUpdate) EntityKey() string { return fmt.Sprintf("n:%d", uint32(c.Addr)) }

// ConnectionUpdate sets a connection's traffic statistics to the carried
// values, creating the connection and its endpoints if absent.
type ConnectionUpdate struct {
	Src   Address
	Dst   Address
	Stats TrafficStats
}

// CommandKind implements Command.
func (c ConnectionUpdate) CommandKind() CommandKind { return KindConnectionUpdate }

// EntityKey implements Command.
func (c ConnectionUpdate) EntityKey() string {
	return fmt.Sprintf("c:%d>%d", uint32(c.Src), uint32(c.Dst))
}

// AddressRange is one inclusive filter rule over the 32-bit address space.
type AddressRange struct {
	From Address
	To   Address
}

// Contains reports whether addr falls inside the range.
func (r AddressRange) Contains(addr Address) bool {
	return addr >= r.From && addr <= r.To
}

// FilterApply stamps a FilterMatch component onto every current node that
// falls inside one of the filter's address ranges.
type FilterApply struct {
	Name     string
	Ranges   []AddressRange
	Color    uint32
	Safe     bool
	Priority int
}

// CommandKind implements Command.
func (c FilterApply) CommandKind() CommandKind { return KindFilterApply }

// EntityKey implements Command.
func (c FilterApply) EntityKey() string { return "f:" + c.Name }
