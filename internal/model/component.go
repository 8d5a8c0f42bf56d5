package model

import "time"

// ComponentKind identifies the capability a component provides. An entity
// holds at most one component per kind.
type ComponentKind uint8

const (
	// KindTrafficStats marks the traffic counter component.
	KindTrafficStats ComponentKind = iota + 1
	// KindFilterMatch marks the filter match component.
	KindFilterMatch
)

// String returns the component kind name used in logs and API payloads.
func (k ComponentKind) String() string {
	switch k {
	case KindTrafficStats:
		return "traffic_stats"
	case KindFilterMatch:
		return "filter_match"
	default:
		return "unknown"
	}
}

// Component is a typed attribute record attached to a node or connection.
// Implementations are value-like: Clone must return a copy that shares no
// mutable state with the receiver.
type Component interface {
	Kind() ComponentKind
	Clone() Component
}

// TrafficStats accumulates observed traffic for one entity.
type TrafficStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Packets   uint64
	Bytes     uint64
}

// Kind implements Component.
func (s TrafficStats) Kind() ComponentKind { return KindTrafficStats }

// Clone implements Component.
func (s TrafficStats) Clone() Component { return s }

// FilterMatch records that a filter matched the owning entity.
type FilterMatch struct {
	FilterName string
	Color      uint32 // 0xRRGGBB
	Safe       bool   // whitelist match when true, blacklist otherwise
	Priority   int
}

// Kind implements Component.
func (m FilterMatch) Kind() ComponentKind { return KindFilterMatch }

// Clone implements Component.
func (m FilterMatch) Clone() Component { return m }
