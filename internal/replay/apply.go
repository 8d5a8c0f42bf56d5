package replay

import (
	"fmt"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
)

// Apply executes one command against the graph. The switch is exhaustive
// over the closed command set; an unknown command type is an invariant
// breach surfaced as an error since it would corrupt replay fidelity.
//
// Update commands set absolute state, so re-applying one is idempotent and
// consecutive updates to the same entity collapse to the last one. Filters
// act on the nodes present at the moment they run, which is why command
// log compression never reorders updates across a FilterApply.
func Apply(g *graph.Graph, cmd model.Command) error {
	switch c := cmd.(type) {
	case model.NodeUpdate:
		g.UpsertNode(c.Addr).SetComponent(c.Stats)
		return nil

	case model.ConnectionUpdate:
		g.UpsertConnection(c.Src, c.Dst).SetComponent(c.Stats)
		return nil

	case model.FilterApply:
		match := model.FilterMatch{
			FilterName: c.Name,
			Color:      c.Color,
			Safe:       c.Safe,
			Priority:   c.Priority,
		}
		for _, n := range g.Nodes() {
			for _, r := range c.Ranges {
				if r.Contains(n.Address()) {
					n.SetComponent(match)
					break
				}
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown command type %T", cmd)
	}
}

// ApplyAll executes commands in order, stopping at the first failure.
func ApplyAll(g *graph.Graph, cmds []TimedCommand) error {
	for _, tc := range cmds {
		if err := Apply(g, tc.Command); err != nil {
			return err
		}
	}
	return nil
}
