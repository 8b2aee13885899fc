package toolmgr

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDescriptor is one entry of the aggregated catalog: a tool advertised by
// a currently-connected server, tagged with its origin.
type ToolDescriptor struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	InputSchema  any    `json:"inputSchema,omitempty"`
	SourceServer string `json:"sourceServer"`
}

// registry derives the aggregated catalog from supervisor snapshots. It holds
// no state of its own: every query rebuilds the catalog from whatever the
// supervisors currently cache, so the view is always as fresh as the last
// completed probe or connect of each server.
type registry struct {
	order  []*supervisor // configuration order
	policy CollisionPolicy
	logger *slog.Logger
}

// catalogEntry pairs a published descriptor with what the router needs to
// dispatch it: the original declaration and the snapshot generation it came
// from.
type catalogEntry struct {
	descriptor ToolDescriptor
	tool       *mcp.Tool
	server     string
	gen        uint64
}

// catalog is a point-in-time aggregation. It is never mutated after build.
type catalog struct {
	entries []catalogEntry
	byName  map[string]int
}

// build assembles the catalog from Connected servers only, in configuration
// order, preserving each server's tool declaration order. Name collisions are
// settled by the configured CollisionPolicy; excluded tools are logged.
func (r *registry) build() *catalog {
	c := &catalog{byName: make(map[string]int)}
	for _, sup := range r.order {
		snap := sup.snapshot()
		if snap.status != StatusConnected {
			continue
		}
		for _, tool := range snap.tools {
			name := tool.Name
			if prior, dup := c.byName[name]; dup {
				resolved, ok := r.policy.Resolve(snap.name, tool.Name)
				if !ok {
					r.logger.Warn("tool name collision, excluding duplicate",
						"tool", tool.Name,
						"server", snap.name,
						"kept_server", c.entries[prior].server)
					continue
				}
				if _, taken := c.byName[resolved]; taken {
					r.logger.Warn("tool name collision unresolved, excluding duplicate",
						"tool", tool.Name,
						"server", snap.name,
						"resolved", resolved)
					continue
				}
				name = resolved
			}
			c.byName[name] = len(c.entries)
			c.entries = append(c.entries, catalogEntry{
				descriptor: ToolDescriptor{
					Name:         name,
					Description:  tool.Description,
					InputSchema:  tool.InputSchema,
					SourceServer: snap.name,
				},
				tool:   tool,
				server: snap.name,
				gen:    snap.gen,
			})
		}
	}
	return c
}

// toolsFor returns the descriptors contributed by one server, or nil when the
// server is unknown or not Connected.
func (r *registry) toolsFor(serverName string) []ToolDescriptor {
	for _, sup := range r.order {
		if sup.cfg.Name != serverName {
			continue
		}
		snap := sup.snapshot()
		if snap.status != StatusConnected {
			return nil
		}
		out := make([]ToolDescriptor, 0, len(snap.tools))
		for _, tool := range snap.tools {
			out = append(out, ToolDescriptor{
				Name:         tool.Name,
				Description:  tool.Description,
				InputSchema:  tool.InputSchema,
				SourceServer: snap.name,
			})
		}
		return out
	}
	return nil
}

func (c *catalog) descriptors() []ToolDescriptor {
	out := make([]ToolDescriptor, len(c.entries))
	for i, entry := range c.entries {
		out[i] = entry.descriptor
	}
	return out
}

func (c *catalog) lookup(name string) (catalogEntry, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return catalogEntry{}, false
	}
	return c.entries[idx], true
}
