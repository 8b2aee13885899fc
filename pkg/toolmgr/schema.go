package toolmgr

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// compileSchema turns a tool's advertised input schema (an arbitrary JSON
// value) into a resolved validator. A tool that advertises no schema gets a
// permissive empty object schema.
func compileSchema(raw any) (*jsonschema.Resolved, error) {
	var schema *jsonschema.Schema
	if raw == nil {
		schema = &jsonschema.Schema{Type: "object"}
	} else {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("toolmgr: marshal input schema: %w", err)
		}
		schema = new(jsonschema.Schema)
		if err := json.Unmarshal(encoded, schema); err != nil {
			return nil, fmt.Errorf("toolmgr: parse input schema: %w", err)
		}
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("toolmgr: resolve input schema: %w", err)
	}
	return resolved, nil
}

// schemaCache memoizes resolved validators per server and tool cache
// generation. A server's entries are discarded wholesale whenever its tool
// cache is refreshed, so validators never outlive the declarations they were
// compiled from.
type schemaCache struct {
	mu       sync.Mutex
	byServer map[string]*serverSchemas
}

type serverSchemas struct {
	gen      uint64
	resolved map[string]*jsonschema.Resolved
}

func newSchemaCache() *schemaCache {
	return &schemaCache{byServer: make(map[string]*serverSchemas)}
}

// resolve returns the validator for a catalog entry, compiling and caching it
// on first use within the entry's cache generation.
func (c *schemaCache) resolve(entry catalogEntry, tool *mcp.Tool) (*jsonschema.Resolved, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ss := c.byServer[entry.server]
	if ss == nil || ss.gen != entry.gen {
		ss = &serverSchemas{gen: entry.gen, resolved: make(map[string]*jsonschema.Resolved)}
		c.byServer[entry.server] = ss
	}
	if resolved, ok := ss.resolved[tool.Name]; ok {
		return resolved, nil
	}
	resolved, err := compileSchema(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	ss.resolved[tool.Name] = resolved
	return resolved, nil
}
