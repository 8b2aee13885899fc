package toolmgr

import "fmt"

// CollisionPolicy decides what happens when a Connected server advertises a
// tool name already claimed by an earlier server in configuration order. The
// earlier server always keeps the plain name. Implementations must be
// deterministic for a given server/tool pair.
type CollisionPolicy interface {
	// Resolve returns the catalog name to publish the colliding tool under,
	// or ok=false to exclude it from the catalog.
	Resolve(serverName, toolName string) (name string, ok bool)
}

// FirstWins excludes colliding tools: the earliest server in configuration
// order keeps the name and later duplicates are dropped with a warning.
// This is the default policy.
type FirstWins struct{}

func (FirstWins) Resolve(serverName, toolName string) (string, bool) {
	return "", false
}

// ServerPrefix publishes colliding tools under "<server><separator><tool>"
// instead of dropping them, so a duplicate name never shadows a capability.
// The separator defaults to "__".
type ServerPrefix struct {
	Separator string
}

func (s ServerPrefix) separator() string {
	if s.Separator == "" {
		return "__"
	}
	return s.Separator
}

func (s ServerPrefix) Resolve(serverName, toolName string) (string, bool) {
	return fmt.Sprintf("%s%s%s", serverName, s.separator(), toolName), true
}
