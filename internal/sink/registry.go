// internal/sink/registry.go
package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/user/artifactdl/internal/types"
)

// Registry routes archives to the sink whose prefix matches the destination
// (e.g. "file:", "s3:", "telegram:"). The remainder of the destination after
// the prefix is passed to the sink as its target.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]types.ArchiveSink
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[string]types.ArchiveSink),
	}
}

// Register adds a sink for destinations starting with prefix.
func (r *Registry) Register(prefix string, sink types.ArchiveSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[prefix] = sink
}

// Prefixes returns the registered prefixes.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sinks))
	for p := range r.sinks {
		out = append(out, p)
	}
	return out
}

// Deliver finds the sink with the longest prefix matching destination and
// hands it the archive. Returns an error if no sink is registered for it.
func (r *Registry) Deliver(ctx context.Context, destination, name string, data []byte) (string, error) {
	r.mu.RLock()
	var (
		best   string
		target types.ArchiveSink
	)
	for prefix, s := range r.sinks {
		if strings.HasPrefix(destination, prefix) && (target == nil || len(prefix) > len(best)) {
			best, target = prefix, s
		}
	}
	r.mu.RUnlock()

	if target == nil {
		return "", fmt.Errorf("no sink for destination: %s", destination)
	}
	return target.Deliver(ctx, strings.TrimPrefix(destination, best), name, data)
}
