// Package repository implements the concurrency-safe tool repository
// (spec §4.3): an in-memory store mapping manuals to their call templates
// and tools, enforcing single-manual-per-name and returning defensive
// copies from every read. The locking discipline (one mutex serializing
// writes, RWMutex-style concurrent reads) is modeled on the teacher's
// runtime/registry.Manager and runtime/registry/cache.go MemoryCache.
package repository

import (
	"context"

	"goa.design/utcp/pkg/kindregistry"
	"goa.design/utcp/pkg/utcptypes"
)

// Repository is the contract every repository kind must satisfy. All
// operations are safe for concurrent use; writes serialize, reads may run
// concurrently with other reads.
type Repository interface {
	// SaveManual atomically replaces any prior manual of the same name
	// (removing its tools first), stores deep copies of template and
	// manual, and inserts each tool into the tool map.
	SaveManual(ctx context.Context, template utcptypes.CallTemplate, manual *utcptypes.Manual) error
	// RemoveManual atomically removes a manual and its tools.
	RemoveManual(ctx context.Context, name string) (bool, error)
	// RemoveTool removes a tool and, if its owning manual still exists,
	// removes it from that manual's tool list too.
	RemoveTool(ctx context.Context, fqName string) (bool, error)

	GetTool(ctx context.Context, fqName string) (*utcptypes.Tool, error)
	GetTools(ctx context.Context) ([]*utcptypes.Tool, error)
	GetToolsByManual(ctx context.Context, manualName string) ([]*utcptypes.Tool, error)
	GetManual(ctx context.Context, name string) (*utcptypes.Manual, error)
	GetManuals(ctx context.Context) ([]*utcptypes.Manual, error)
	GetManualCallTemplate(ctx context.Context, name string) (utcptypes.CallTemplate, error)
	GetManualCallTemplates(ctx context.Context) ([]utcptypes.CallTemplate, error)
}

// KindInMemory is the only built-in repository kind.
const KindInMemory = "in_memory"

// Factory builds a Repository from a decoded tool_repository config.
type Factory func() (Repository, error)

// Kinds is the registry of repository kinds, keyed by repository kind name.
var Kinds = kindregistry.New[Factory]("tool_repository")

var bootstrap kindregistry.Guard

// Bootstrap installs the built-in in_memory repository kind.
func Bootstrap() {
	bootstrap.Do(func() {
		Kinds.Register(KindInMemory, func() (Repository, error) {
			return NewInMemory(), nil
		}, false)
	})
}
