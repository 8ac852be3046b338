// Package registry holds the application currently being served. Readers
// never lock: a reload swaps in a new snapshot atomically.
package registry

import (
	"sync/atomic"
	"time"

	"github.com/omnera-dev/omnera/model"
)

// snapshot is an immutable view of one resolved application.
type snapshot struct {
	app      *model.Application
	checksum string
	loadedAt time.Time
}

// Registry is a read-optimized, thread-safe holder of the resolved
// application.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// New returns an empty registry. Lookups fail until Replace is called.
func New() *Registry {
	return &Registry{}
}

// Replace atomically swaps in app. A nil app empties the registry.
func (r *Registry) Replace(app *model.Application, checksum string) {
	if app == nil {
		r.snap.Store(nil)
		return
	}
	r.snap.Store(&snapshot{app: app, checksum: checksum, loadedAt: time.Now().UTC()})
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Loaded reports whether an application is being served.
func (r *Registry) Loaded() bool {
	return r.current() != nil
}

// Application returns the current application.
func (r *Registry) Application() (*model.Application, bool) {
	s := r.current()
	if s == nil {
		return nil, false
	}
	return s.app, true
}

// Checksum returns the checksum of the document the current application was
// resolved from.
func (r *Registry) Checksum() string {
	if s := r.current(); s != nil {
		return s.checksum
	}
	return ""
}

// LoadedAt returns when the current application was installed.
func (r *Registry) LoadedAt() time.Time {
	if s := r.current(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}

// GetTable returns the table with the given id.
func (r *Registry) GetTable(id string) (model.Entity[model.Table], bool) {
	s := r.current()
	if s == nil {
		return model.Entity[model.Table]{}, false
	}
	return s.app.Tables.Get(id)
}

// GetPage returns the page with the given id.
func (r *Registry) GetPage(id string) (model.Entity[model.Page], bool) {
	s := r.current()
	if s == nil {
		return model.Entity[model.Page]{}, false
	}
	return s.app.Pages.Get(id)
}

// GetAutomation returns the automation with the given id.
func (r *Registry) GetAutomation(id string) (model.Entity[model.Automation], bool) {
	s := r.current()
	if s == nil {
		return model.Entity[model.Automation]{}, false
	}
	return s.app.Automations.Get(id)
}

// GetConnection returns the connection with the given id.
func (r *Registry) GetConnection(id string) (model.Entity[model.Connection], bool) {
	s := r.current()
	if s == nil {
		return model.Entity[model.Connection]{}, false
	}
	return s.app.Connections.Get(id)
}
