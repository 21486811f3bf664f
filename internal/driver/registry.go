package driver

import (
	"reflect"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/mailroute/internal/settings"
)

// DefaultDriverName is the bootstrap driver used when no active driver has
// been selected yet.
const DefaultDriverName = "sendgrid"

// Option pairs a driver name with its display label, for selector lists.
type Option struct {
	Name  string
	Label string
}

// Registry maps driver names to factories. It is populated during an
// explicit startup phase and read-mostly afterwards; the lock exists so
// concurrent readers during traffic are safe by construction.
type Registry struct {
	mu        sync.RWMutex
	store     settings.Store
	logger    zerolog.Logger
	order     []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry bound to the supplied store.
func NewRegistry(store settings.Store, logger zerolog.Logger) *Registry {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Registry{
		store:     store,
		logger:    logger,
		factories: make(map[string]Factory),
	}
}

// Register adds a driver factory under name. Invalid registrations (empty
// name, nil factory, a factory that panics or produces nothing, or a driver
// whose Name disagrees with the registration name) are silently ignored:
// registration often happens inside extension hooks outside our control and
// one broken extension must not take the process down.
func (r *Registry) Register(name string, factory Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || factory == nil {
		r.logger.Warn().Str("driver", name).Msg("ignoring invalid driver registration")
		return
	}

	if !r.probe(name, factory) {
		r.logger.Warn().Str("driver", name).Msg("ignoring non-conforming driver registration")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// probe constructs a throwaway instance to verify the factory honours the
// Driver contract before it is admitted to the registry.
func (r *Registry) probe(name string, factory Factory) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()

	d := factory(r.store)
	return d != nil && d.Name() == name
}

// Drivers returns the registered driver names in registration order.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// GetDriver constructs a fresh instance of the named driver, or nil when
// the name is unknown.
func (r *Registry) GetDriver(name string) Driver {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return factory(r.store)
}

// ActiveDriver resolves the currently selected driver from the settings
// store, defaulting to DefaultDriverName. It returns nil when the stored
// name no longer resolves.
func (r *Registry) ActiveDriver() Driver {
	name := r.store.Get(settings.KeyActiveDriver, DefaultDriverName)
	return r.GetDriver(name)
}

// DriverOptions returns name/label pairs in registration order for
// presentation. A driver whose label construction panics is skipped rather
// than breaking the selector list for every other driver.
func (r *Registry) DriverOptions() []Option {
	names := r.Drivers()
	options := make([]Option, 0, len(names))

	for _, name := range names {
		label, ok := r.labelFor(name)
		if !ok {
			r.logger.Warn().Str("driver", name).Msg("driver label construction failed; skipping")
			continue
		}
		options = append(options, Option{Name: name, Label: label})
	}

	return options
}

func (r *Registry) labelFor(name string) (label string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			label, ok = "", false
		}
	}()

	d := r.GetDriver(name)
	if d == nil {
		return "", false
	}
	return d.Label(), true
}
