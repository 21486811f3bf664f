package driver

import "github.com/example/mailroute/internal/settings"

// Options is the namespaced settings accessor drivers read their
// configuration through. Going through Options exclusively is what keeps
// driver option namespaces from colliding.
type Options struct {
	driver string
	store  settings.Store
}

// NewOptions binds an accessor to a driver name and store.
func NewOptions(driverName string, store settings.Store) Options {
	return Options{driver: driverName, store: store}
}

// Get reads a driver scoped string option.
func (o Options) Get(key, def string) string {
	return o.store.Get(settings.DriverKey(o.driver, key), def)
}

// GetInt reads a driver scoped integer option.
func (o Options) GetInt(key string, def int) int {
	return o.store.GetInt(settings.DriverKey(o.driver, key), def)
}

// GetBool reads a driver scoped boolean option.
func (o Options) GetBool(key string, def bool) bool {
	return o.store.GetBool(settings.DriverKey(o.driver, key), def)
}
