package driver_test

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/mailroute/internal/driver"
	"github.com/example/mailroute/internal/settings"
	"github.com/example/mailroute/internal/transport"
)

// fakeDriver is a minimal Driver for registry tests. Panics can be injected
// into Label to exercise the registry's isolation paths.
type fakeDriver struct {
	name       string
	label      string
	labelPanic bool
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) Label() string {
	if d.labelPanic {
		panic("label exploded")
	}
	return d.label
}

func (d *fakeDriver) SettingsFields() []driver.SettingsField { return nil }

func (d *fakeDriver) ValidateConfig() error { return nil }

func (d *fakeDriver) ConfigureTransport(cfg *transport.Config) {}

func (d *fakeDriver) TestConnection(ctx context.Context) driver.ConnectionTestResult {
	return driver.ValidateOnlyTest(d)
}

func fakeFactory(name, label string) driver.Factory {
	return func(settings.Store) driver.Driver {
		return &fakeDriver{name: name, label: label}
	}
}

func newTestRegistry() *driver.Registry {
	return driver.NewRegistry(settings.NewMemoryStore(nil), zerolog.New(io.Discard))
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := newTestRegistry()
	reg.Register("alpha", fakeFactory("alpha", "Alpha"))
	reg.Register("beta", fakeFactory("beta", "Beta"))

	if got := reg.Drivers(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("Drivers: got %v", got)
	}

	d := reg.GetDriver("alpha")
	if d == nil {
		t.Fatal("GetDriver returned nil for registered name")
	}
	if d.Name() != "alpha" || d.Label() != "Alpha" {
		t.Fatalf("resolved wrong driver: %s / %s", d.Name(), d.Label())
	}

	if reg.GetDriver("nope") != nil {
		t.Fatal("GetDriver returned non-nil for unknown name")
	}
}

func TestRegistryNameNormalization(t *testing.T) {
	reg := newTestRegistry()
	reg.Register("  Gamma ", fakeFactory("gamma", "Gamma"))

	if reg.GetDriver("gamma") == nil {
		t.Fatal("trimmed lowercase name did not resolve")
	}
	if reg.GetDriver("GAMMA") == nil {
		t.Fatal("lookup is expected to be case insensitive")
	}
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	tests := []struct {
		name     string
		register func(*driver.Registry)
	}{
		{
			name:     "empty name",
			register: func(r *driver.Registry) { r.Register("", fakeFactory("", "x")) },
		},
		{
			name:     "nil factory",
			register: func(r *driver.Registry) { r.Register("alpha", nil) },
		},
		{
			name: "factory returns nil",
			register: func(r *driver.Registry) {
				r.Register("alpha", func(settings.Store) driver.Driver { return nil })
			},
		},
		{
			name: "factory panics",
			register: func(r *driver.Registry) {
				r.Register("alpha", func(settings.Store) driver.Driver { panic("boom") })
			},
		},
		{
			name: "name mismatch",
			register: func(r *driver.Registry) {
				r.Register("alpha", fakeFactory("omega", "Omega"))
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			reg := newTestRegistry()
			tc.register(reg)

			if got := reg.Drivers(); len(got) != 0 {
				t.Fatalf("invalid registration was admitted: %v", got)
			}
		})
	}
}

func TestRegistryReRegisterKeepsOrder(t *testing.T) {
	reg := newTestRegistry()
	reg.Register("alpha", fakeFactory("alpha", "Alpha"))
	reg.Register("beta", fakeFactory("beta", "Beta"))
	reg.Register("alpha", fakeFactory("alpha", "Alpha v2"))

	got := reg.Drivers()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("re-registration reordered or duplicated: %v", got)
	}
	if label := reg.GetDriver("alpha").Label(); label != "Alpha v2" {
		t.Fatalf("re-registration did not replace factory: %q", label)
	}
}

func TestRegistryActiveDriver(t *testing.T) {
	store := settings.NewMemoryStore(nil)
	reg := driver.NewRegistry(store, zerolog.New(io.Discard))
	reg.Register(driver.DefaultDriverName, fakeFactory(driver.DefaultDriverName, "Default"))
	reg.Register("mailpit", fakeFactory("mailpit", "Mailpit"))

	if d := reg.ActiveDriver(); d == nil || d.Name() != driver.DefaultDriverName {
		t.Fatalf("expected bootstrap default %q, got %v", driver.DefaultDriverName, d)
	}

	if err := store.Set(settings.KeyActiveDriver, "mailpit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := reg.ActiveDriver(); d == nil || d.Name() != "mailpit" {
		t.Fatalf("expected stored selection, got %v", d)
	}

	if err := store.Set(settings.KeyActiveDriver, "removed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := reg.ActiveDriver(); d != nil {
		t.Fatalf("expected nil for unresolvable stored name, got %s", d.Name())
	}
}

func TestRegistryDriverOptionsSkipsBrokenLabel(t *testing.T) {
	reg := newTestRegistry()
	reg.Register("alpha", fakeFactory("alpha", "Alpha"))
	reg.Register("broken", func(settings.Store) driver.Driver {
		return &fakeDriver{name: "broken", labelPanic: true}
	})
	reg.Register("beta", fakeFactory("beta", "Beta"))

	got := reg.DriverOptions()
	if len(got) != 2 {
		t.Fatalf("expected 2 options, got %v", got)
	}
	if got[0] != (driver.Option{Name: "alpha", Label: "Alpha"}) {
		t.Fatalf("first option: %+v", got[0])
	}
	if got[1] != (driver.Option{Name: "beta", Label: "Beta"}) {
		t.Fatalf("second option: %+v", got[1])
	}
}
