package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/mailroute/internal/settings"
)

func TestMemoryStoreDefaults(t *testing.T) {
	store := settings.NewMemoryStore(map[string]string{
		"present": "value",
		"flag":    "1",
		"port":    "1025",
		"bad_int": "abc",
	})

	if got := store.Get("present", "def"); got != "value" {
		t.Fatalf("Get present: got %q", got)
	}
	if got := store.Get("absent", "def"); got != "def" {
		t.Fatalf("Get absent: got %q", got)
	}
	if got := store.GetBool("flag", false); !got {
		t.Fatal("GetBool: expected checkbox value \"1\" to parse as true")
	}
	if got := store.GetBool("absent", true); !got {
		t.Fatal("GetBool absent: expected default")
	}
	if got := store.GetInt("port", 0); got != 1025 {
		t.Fatalf("GetInt: got %d", got)
	}
	if got := store.GetInt("bad_int", 7); got != 7 {
		t.Fatalf("GetInt unparsable: got %d, want default", got)
	}
}

func TestMemoryStoreSetEmptyDeletes(t *testing.T) {
	store := settings.NewMemoryStore(map[string]string{"key": "value"})

	if err := store.Set("key", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Get("key", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback after delete, got %q", got)
	}
}

func TestDriverKeyNamespacing(t *testing.T) {
	store := settings.NewMemoryStore(nil)

	if err := store.Set(settings.DriverKey("smtpcom", "api_key"), "key-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Set(settings.DriverKey("sendgrid", "api_key"), "key-b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.Get(settings.DriverKey("smtpcom", "api_key"), ""); got != "key-a" {
		t.Fatalf("smtpcom key: got %q", got)
	}
	if got := store.Get(settings.DriverKey("sendgrid", "api_key"), ""); got != "key-b" {
		t.Fatalf("sendgrid key: got %q", got)
	}
}

func TestGlobalKey(t *testing.T) {
	if got := settings.GlobalKey("from_email"); got != settings.KeyFromEmail {
		t.Fatalf("GlobalKey: got %q, want %q", got, settings.KeyFromEmail)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store, err := settings.OpenFileStore(path)
	if err != nil {
		t.Fatalf("open empty store: %v", err)
	}
	if err := store.Set(settings.KeyActiveDriver, "mailpit"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(settings.DriverKey("mailpit", "port"), "2525"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened, err := settings.OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Get(settings.KeyActiveDriver, ""); got != "mailpit" {
		t.Fatalf("active driver after reopen: got %q", got)
	}
	if got := reopened.GetInt(settings.DriverKey("mailpit", "port"), 0); got != 2525 {
		t.Fatalf("port after reopen: got %d", got)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := settings.OpenFileStore(path); err == nil {
		t.Fatal("expected error for corrupt document")
	}
}
