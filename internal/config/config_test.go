package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshCron != DefaultRefreshCron || cfg.Panel.SPIHz != DefaultSPIHz {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	if perm := st.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}
}

func TestLoadFillsMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
timezone: Europe/Berlin
panel:
  busy: GPIO5
battery:
  mode: bogus
ics:
  - url: https://example.com/a.ics
  - url: https://example.com/b.ics
    id: work
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Panel.Busy != "GPIO5" || cfg.Panel.SPIHz != DefaultSPIHz || cfg.Panel.PollMillis != DefaultPollMillis {
		t.Fatalf("unexpected panel config %+v", cfg.Panel)
	}
	if cfg.Battery.Mode != "off" || cfg.Battery.Addr != DefaultBatteryAddr {
		t.Fatalf("unexpected battery config %+v", cfg.Battery)
	}
	if cfg.ICS[0].ID != "ics1" || cfg.ICS[1].ID != "work" {
		t.Fatalf("unexpected ics ids %q %q", cfg.ICS[0].ID, cfg.ICS[1].ID)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %v", cfg.Location())
	}
	if cfg.PollInterval() != 100*time.Millisecond {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval())
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ics: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Board.Title = "Kitchen"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Board.Title != "Kitchen" || got.BasicAuth == nil || got.BasicAuth.Username != "u" {
		t.Fatalf("unexpected reloaded config %+v", got)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Nowhere/Special"
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.Location())
	}
}
