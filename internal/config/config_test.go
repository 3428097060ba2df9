package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventGap != 36*time.Hour {
		t.Errorf("expected 36h event gap, got %s", cfg.EventGap)
	}
	if cfg.Workers != 2 || cfg.Queue != "photos" {
		t.Errorf("unexpected worker settings %d %q", cfg.Workers, cfg.Queue)
	}
	if cfg.ObjectStoreEnabled() {
		t.Errorf("object store must be off by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EVENT_GAP", "6h")
	t.Setenv("MAPBOX_API_KEY", "pk.test")
	t.Setenv("PHOTOJOBS_WORKERS", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventGap != 6*time.Hour || cfg.MapboxAPIKey != "pk.test" || cfg.Workers != 8 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photojobs.yaml")
	content := []byte("workers: 4\nevent_gap: 12h\nqueue: batch\nverify_locations: true\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PHOTOJOBS_QUEUE", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 4 || cfg.EventGap != 12*time.Hour || !cfg.VerifyLocations {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Queue != "from-env" {
		t.Errorf("environment must win over file, got %q", cfg.Queue)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero workers", map[string]string{"PHOTOJOBS_WORKERS": "0"}},
		{"negative gap", map[string]string{"EVENT_GAP": "-1h"}},
		{"unparsable gap", map[string]string{"EVENT_GAP": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
