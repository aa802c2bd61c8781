package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "physics.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[storage.bodies]
capacity = 8
growth = 4

[simulation]
step = "10ms"
max_sub_steps = 3
gravity = [0.0, -1.0, 0.0]

[scene]
path = "scenes/demo.yaml"

[logging]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Bodies.Capacity != 8 || cfg.Storage.Bodies.Growth != 4 {
		t.Fatalf("bodies = %+v", cfg.Storage.Bodies)
	}
	if cfg.Storage.Shapes != Defaults().Storage.Shapes {
		t.Fatalf("shapes default lost: %+v", cfg.Storage.Shapes)
	}
	if cfg.Simulation.Step != 10*time.Millisecond || cfg.Simulation.MaxSubSteps != 3 {
		t.Fatalf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.Gravity != [3]float64{0, -1, 0} {
		t.Fatalf("gravity = %v", cfg.Simulation.Gravity)
	}
	if cfg.Scene.Path != "scenes/demo.yaml" || cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("scene/logging = %+v / %+v", cfg.Scene, cfg.Logging)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", "[storage"},
		{"zero growth", "[storage.joints]\ngrowth = 0\n"},
		{"zero step", "[simulation]\nstep = \"0s\"\n"},
		{"no sub steps", "[simulation]\nmax_sub_steps = 0\n"},
		{"negative cell", "[simulation]\ncell_size = -1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
