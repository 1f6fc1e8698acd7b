package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if cfg.World.Width != 960 || cfg.World.Height != 640 {
		t.Errorf("world = %vx%v, want 960x640", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Nest.ResetPolicy != ResetToZero {
		t.Errorf("reset_policy = %q, want %q", cfg.Nest.ResetPolicy, ResetToZero)
	}
	if cfg.Pheromone.DepositPolicy != DepositFlat {
		t.Errorf("deposit_policy = %q, want %q", cfg.Pheromone.DepositPolicy, DepositFlat)
	}
	if cfg.Derived.WorldMaxX != 960 || cfg.Derived.WorldMaxY != 640 {
		t.Errorf("derived bounds = (%v,%v), want (960,640)", cfg.Derived.WorldMaxX, cfg.Derived.WorldMaxY)
	}
}

func TestMergeOverridesOnlyPresentKeys(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}

	override := []byte("nest:\n  reset_policy: decrement\npheromone:\n  deposit_policy: Freshness\n")
	if err := cfg.Merge(override); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if cfg.Nest.ResetPolicy != DecrementByCost {
		t.Errorf("reset_policy = %q, want %q", cfg.Nest.ResetPolicy, DecrementByCost)
	}
	if cfg.Pheromone.DepositPolicy != DepositFreshness {
		t.Errorf("deposit_policy = %q, want %q", cfg.Pheromone.DepositPolicy, DepositFreshness)
	}
	if cfg.Nest.SpawnCost != 5 {
		t.Errorf("spawn_cost = %v, want default 5", cfg.Nest.SpawnCost)
	}
}

func TestValidateRejectsUnknownPolicies(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"reset policy", "nest:\n  reset_policy: halve\n", "reset_policy"},
		{"decay model", "pheromone:\n  decay_model: cubic\n", "decay_model"},
		{"deposit policy", "pheromone:\n  deposit_policy: random\n", "deposit_policy"},
		{"diffusion kernel", "pheromone:\n  diffusion_kernel: gaussian\n", "diffusion_kernel"},
		{"async merge", "pheromone:\n  async_merge: blend\n", "async_merge"},
		{"world size", "world:\n  width: 0\n", "world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Defaults()
			if err != nil {
				t.Fatal(err)
			}
			err = cfg.Merge([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Pheromone.DecayRate = 0.37
	cfg.Food.Clusters = []PointConfig{{X: 10, Y: 20}}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Pheromone.DecayRate != 0.37 {
		t.Errorf("decay_rate = %v, want 0.37", loaded.Pheromone.DecayRate)
	}
	if len(loaded.Food.Clusters) != 1 || loaded.Food.Clusters[0].Y != 20 {
		t.Errorf("clusters = %+v, want one point at (10,20)", loaded.Food.Clusters)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Food.Clusters = []PointConfig{{X: 1, Y: 1}}

	cp := cfg.Clone()
	cp.Food.Clusters[0].X = 99
	cp.Forage.PickupRange = 1

	if cfg.Food.Clusters[0].X != 1 {
		t.Error("clone shares cluster slice with original")
	}
	if cfg.Forage.PickupRange == 1 {
		t.Error("clone shares forage config with original")
	}
}
