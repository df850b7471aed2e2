package game

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/config"
)

// smokeConfig is a small, obstacle-free battlefield so the loop test
// exercises every subsystem without long pathfinding runs.
func smokeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Sim.TeamSize = 1
	cfg.World.Width = 12000
	cfg.World.Height = 12000
	cfg.World.ObstacleThreshold = 2 // no rocks
	cfg.Navigation.RandomTargetMax = 4000
	return cfg
}

func TestGameSpawnsBothTeams(t *testing.T) {
	g, err := NewGame(smokeConfig(t), 1, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	if len(g.vehicles) != 2 {
		t.Fatalf("vehicle count: got %d, want 2", len(g.vehicles))
	}

	red := g.transformMap.Get(g.vehicles[0].entity)
	blue := g.transformMap.Get(g.vehicles[1].entity)
	if red == nil || blue == nil {
		t.Fatal("spawned vehicles missing transforms")
	}
	if red.Yaw != 0 || blue.Yaw != 180 {
		t.Errorf("spawn facing: red %v, blue %v", red.Yaw, blue.Yaw)
	}
	if red.Pos.X >= blue.Pos.X {
		t.Errorf("teams not on opposite edges: red X %v, blue X %v", red.Pos.X, blue.Pos.X)
	}
}

func TestGameStepAdvancesSimulation(t *testing.T) {
	cfg := smokeConfig(t)
	g, err := NewGame(cfg, 2, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	spawn := make([]r3.Vec, len(g.vehicles))
	for i, vs := range g.vehicles {
		spawn[i] = g.transformMap.Get(vs.entity).Pos
	}

	ticks := g.RunEpisode(120)
	if ticks != 120 || g.Tick() != 120 {
		t.Fatalf("tick counter: ran %d, counter %d", ticks, g.Tick())
	}

	width, height := g.ctx.Field.Bounds()
	moved := false
	for i, vs := range g.vehicles {
		tr := g.transformMap.Get(vs.entity)
		if tr.Pos.X < 0 || tr.Pos.X >= width || tr.Pos.Y < 0 || tr.Pos.Y >= height {
			t.Errorf("vehicle %d left the battlefield: %v", i, tr.Pos)
		}
		if vs.speed > cfg.Hull.MaxSpeed || vs.speed < -cfg.Hull.MaxReverseSpeed {
			t.Errorf("vehicle %d speed %v outside drivetrain limits", i, vs.speed)
		}
		if tr.Pos != spawn[i] {
			moved = true
		}
	}
	if !moved {
		t.Error("no vehicle moved on open ground")
	}
}

func TestGameResetRestoresSpawnState(t *testing.T) {
	g, err := NewGame(smokeConfig(t), 3, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	spawn := make([]r3.Vec, len(g.vehicles))
	for i, vs := range g.vehicles {
		spawn[i] = g.transformMap.Get(vs.entity).Pos
	}

	g.RunEpisode(60)
	g.Reset()

	if g.Tick() != 0 {
		t.Errorf("tick after reset: %d", g.Tick())
	}
	for i, vs := range g.vehicles {
		tr := g.transformMap.Get(vs.entity)
		if tr.Pos != spawn[i] {
			t.Errorf("vehicle %d not at spawn: %v vs %v", i, tr.Pos, spawn[i])
		}
		if vs.speed != 0 {
			t.Errorf("vehicle %d speed after reset: %v", i, vs.speed)
		}
		if vs.svc.Detect.Tracker().Len() != 0 {
			t.Errorf("vehicle %d keeps contacts across reset", i)
		}
		if vs.svc.Nav.HasTarget() {
			t.Errorf("vehicle %d keeps a navigation target across reset", i)
		}
	}
}
