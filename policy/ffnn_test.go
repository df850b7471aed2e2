package policy

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestForwardDeterministic(t *testing.T) {
	nn := NewFFNN(rand.New(rand.NewSource(1)), 6, 8, NumActions)
	in := []float64{0.1, -0.4, 0.9, 0.0, 1.0, -1.0}

	a := nn.Forward(in, nil)
	b := nn.Forward(in, nil)

	if len(a) != NumActions {
		t.Fatalf("output length: got %d, want %d", len(a), NumActions)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("output %d differs between identical passes: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestForwardZeroWeightsYieldBiases(t *testing.T) {
	nn := &FFNN{
		NumInputs:  3,
		NumHidden:  4,
		NumOutputs: 2,
		W1:         make([]float64, 12),
		B1:         make([]float64, 4),
		W2:         make([]float64, 8),
		B2:         []float64{0.25, -1.5},
	}

	out := nn.Forward([]float64{5, 5, 5}, nil)
	if out[0] != 0.25 || out[1] != -1.5 {
		t.Errorf("zero-weight output: got %v, want output biases", out)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	nn := NewFFNN(rand.New(rand.NewSource(2)), 4, 4, 2)
	in := []float64{1, 2, 3, 4}
	before := append([]float64(nil), nn.Forward(in, nil)...)

	c := nn.Clone()
	for i := range c.W1 {
		c.W1[i] = 99
	}
	c.B2[0] = -99

	after := nn.Forward(in, nil)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("mutating the clone changed the original: %v vs %v", before, after)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	nn := NewFFNN(rand.New(rand.NewSource(3)), 5, 6, NumActions)
	path := filepath.Join(t.TempDir(), "weights.yaml")

	if err := nn.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadFFNN(path)
	if err != nil {
		t.Fatalf("LoadFFNN: %v", err)
	}

	if loaded.NumInputs != nn.NumInputs || loaded.NumHidden != nn.NumHidden || loaded.NumOutputs != nn.NumOutputs {
		t.Fatalf("dimensions changed across save/load: %d/%d/%d",
			loaded.NumInputs, loaded.NumHidden, loaded.NumOutputs)
	}

	in := []float64{0.5, -0.5, 0.25, 0, 1}
	a := nn.Forward(in, nil)
	b := loaded.Forward(in, nil)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("output %d differs after reload: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLoadRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := "num_inputs: 4\nnum_hidden: 3\nnum_outputs: 2\nw1: [1, 2]\nb1: [0, 0, 0]\nw2: [0, 0, 0, 0, 0, 0]\nb2: [0, 0]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFFNN(path); err == nil {
		t.Error("truncated weight matrix accepted")
	}
}

func TestFFNNPolicyOutputRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	const probes = 16
	nn := NewFFNN(rng, Dim(probes), DefaultHidden, NumActions)
	p := NewFFNNPolicy(nn)

	obs := Observation{Clearances: make([]float64, probes)}
	for trial := 0; trial < 50; trial++ {
		for i := range obs.Clearances {
			obs.Clearances[i] = rng.Float64()
		}
		obs.BodyYaw = rng.Float64()*360 - 180
		obs.ForwardSpeed = rng.Float64()*2000 - 1000
		obs.TurretYaw = rng.Float64()*360 - 180

		a := p.Act(&obs)
		if a.Throttle < -1 || a.Throttle > 1 {
			t.Fatalf("throttle out of range: %v", a.Throttle)
		}
		if a.Steering < -1 || a.Steering > 1 {
			t.Fatalf("steering out of range: %v", a.Steering)
		}
		if a.Brake < 0 || a.Brake > 1 {
			t.Fatalf("brake out of range: %v", a.Brake)
		}
		if a.TurretYaw < -180 || a.TurretYaw > 180 {
			t.Fatalf("turret yaw out of range: %v", a.TurretYaw)
		}
		if a.TurretPitch < -90 || a.TurretPitch > 90 {
			t.Fatalf("turret pitch out of range: %v", a.TurretPitch)
		}
		if a != a.Clamped() {
			t.Fatalf("policy action not already clamped: %+v", a)
		}
	}
}

func TestTanhApproximation(t *testing.T) {
	if tanh(0) != 0 {
		t.Errorf("tanh(0) = %v", tanh(0))
	}
	if tanh(10) != 1 || tanh(-10) != -1 {
		t.Errorf("saturation: tanh(10)=%v tanh(-10)=%v", tanh(10), tanh(-10))
	}
	for _, x := range []float64{-3, -1, -0.5, 0.5, 1, 3} {
		got := tanh(x)
		want := math.Tanh(x)
		if math.Abs(got-want) > 0.05 {
			t.Errorf("tanh(%v) = %v, too far from %v", x, got, want)
		}
		if got*x < 0 {
			t.Errorf("tanh(%v) = %v has the wrong sign", x, got)
		}
		if math.Abs(got) > 1 {
			t.Errorf("tanh(%v) = %v outside [-1, 1]", x, got)
		}
	}
}
