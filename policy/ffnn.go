package policy

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Default hidden layer width.
const DefaultHidden = 32

// FFNN is a two-layer feedforward network with dynamic layer sizes.
// Weights are row-major: W1 is hidden×inputs, W2 is outputs×hidden.
type FFNN struct {
	NumInputs  int
	NumHidden  int
	NumOutputs int

	W1 []float64
	B1 []float64
	W2 []float64
	B2 []float64
}

// NewFFNN creates a Xavier-initialized network.
func NewFFNN(rng *rand.Rand, numInputs, numHidden, numOutputs int) *FFNN {
	nn := &FFNN{
		NumInputs:  numInputs,
		NumHidden:  numHidden,
		NumOutputs: numOutputs,
		W1:         make([]float64, numHidden*numInputs),
		B1:         make([]float64, numHidden),
		W2:         make([]float64, numOutputs*numHidden),
		B2:         make([]float64, numOutputs),
	}
	scale1 := math.Sqrt(2.0 / float64(numInputs))
	scale2 := math.Sqrt(2.0 / float64(numHidden))
	for i := range nn.W1 {
		nn.W1[i] = rng.NormFloat64() * scale1
	}
	for i := range nn.W2 {
		nn.W2[i] = rng.NormFloat64() * scale2
	}
	return nn
}

// Forward computes the raw (pre-activation) output layer into dst,
// which is grown as needed and returned.
func (nn *FFNN) Forward(inputs, dst []float64) []float64 {
	hidden := make([]float64, nn.NumHidden)
	for i := 0; i < nn.NumHidden; i++ {
		sum := nn.B1[i]
		row := nn.W1[i*nn.NumInputs:]
		for j := 0; j < nn.NumInputs && j < len(inputs); j++ {
			sum += row[j] * inputs[j]
		}
		hidden[i] = tanh(sum)
	}

	dst = dst[:0]
	for i := 0; i < nn.NumOutputs; i++ {
		sum := nn.B2[i]
		row := nn.W2[i*nn.NumHidden:]
		for j := 0; j < nn.NumHidden; j++ {
			sum += row[j] * hidden[j]
		}
		dst = append(dst, sum)
	}
	return dst
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() *FFNN {
	c := &FFNN{
		NumInputs:  nn.NumInputs,
		NumHidden:  nn.NumHidden,
		NumOutputs: nn.NumOutputs,
		W1:         append([]float64(nil), nn.W1...),
		B1:         append([]float64(nil), nn.B1...),
		W2:         append([]float64(nil), nn.W2...),
		B2:         append([]float64(nil), nn.B2...),
	}
	return c
}

// weightsFile is the on-disk representation of a network.
type weightsFile struct {
	NumInputs  int       `yaml:"num_inputs"`
	NumHidden  int       `yaml:"num_hidden"`
	NumOutputs int       `yaml:"num_outputs"`
	W1         []float64 `yaml:"w1"`
	B1         []float64 `yaml:"b1"`
	W2         []float64 `yaml:"w2"`
	B2         []float64 `yaml:"b2"`
}

// Save writes the network weights to a YAML file.
func (nn *FFNN) Save(path string) error {
	data, err := yaml.Marshal(weightsFile{
		NumInputs:  nn.NumInputs,
		NumHidden:  nn.NumHidden,
		NumOutputs: nn.NumOutputs,
		W1:         nn.W1,
		B1:         nn.B1,
		W2:         nn.W2,
		B2:         nn.B2,
	})
	if err != nil {
		return fmt.Errorf("marshaling weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing weights file: %w", err)
	}
	return nil
}

// LoadFFNN reads network weights from a YAML file.
func LoadFFNN(path string) (*FFNN, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights file: %w", err)
	}
	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing weights file: %w", err)
	}
	if len(wf.W1) != wf.NumHidden*wf.NumInputs ||
		len(wf.B1) != wf.NumHidden ||
		len(wf.W2) != wf.NumOutputs*wf.NumHidden ||
		len(wf.B2) != wf.NumOutputs {
		return nil, fmt.Errorf("weights file %s: dimension mismatch", path)
	}
	return &FFNN{
		NumInputs:  wf.NumInputs,
		NumHidden:  wf.NumHidden,
		NumOutputs: wf.NumOutputs,
		W1:         wf.W1,
		B1:         wf.B1,
		W2:         wf.W2,
		B2:         wf.B2,
	}, nil
}

// FFNNPolicy wraps a network as a Policy, applying output activations:
// tanh for throttle/steering, saturating linear for brake, scaled tanh
// for the turret angles.
type FFNNPolicy struct {
	Net *FFNN

	vec []float64
	out []float64
}

// NewFFNNPolicy creates an inference policy over the given network.
// The network must have NumActions outputs.
func NewFFNNPolicy(net *FFNN) *FFNNPolicy {
	return &FFNNPolicy{Net: net}
}

// Act runs inference on the observation.
func (p *FFNNPolicy) Act(obs *Observation) Action {
	p.vec = obs.Vector(p.vec)
	p.out = p.Net.Forward(p.vec, p.out)

	return Action{
		Throttle:    tanh(p.out[0]),
		Steering:    tanh(p.out[1]),
		Brake:       saturate01(p.out[2]*0.5 + 0.5),
		TurretYaw:   180 * tanh(p.out[3]),
		TurretPitch: 90 * tanh(p.out[4]),
	}
}

// saturate01 clamps x to [0, 1].
func saturate01(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x
}

// tanh uses a rational approximation; exact enough for control outputs
// and free of the stdlib's range reduction. The approximation reaches
// exactly 1 at |x| = 3, so saturation starts there.
func tanh(x float64) float64 {
	if x > 3 {
		return 1
	}
	if x < -3 {
		return -1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}
