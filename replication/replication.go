// Package replication provides the quantized wire form of an agent's
// detection summary. Transport is external; this package only encodes
// and decodes the payload, and enforces that summaries are produced
// for the owning observer alone.
package replication

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/ironvale/vanguard/systems"
)

// SummarySize is the encoded size of one DetectionSummary in bytes.
const SummarySize = 4 + 1 + 1 + 1 + 1 + 12 + 12 + 4 + 4 + 4

// Packed-byte layout: bits 0-1 awareness state, bit 2 firing cone.
const (
	stateMask = 0x03
	coneBit   = 0x04
)

// DetectionSummary is one tracked contact in replication form. Continuous
// [0,1] fields are quantized to a byte; spatial fields are float32.
type DetectionSummary struct {
	EntityID      uint32
	Visibility    uint8 // quantized [0,1] -> 0..255
	Awareness     uint8
	State         systems.AwarenessState
	InFiringCone  bool
	VisibleMask   uint8
	LastKnownPos  [3]float32
	LastKnownVel  [3]float32
	Distance      float32
	AngleTo       float32
	TimeSinceSeen float32
}

// Quantize01 maps a [0,1] value to a byte with round-to-nearest.
func Quantize01(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Dequantize01 maps a quantized byte back to [0,1].
func Dequantize01(b uint8) float64 {
	return float64(b) / 255
}

// Summarize converts a tracked entry to its wire form.
func Summarize(e *systems.DetectedEntity) DetectionSummary {
	return DetectionSummary{
		EntityID:     uint32(e.Entity.ID()),
		Visibility:   Quantize01(e.Visibility),
		Awareness:    Quantize01(e.Awareness),
		State:        e.State,
		InFiringCone: e.InFiringCone,
		VisibleMask:  e.VisibleMask,
		LastKnownPos: [3]float32{
			float32(e.LastKnownPos.X), float32(e.LastKnownPos.Y), float32(e.LastKnownPos.Z),
		},
		LastKnownVel: [3]float32{
			float32(e.LastKnownVel.X), float32(e.LastKnownVel.Y), float32(e.LastKnownVel.Z),
		},
		Distance:      float32(e.Distance),
		AngleTo:       float32(e.AngleTo),
		TimeSinceSeen: float32(e.TimeSinceSeen),
	}
}

// SummarizeFor builds the summaries of an engine's tracked contacts for
// one observer. Summaries replicate only to the owning observer; for
// anyone else the result is nil.
func SummarizeFor(observer, owner ecs.Entity, entries []*systems.DetectedEntity) []DetectionSummary {
	if observer != owner {
		return nil
	}
	out := make([]DetectionSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, Summarize(e))
	}
	return out
}

// Marshal appends the fixed-layout little-endian encoding of s to dst.
func (s *DetectionSummary) Marshal(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, s.EntityID)
	dst = append(dst, s.Visibility, s.Awareness)
	packed := uint8(s.State) & stateMask
	if s.InFiringCone {
		packed |= coneBit
	}
	dst = append(dst, packed, s.VisibleMask)
	for _, v := range s.LastKnownPos {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	for _, v := range s.LastKnownVel {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s.Distance))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s.AngleTo))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s.TimeSinceSeen))
	return dst
}

// Unmarshal decodes one summary from the front of data.
func (s *DetectionSummary) Unmarshal(data []byte) error {
	if len(data) < SummarySize {
		return fmt.Errorf("detection summary: need %d bytes, have %d", SummarySize, len(data))
	}
	s.EntityID = binary.LittleEndian.Uint32(data[0:])
	s.Visibility = data[4]
	s.Awareness = data[5]
	packed := data[6]
	s.State = systems.AwarenessState(packed & stateMask)
	s.InFiringCone = packed&coneBit != 0
	s.VisibleMask = data[7]
	off := 8
	for i := range s.LastKnownPos {
		s.LastKnownPos[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	for i := range s.LastKnownVel {
		s.LastKnownVel[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	s.Distance = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	s.AngleTo = math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
	s.TimeSinceSeen = math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:]))
	return nil
}

// MarshalBatch appends a uint16 count followed by each summary.
func MarshalBatch(dst []byte, summaries []DetectionSummary) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(summaries)))
	for i := range summaries {
		dst = summaries[i].Marshal(dst)
	}
	return dst
}

// UnmarshalBatch decodes a count-prefixed batch.
func UnmarshalBatch(data []byte) ([]DetectionSummary, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("detection summary batch: short header")
	}
	n := int(binary.LittleEndian.Uint16(data))
	data = data[2:]
	if len(data) < n*SummarySize {
		return nil, fmt.Errorf("detection summary batch: need %d bytes for %d entries, have %d",
			n*SummarySize, n, len(data))
	}
	out := make([]DetectionSummary, n)
	for i := 0; i < n; i++ {
		if err := out[i].Unmarshal(data[i*SummarySize:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
