package telemetry

import (
	"strconv"
	"strings"

	"github.com/ironvale/vanguard/policy"
)

// DatasetRecord is one observation/action pair for behavior cloning, in
// CSV row form. The clearance vector is space-joined into one column so
// the row shape stays fixed across probe-count configs.
type DatasetRecord struct {
	Tick      int    `csv:"tick"`
	VehicleID uint32 `csv:"vehicle_id"`

	Clearances   string  `csv:"clearances"`
	VelX         float64 `csv:"vel_x"`
	VelY         float64 `csv:"vel_y"`
	VelZ         float64 `csv:"vel_z"`
	BodyYaw      float64 `csv:"body_yaw"`
	ForwardSpeed float64 `csv:"forward_speed"`
	TurretYaw    float64 `csv:"turret_yaw"`
	TurretPitch  float64 `csv:"turret_pitch"`
	DirX         float64 `csv:"dir_x"`
	DirY         float64 `csv:"dir_y"`
	DirZ         float64 `csv:"dir_z"`

	Throttle       float64 `csv:"act_throttle"`
	Steering       float64 `csv:"act_steering"`
	Brake          float64 `csv:"act_brake"`
	TurretYawCmd   float64 `csv:"act_turret_yaw"`
	TurretPitchCmd float64 `csv:"act_turret_pitch"`
}

// NewDatasetRecord builds a row from an observation/action pair.
func NewDatasetRecord(tick int, vehicleID uint32, obs *policy.Observation, act policy.Action) DatasetRecord {
	return DatasetRecord{
		Tick:      tick,
		VehicleID: vehicleID,

		Clearances:   joinFloats(obs.Clearances),
		VelX:         obs.LinVel.X,
		VelY:         obs.LinVel.Y,
		VelZ:         obs.LinVel.Z,
		BodyYaw:      obs.BodyYaw,
		ForwardSpeed: obs.ForwardSpeed,
		TurretYaw:    obs.TurretYaw,
		TurretPitch:  obs.TurretPitch,
		DirX:         obs.DirToRef.X,
		DirY:         obs.DirToRef.Y,
		DirZ:         obs.DirToRef.Z,

		Throttle:       act.Throttle,
		Steering:       act.Steering,
		Brake:          act.Brake,
		TurretYawCmd:   act.TurretYaw,
		TurretPitchCmd: act.TurretPitch,
	}
}

// ParseClearances recovers the clearance vector from a row's column.
func ParseClearances(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Fields(s)
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func joinFloats(vs []float64) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', 6, 64))
	}
	return b.String()
}
