package model

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the whole database tree as pushed by the source.
// Every field is optional; absence is resolved by the normalizer.
type Snapshot struct {
	Sensor  *Sensor   `json:"sensor,omitempty"`
	Atuador *Actuator `json:"atuador,omitempty"`
}

// Sensor holds the light sensor channels and the door event counters.
type Sensor struct {
	Luminosity *Luminosity `json:"luminosity,omitempty"`
	Entrada    *Reading    `json:"entrada,omitempty"`
	Saida      *Reading    `json:"saida,omitempty"`
}

// Luminosity channels in raw sensor units.
type Luminosity struct {
	Red   *Reading `json:"red,omitempty"`
	Green *Reading `json:"green,omitempty"`
	Blue  *Reading `json:"blue,omitempty"`
	Clear *Reading `json:"clear,omitempty"`
}

// Reading is an integer sensor value. Devices occasionally publish fractional
// values; those are truncated toward zero instead of failing the snapshot.
type Reading int

func (r *Reading) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Reading(f)
	return nil
}

// Actuator is the door actuator subtree at /atuador.
type Actuator struct {
	Estado *bool `json:"estado,omitempty"`
}

// ActuatorCommand is the body written to /atuador; it replaces the subtree.
type ActuatorCommand struct {
	Estado bool `json:"estado"`
}

// DecodeSnapshot parses a JSON tree. A JSON null (empty database) yields an empty snapshot.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var s *Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s == nil {
		return Snapshot{}, nil
	}
	return *s, nil
}

// Int returns a pointer to v. Handy for building snapshots in code.
func Int(v int) *Reading {
	r := Reading(v)
	return &r
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
