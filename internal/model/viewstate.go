package model

import "fmt"

const (
	// ColorNoLuminosity is shown when the snapshot carries no luminosity subtree.
	ColorNoLuminosity = "rgba(255, 255, 255, 1)"
	// ColorInitial is shown before the first snapshot arrives.
	ColorInitial = "rgba(0, 0, 0, 1)"
)

// ViewState is everything the dashboard displays, derived from one snapshot.
type ViewState struct {
	PeopleCount      int    `json:"peopleCount"`
	DoorOpen         bool   `json:"doorOpen"`
	DoorKnown        bool   `json:"doorKnown"`
	LightColor       string `json:"lightColor"`
	LuminositySeries [4]int `json:"luminositySeries"`
	IOSeries         [3]int `json:"ioSeries"`
	HasSensor        bool   `json:"hasSensor"`
	HasLuminosity    bool   `json:"hasLuminosity"`
}

// InitialViewState is the state displayed before any snapshot has been received.
func InitialViewState() ViewState {
	return ViewState{LightColor: ColorInitial}
}

// Normalize derives the view state from a snapshot. It does not modify s.
func Normalize(s Snapshot) ViewState {
	var lum *Luminosity
	if s.Sensor != nil {
		lum = s.Sensor.Luminosity
	}
	io := IOSeries(s.Sensor)

	v := ViewState{
		PeopleCount:      io[2],
		LightColor:       LightColor(lum),
		LuminositySeries: LuminositySeries(lum),
		IOSeries:         io,
		HasSensor:        s.Sensor != nil,
		HasLuminosity:    lum != nil,
	}
	if s.Atuador != nil && s.Atuador.Estado != nil {
		v.DoorOpen = *s.Atuador.Estado
		v.DoorKnown = true
	}
	return v
}

// PeopleCount is entries minus exits, clamped at zero.
func PeopleCount(entrada, saida int) int {
	return max(0, entrada-saida)
}

// LightColor renders the red, green and blue channels as an opaque CSS rgba color.
func LightColor(l *Luminosity) string {
	if l == nil {
		return ColorNoLuminosity
	}
	return fmt.Sprintf("rgba(%d, %d, %d, 1)", intOr0(l.Red), intOr0(l.Green), intOr0(l.Blue))
}

// LuminositySeries returns [red, green, blue, clear].
func LuminositySeries(l *Luminosity) [4]int {
	if l == nil {
		return [4]int{}
	}
	return [4]int{intOr0(l.Red), intOr0(l.Green), intOr0(l.Blue), intOr0(l.Clear)}
}

// IOSeries returns [entrada, saida, peopleCount] for the sensor subtree.
func IOSeries(s *Sensor) [3]int {
	if s == nil {
		return [3]int{}
	}
	entrada, saida := intOr0(s.Entrada), intOr0(s.Saida)
	return [3]int{entrada, saida, PeopleCount(entrada, saida)}
}

func intOr0(p *Reading) int {
	if p == nil {
		return 0
	}
	return int(*p)
}
