package env

import "fmt"

// Regime is the coarse diurnal renewable-energy level.
type Regime int

const (
	RegimeNone     Regime = iota // night, no harvest
	RegimeModerate               // morning and afternoon shoulders
	RegimePeak                   // midday
)

func (r Regime) String() string {
	switch r {
	case RegimeNone:
		return "none"
	case RegimeModerate:
		return "moderate"
	case RegimePeak:
		return "peak"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// State is the observation handed to controllers: workload λ, battery b,
// channel delay coefficient h and renewable regime e.
type State struct {
	Workload     float64 `json:"workload"`
	Battery      float64 `json:"battery"`
	ChannelDelay float64 `json:"channel_delay"`
	Regime       Regime  `json:"regime"`
}

// Vector returns the state as the ordered tuple [λ, b, h, e].
func (s State) Vector() [4]float64 {
	return [4]float64{s.Workload, s.Battery, s.ChannelDelay, float64(s.Regime)}
}
