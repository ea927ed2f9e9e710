package env

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names so config and API errors read the same
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Parameters fully determines the physical and economic model of a base station.
// A Parameters value is read-only once an Environment has been built from it.
type Parameters struct {
	// Slot length in hours
	TimeslotDuration float64 `json:"timeslot_duration" yaml:"timeslot_duration" validate:"gt=0,lte=24"`
	MaxServers       int     `json:"max_servers" yaml:"max_servers" validate:"gte=1"`
	ServiceRate      float64 `json:"service_rate" yaml:"service_rate" validate:"gt=0"`

	// Power model: d_op = StaticPower + DynamicPowerCoef*λ
	StaticPower      float64 `json:"static_power" yaml:"static_power" validate:"gte=0"`
	DynamicPowerCoef float64 `json:"dynamic_power_coef" yaml:"dynamic_power_coef" validate:"gte=0"`
	ServerPower      float64 `json:"server_power" yaml:"server_power" validate:"gt=0"`

	// Battery capacity in Wh
	BatteryCapacity float64 `json:"battery_capacity" yaml:"battery_capacity" validate:"gt=0"`

	WorkloadLow      float64 `json:"workload_low" yaml:"workload_low" validate:"gt=0"`
	WorkloadHigh     float64 `json:"workload_high" yaml:"workload_high" validate:"gtefield=WorkloadLow"`
	ChannelDelayLow  float64 `json:"channel_delay_low" yaml:"channel_delay_low" validate:"gte=0"`
	ChannelDelayHigh float64 `json:"channel_delay_high" yaml:"channel_delay_high" validate:"gtefield=ChannelDelayLow"`

	BackupCostCoef   float64 `json:"backup_cost_coef" yaml:"backup_cost_coef" validate:"gte=0"`
	DepreciationCoef float64 `json:"depreciation_coef" yaml:"depreciation_coef" validate:"gte=0"`

	// Priority weighs energy cost (p) against delay cost (1-p)
	Priority        float64 `json:"priority" yaml:"priority" validate:"gte=0,lte=1"`
	StepsPerEpisode int     `json:"steps_per_episode" yaml:"steps_per_episode" validate:"gte=1"`
}

// DefaultParameters returns the reference base station: 15 servers, 15-minute slots,
// one day per episode.
func DefaultParameters() Parameters {
	return Parameters{
		TimeslotDuration: 0.25,
		MaxServers:       15,
		ServiceRate:      20,
		StaticPower:      300,
		DynamicPowerCoef: 0.5,
		ServerPower:      150,
		BatteryCapacity:  2000,
		WorkloadLow:      20,
		WorkloadHigh:     100,
		ChannelDelayLow:  0.02,
		ChannelDelayHigh: 0.06,
		BackupCostCoef:   0.15,
		DepreciationCoef: 0.01,
		Priority:         0.5,
		StepsPerEpisode:  96,
	}
}

// Validate rejects negative rates, inverted ranges and out-of-range weights.
func (p Parameters) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(msgs, "; "))
}

// BatteryMax is the battery ceiling expressed as power over one slot (b_high).
func (p Parameters) BatteryMax() float64 {
	return p.BatteryCapacity / p.TimeslotDuration
}

// OperationalDemand is the base station's own draw at workload λ.
func (p Parameters) OperationalDemand(workload float64) float64 {
	return p.StaticPower + p.DynamicPowerCoef*workload
}

// ComputeDemand is the draw of m active servers processing local workload μ.
// Each unit of local workload costs ServerPower/WorkloadLow.
func (p Parameters) ComputeDemand(servers int, local float64) float64 {
	return p.ServerPower*float64(servers) + p.ServerPower/p.WorkloadLow*local
}
