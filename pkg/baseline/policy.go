package baseline

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

const (
	NameFixed    = "fixed"
	NameMyopic   = "myopic"
	NameRandom   = "random"
	NameConstant = "constant"
)

// Policy picks a normalized action from the environment's current state.
// Policies read state only; they never step the environment.
type Policy interface {
	Name() string
	Act(e *env.Environment) float64
}

// Config carries the knobs the policy factory understands.
type Config struct {
	// Budget is the compute power target of the fixed policy
	Budget float64 `json:"budget" yaml:"budget"`
	// Action is the value the constant policy repeats
	Action float64 `json:"action" yaml:"action"`
	Seed   uint64  `json:"seed" yaml:"seed"`
}

// Names lists the policies New can build.
func Names() []string {
	return []string{NameFixed, NameMyopic, NameRandom, NameConstant}
}

// New builds a policy by name.
func New(name string, cfg Config) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameFixed:
		return Fixed{Budget: cfg.Budget}, nil
	case NameMyopic:
		return NewMyopic(nil), nil
	case NameRandom:
		return NewRandom(cfg.Seed), nil
	case NameConstant:
		if cfg.Action < 0 || cfg.Action > 1 {
			return nil, fmt.Errorf("constant action %.3f outside [0,1]", cfg.Action)
		}
		return Constant{Value: cfg.Action}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
}

// Random draws a uniform action each slot from its own source.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random policy seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed+1))}
}

func (r *Random) Name() string { return NameRandom }

func (r *Random) Act(*env.Environment) float64 { return r.rng.Float64() }

// Constant repeats one action.
type Constant struct {
	Value float64
}

func (c Constant) Name() string { return NameConstant }

func (c Constant) Act(*env.Environment) float64 { return c.Value }
