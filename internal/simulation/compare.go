package simulation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/casperlundberg/offload-autoscale-env/pkg/baseline"
	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

// CompareRequest runs several policies on identically seeded environments.
type CompareRequest struct {
	Parameters env.Parameters
	Policies   []string
	Policy     baseline.Config
	Slots      int
	Seed       uint64
}

// Compare runs each policy in turn and returns their reports keyed by name.
// Every environment starts from the same seed, so all policies face the same
// workload, channel and harvest draws.
func Compare(ctx context.Context, req CompareRequest, logger *zap.Logger) (map[string]*Report, error) {
	if len(req.Policies) == 0 {
		return nil, fmt.Errorf("no policies to compare")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reports := make(map[string]*Report, len(req.Policies))
	for _, name := range req.Policies {
		policy, err := baseline.New(name, req.Policy)
		if err != nil {
			return nil, err
		}

		e, err := env.New(req.Parameters, env.WithSeed(req.Seed), env.WithLogger(logger))
		if err != nil {
			return nil, err
		}

		report, err := NewRunner(e, policy, WithLogger(logger)).Run(ctx, req.Slots)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		reports[policy.Name()] = report
	}
	return reports, nil
}
