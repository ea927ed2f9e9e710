package env

import "errors"

var (
	// ErrInvalidParameter is returned when a Parameters record is physically meaningless.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInfeasibleAction is returned when no (servers, local workload) pair meets a power budget.
	ErrInfeasibleAction = errors.New("infeasible action")

	// ErrDegenerateCost is returned in strict mode when a slot's total cost is not positive.
	ErrDegenerateCost = errors.New("degenerate cost")

	// ErrEpisodeTerminated is returned by Step after a failed slot until Reset is called.
	ErrEpisodeTerminated = errors.New("episode terminated")
)
