package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/formica/components"
	"github.com/pthm-cable/formica/config"
)

// DepositPolicy decides how much pheromone a carrying agent lays this tick.
type DepositPolicy interface {
	Amount(trail *components.TrailState, dt float32) float32
}

// FlatDeposit lays Rate*dt per tick regardless of trail age.
type FlatDeposit struct {
	Rate float32
}

func (p FlatDeposit) Amount(_ *components.TrailState, dt float32) float32 {
	return p.Rate * dt
}

// FreshnessDeposit lays Initial*exp(-elapsed*Slope)*dt, so trails are
// strongest near the food and fade toward the nest.
type FreshnessDeposit struct {
	Initial float32
	Slope   float32
}

func (p FreshnessDeposit) Amount(trail *components.TrailState, dt float32) float32 {
	return p.Initial * float32(math.Exp(-float64(trail.Elapsed*p.Slope))) * dt
}

// NewDepositPolicy builds the configured policy.
func NewDepositPolicy(cfg *config.Config) (DepositPolicy, error) {
	switch cfg.Pheromone.DepositPolicy {
	case config.DepositFlat:
		return FlatDeposit{Rate: float32(cfg.Pheromone.DepositRate)}, nil
	case config.DepositFreshness:
		return FreshnessDeposit{
			Initial: float32(cfg.Pheromone.TrailInitialStrength),
			Slope:   float32(cfg.Pheromone.TrailSlope),
		}, nil
	}
	return nil, fmt.Errorf("unknown deposit policy %q", cfg.Pheromone.DepositPolicy)
}
