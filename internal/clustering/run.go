package clustering

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
)

// Results maps each strategy to its per-employee assignments. A strategy
// that failed or was skipped is simply absent — nothing downstream
// treats absence as fatal.
type Results map[Strategy]Assignments

// RunAll runs every strategy in strategies (all four, if nil) over prox
// concurrently. A failing strategy is logged and omitted from the
// result rather than aborting the whole run.
func RunAll(ctx context.Context, prox *mat.Dense, employeeIDs []string, cfg config.ClusteringConfig, strategies []Strategy) Results {
	if strategies == nil {
		strategies = AllStrategies
	}

	results := make(Results, len(strategies))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for _, strategy := range strategies {
		strategy := strategy
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("warning: clustering strategy %s panicked: %v", strategy, r)
				}
			}()

			assignments, runErr := runStrategy(strategy, prox, employeeIDs, cfg)
			if runErr != nil {
				log.Printf("warning: clustering strategy %s failed: %v", strategy, runErr)
				return nil
			}
			mu.Lock()
			results[strategy] = assignments
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // the goroutines above log runStrategy errors and always return nil

	return results
}

func runStrategy(strategy Strategy, prox *mat.Dense, employeeIDs []string, cfg config.ClusteringConfig) (Assignments, error) {
	switch strategy {
	case StrategyCentroid:
		return Centroid(prox, employeeIDs, cfg), nil
	case StrategyHierarchical:
		return Hierarchical(prox, employeeIDs, cfg), nil
	case StrategyDensity:
		return Density(prox, employeeIDs, cfg), nil
	case StrategyGraphCommunity:
		return GraphCommunity(prox, employeeIDs, cfg), nil
	default:
		return nil, fmt.Errorf("unknown clustering strategy %q", strategy)
	}
}
