// Package ensemble orchestrates multiple independent reconstructions of the
// same diffraction pattern from distinct random-phase starting points,
// running them concurrently and keeping the candidate whose final
// diffraction residual is lowest. Phase retrieval is non-convex, so restart
// selection is the standard defense against stagnated runs.
//
// The core driver in package recon stays single-threaded; each restart owns
// its own arrays, so the fan-out needs no synchronization beyond the result
// channel.
package ensemble

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"cdirecon/pkg/recon"
)

// Options configures a restart ensemble.
type Options struct {
	// Restarts is the number of independent reconstructions to run.
	Restarts int

	// Seed seeds the random-phase initializer; restart i draws its phase
	// field from Seed+i, so a fixed Seed makes the whole ensemble
	// deterministic.
	Seed int64
}

// Stats summarizes the spread of final diffraction residuals across the
// restarts.
type Stats struct {
	// Final holds the last diffraction-error sample of each restart, in
	// restart order.
	Final []float64

	// Mean and StdDev summarize Final.
	Mean   float64
	StdDev float64

	// Best is the index of the selected restart.
	Best int
}

// Run executes opts.Restarts reconstructions of the pattern concurrently and
// returns the result with the lowest final diffraction error together with
// ensemble statistics. Every restart shares the support mask and parameters
// but starts from its own random-phase field.
func Run(pattern []float64, sup []float64, dims []int, params *recon.Params, opts Options) (*recon.Result, *Stats, error) {
	if opts.Restarts <= 0 {
		return nil, nil, fmt.Errorf("restarts must be positive, got %d", opts.Restarts)
	}

	type restartResult struct {
		idx int
		res *recon.Result
		err error
	}
	results := make(chan restartResult)

	for i := 0; i < opts.Restarts; i++ {
		go func(idx int) {
			rng := rand.New(rand.NewSource(opts.Seed + int64(idx)))
			obj := recon.RandomPhase(pattern, dims, rng)

			r, err := recon.NewReconstructor(pattern, obj, sup, dims, params)
			if err != nil {
				results <- restartResult{idx: idx, err: err}
				return
			}
			res, err := r.Run()
			results <- restartResult{idx: idx, res: res, err: err}
		}(i)
	}

	candidates := make([]*recon.Result, opts.Restarts)
	for done := 0; done < opts.Restarts; done++ {
		rr := <-results
		if rr.err != nil {
			return nil, nil, fmt.Errorf("restart %d failed: %w", rr.idx, rr.err)
		}
		candidates[rr.idx] = rr.res
		recon.Logger().Debug("restart complete", "restart", rr.idx,
			"finalDiffError", rr.res.DiffError[len(rr.res.DiffError)-1])
	}

	stats := &Stats{Final: make([]float64, opts.Restarts)}
	for i, res := range candidates {
		stats.Final[i] = res.DiffError[len(res.DiffError)-1]
		if stats.Final[i] < stats.Final[stats.Best] {
			stats.Best = i
		}
	}
	stats.Mean = stat.Mean(stats.Final, nil)
	stats.StdDev = stat.StdDev(stats.Final, nil)

	return candidates[stats.Best], stats, nil
}
