package signals

import (
	"SignalForge/internal/domain/models"
)

// Aggregate reduces candidate signals, given in priority order, to the
// signals a decision should carry.
func Aggregate(candidates []models.Signal, policy models.ArbitrationPolicy) []models.Signal {
	if len(candidates) == 0 {
		return nil
	}
	switch policy {
	case models.PolicyAll:
		return append([]models.Signal(nil), candidates...)
	case models.PolicyVoting:
		return []models.Signal{majority(candidates, func(models.Signal) float64 { return 1 })}
	case models.PolicyWeighted:
		return []models.Signal{majority(candidates, func(s models.Signal) float64 { return s.Confidence })}
	default:
		return []models.Signal{candidates[0]}
	}
}

// majority tallies call against put by score. The winning side returns its
// most confident signal; a tied tally returns the most confident overall.
func majority(candidates []models.Signal, score func(models.Signal) float64) models.Signal {
	var calls, puts float64
	for _, s := range candidates {
		switch s.Action {
		case models.ActionCall:
			calls += score(s)
		case models.ActionPut:
			puts += score(s)
		}
	}

	var side models.Action
	switch {
	case calls > puts:
		side = models.ActionCall
	case puts > calls:
		side = models.ActionPut
	}
	return strongest(candidates, side)
}

// strongest returns the highest-confidence signal of side, or of all
// candidates when side is empty. Ties keep the earliest.
func strongest(candidates []models.Signal, side models.Action) models.Signal {
	best := -1
	for i, s := range candidates {
		if side != "" && s.Action != side {
			continue
		}
		if best < 0 || s.Confidence > candidates[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return candidates[0]
	}
	return candidates[best]
}
