package formulas

import "gonum.org/v1/gonum/floats"

// TotalDrift sums per-sleeve percent distances into a single drift figure.
func TotalDrift(distances []float64) float64 {
	if len(distances) == 0 {
		return 0
	}
	return floats.Sum(distances)
}

// MaxDrift returns the largest single-sleeve percent distance.
func MaxDrift(distances []float64) float64 {
	if len(distances) == 0 {
		return 0
	}
	return floats.Max(distances)
}

// WholeShares floors a dollar amount into a whole share count at the given
// price. Residual sub-share dollars stay uninvested. Returns 0 for
// non-positive prices or amounts.
func WholeShares(amount, price float64) int64 {
	if price <= 0 || amount <= 0 {
		return 0
	}
	return int64(amount / price)
}
