package formulas

import (
	"math"
	"testing"
)

func TestTotalDrift(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		want      float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.05}, 0.05},
		{"sums", []float64{0.10, 0.25, 0.05}, 0.40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalDrift(tt.distances)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("TotalDrift(%v) = %v, want %v", tt.distances, got, tt.want)
			}
		})
	}
}

func TestMaxDrift(t *testing.T) {
	if got := MaxDrift(nil); got != 0 {
		t.Errorf("MaxDrift(nil) = %v, want 0", got)
	}
	if got := MaxDrift([]float64{0.02, 0.30, 0.10}); got != 0.30 {
		t.Errorf("MaxDrift = %v, want 0.30", got)
	}
}

func TestWholeShares(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		price  float64
		want   int64
	}{
		{"exact", 1000, 100, 10},
		{"floors", 999, 100, 9},
		{"sub share", 99, 100, 0},
		{"zero price", 1000, 0, 0},
		{"negative price", 1000, -5, 0},
		{"zero amount", 0, 100, 0},
		{"negative amount", -500, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WholeShares(tt.amount, tt.price); got != tt.want {
				t.Errorf("WholeShares(%v, %v) = %d, want %d", tt.amount, tt.price, got, tt.want)
			}
		})
	}
}
