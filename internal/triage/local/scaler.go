package local

import (
	"errors"
	"math"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// Scaler standardizes features to zero mean and unit variance.
type Scaler struct {
	Mean  [triage.FeatureCount]float64 `json:"mean"`
	Scale [triage.FeatureCount]float64 `json:"scale"`
}

// FitScaler computes per-feature mean and population standard deviation.
// A zero deviation is stored as 1 so constant features pass through centered.
func FitScaler(xs []triage.FeatureVector) (*Scaler, error) {
	if len(xs) == 0 {
		return nil, errors.New("fit scaler: no samples")
	}

	s := &Scaler{}
	n := float64(len(xs))
	for _, x := range xs {
		for j, v := range x {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, x := range xs {
		for j, v := range x {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return s, nil
}

// Transform returns the standardized copy of x.
func (s *Scaler) Transform(x triage.FeatureVector) triage.FeatureVector {
	var out triage.FeatureVector
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

func (s *Scaler) valid() bool {
	for j := range s.Scale {
		if s.Scale[j] <= 0 || math.IsNaN(s.Scale[j]) || math.IsInf(s.Scale[j], 0) ||
			math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) {
			return false
		}
	}
	return true
}
