package optimizer

import (
	apperrors "optimal_execution/pkg/errors"
)

// Options tunes the differential evolution search.
type Options struct {
	MaxIterations        int     `yaml:"max_iterations" json:"max_iterations" validate:"min=1"`
	PopulationMultiplier int     `yaml:"population_multiplier" json:"population_multiplier" validate:"min=1"`
	MutationMin          float64 `yaml:"mutation_min" json:"mutation_min" validate:"gt=0"`
	MutationMax          float64 `yaml:"mutation_max" json:"mutation_max" validate:"gtefield=MutationMin,lte=2"`
	Crossover            float64 `yaml:"crossover" json:"crossover" validate:"gte=0,lte=1"`
	Tolerance            float64 `yaml:"tolerance" json:"tolerance" validate:"gt=0"`
	Seed                 uint64  `yaml:"seed" json:"seed"`
	Verbose              bool    `yaml:"verbose" json:"verbose"`
}

// minPopulation keeps enough members to draw two donors distinct from the target.
const minPopulation = 5

// DefaultOptions returns the settings used unless configured otherwise.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        1000,
		PopulationMultiplier: 15,
		MutationMin:          0.5,
		MutationMax:          1.0,
		Crossover:            0.7,
		Tolerance:            1e-6,
		Seed:                 42,
	}
}

// Validate checks the options. The error matches apperrors.ErrConfiguration.
func (o Options) Validate() error {
	switch {
	case o.MaxIterations < 1:
		return apperrors.ValidationError{Field: "max_iterations", Value: o.MaxIterations, Message: "must be at least 1"}
	case o.PopulationMultiplier < 1:
		return apperrors.ValidationError{Field: "population_multiplier", Value: o.PopulationMultiplier, Message: "must be at least 1"}
	case !(o.MutationMin > 0) || o.MutationMax < o.MutationMin || o.MutationMax > 2:
		return apperrors.ValidationError{Field: "mutation", Value: [2]float64{o.MutationMin, o.MutationMax}, Message: "dither range must satisfy 0 < min <= max <= 2"}
	case !(o.Crossover >= 0 && o.Crossover <= 1):
		return apperrors.ValidationError{Field: "crossover", Value: o.Crossover, Message: "must be within [0, 1]"}
	case !(o.Tolerance > 0):
		return apperrors.ValidationError{Field: "tolerance", Value: o.Tolerance, Message: "must be positive"}
	}
	return nil
}

func (o Options) populationSize(periods int) int {
	return max(minPopulation, o.PopulationMultiplier*periods)
}
