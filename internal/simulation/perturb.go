package simulation

import (
	"hash/fnv"
	"math/rand/v2"

	"optimal_execution/internal/model"

	"gonum.org/v1/gonum/stat/distuv"
)

// second PCG word for perturbation streams
const perturbStream = 0xda942042e4dd58b5

// Perturbation is the half-width of the multiplicative noise applied to each
// noisy parameter: a factor is drawn from U(1-w, 1+w).
type Perturbation struct {
	Sigma float64 `yaml:"sigma" json:"sigma"`
	Eta   float64 `yaml:"eta" json:"eta"`
	Price float64 `yaml:"price" json:"price"`
}

// DefaultPerturbation is ±10% on volatility and impact, ±1% on price.
func DefaultPerturbation() Perturbation {
	return Perturbation{Sigma: 0.10, Eta: 0.10, Price: 0.01}
}

// ScenarioSeed derives the reproducible seed of one scenario of a ticker.
func ScenarioSeed(ticker string, scenarioID int) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ticker))
	return uint64(scenarioID)*1000 + uint64(h.Sum32()%1000)
}

// Perturb returns a copy of p with volatility, impact coefficient and price
// scaled by independent noise drawn from a stream seeded by seed. The impact
// exponent and the trade bound are structural and stay fixed.
func Perturb(p model.MarketParameters, seed uint64, w Perturbation) model.MarketParameters {
	src := rand.NewPCG(seed, perturbStream)
	factor := func(width float64) float64 {
		if width <= 0 {
			return 1
		}
		return distuv.Uniform{Min: 1 - width, Max: 1 + width, Src: src}.Rand()
	}

	p.Volatility *= factor(w.Sigma)
	p.ImpactCoefficient *= factor(w.Eta)
	p.Price *= factor(w.Price)
	return p
}
