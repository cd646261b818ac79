// Package testkit generates synthetic experiment data: normal and Bernoulli
// samples for the simulator and the tests, and whole CSV or XLSX exports
// shaped like real ones.
package testkit

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Generator draws reproducible samples from a seeded source
type Generator struct {
	src rand.Source
}

// NewGenerator seeds a PCG source
func NewGenerator(seed uint64) *Generator {
	return &Generator{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Normal draws size values from N(mean, std^2)
func (g *Generator) Normal(mean, std float64, size int) []float64 {
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: g.src}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// Bernoulli draws size 0/1 values with success probability p
func (g *Generator) Bernoulli(p float64, size int) []float64 {
	dist := distuv.Bernoulli{P: p, Src: g.src}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// Uniform draws an integer in [0, n)
func (g *Generator) Uniform(n int) int {
	return rand.New(g.src).IntN(n)
}
