// Package cg solves the shifted linear system (H - E0) x = b restricted to
// the subspace orthogonal to the ground state psi0.
// On that subspace the operator is positive definite whenever E0 is the
// smallest eigenvalue, so plain conjugate gradient applies.
package cg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Machine-level absolute floor below which a right hand side counts as zero.
const atol = 1e-14

// Options are options for SolveSubspace.
type Options struct {
	tol           float64
	maxIterations int
}

// NewOptions returns the default solver options.
func NewOptions() Options {
	opt := Options{}
	opt.tol = 1e-12
	opt.maxIterations = 0
	return opt
}

// Tol sets the relative residual tolerance.
func (opt Options) Tol(tol float64) Options {
	opt.tol = tol
	return opt
}

// MaxIterations sets the maximum iterations. Zero means 10 times the dimension.
func (opt Options) MaxIterations(i int) Options {
	opt.maxIterations = i
	return opt
}

// SolveSubspace solves (H - e0) x = P b on the orthogonal complement of
// psi0, where P projects out the psi0 component and apply computes H @ x.
// psi0 must be normalized.
func SolveSubspace(apply func(dst, x []float64), e0 float64, b, psi0 []float64, options ...Options) ([]float64, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	dim := len(b)
	maxIterations := opt.maxIterations
	if maxIterations <= 0 {
		maxIterations = 10 * dim
	}

	x := make([]float64, dim)

	// r = P b, since x = 0.
	r := make([]float64, dim)
	copy(r, b)
	floats.AddScaled(r, -floats.Dot(psi0, b), psi0)

	bNorm2 := floats.Dot(r, r)
	tol2 := math.Max(opt.tol*opt.tol*bNorm2, atol*atol)

	p := make([]float64, dim)
	copy(p, r)
	kp := make([]float64, dim)

	rho := bNorm2
	for i := 0; i < maxIterations; i++ {
		if rho <= tol2 {
			return x, nil
		}

		// kp = (H - e0) p, projected back onto the subspace.
		apply(kp, p)
		floats.AddScaled(kp, -e0, p)
		floats.AddScaled(kp, -floats.Dot(psi0, kp), psi0)

		pkp := floats.Dot(p, kp)
		if pkp <= 0 {
			return nil, errors.Errorf("not positive definite: %g", pkp)
		}
		alpha := rho / pkp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, kp)
		// Rounding slowly leaks the iterates out of the subspace.
		floats.AddScaled(r, -floats.Dot(psi0, r), psi0)

		rhoNext := floats.Dot(r, r)
		beta := rhoNext / rho
		for j := range p {
			p[j] = r[j] + beta*p[j]
		}
		rho = rhoNext
	}
	if rho <= tol2 {
		return x, nil
	}
	return nil, errors.Errorf("no convergence after %d iterations, residual %g", maxIterations, math.Sqrt(rho))
}
