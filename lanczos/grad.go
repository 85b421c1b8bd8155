package lanczos

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"tfim/cg"
)

// Backward is the reverse-mode rule of the ground eigenpair (E0, psi0) with
// respect to the Hamiltonian parameter g.
// Given the cotangents ebar on E0 and vbar on psi0, it returns
//
//	gbar = ebar * <psi0| dH/dg |psi0> - lambda^T (dH/dg) psi0,
//
// where lambda solves (H - E0) lambda = P vbar on the subspace orthogonal
// to psi0. This is the perturbation theory adjoint: differentiating through
// the raw Lanczos recurrence instead is unstable near degeneracies.
//
// gadjoint contracts an operator cotangent u v^T against dH/dg.
// The subspace cotangent lambda is returned so that callers can chain a
// second differentiation pass through this rule.
func Backward(apply func(dst, x []float64), gadjoint func(u, v []float64) float64, e0 float64, psi0 []float64, ebar float64, vbar []float64) (float64, []float64, error) {
	lambda, err := cg.SolveSubspace(apply, e0, vbar, psi0)
	if err != nil {
		return 0, nil, errors.Wrap(err, "")
	}

	gbar := -gadjoint(lambda, psi0)
	if ebar != 0 {
		gbar += ebar * gadjoint(psi0, psi0)
	}
	return gbar, lambda, nil
}

// Tangent is the forward-mode rule of the ground eigenpair: the derivatives
// of E0 and psi0 with respect to g.
//
//	dE0/dg   = <psi0| dH/dg |psi0>
//	dpsi0/dg = (E0 - H)^+ P (dH/dg) psi0,
//
// with the inverse restricted to the orthogonal complement of psi0.
func Tangent(apply, applyDH func(dst, x []float64), gadjoint func(u, v []float64) float64, e0 float64, psi0 []float64) (float64, []float64, error) {
	dim := len(psi0)

	de0 := gadjoint(psi0, psi0)

	b := make([]float64, dim)
	applyDH(b, psi0)
	floats.Scale(-1, b)
	dpsi0, err := cg.SolveSubspace(apply, e0, b, psi0)
	if err != nil {
		return 0, nil, errors.Wrap(err, "")
	}

	return de0, dpsi0, nil
}
