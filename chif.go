package tfim

import (
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"tfim/cg"
	"tfim/lanczos"
)

// ErrDegenerate is returned when the ground state is degenerate, where the
// fidelity susceptibility is undefined.
var ErrDegenerate = errors.New("degenerate ground state")

// degenerateGapTol is the relative gap below which two levels count as degenerate.
const degenerateGapTol = 1e-9

// ChiFPerturbation computes chi_F from the full spectrum perturbation formula
//
//	chi_F = \sum_{n \neq 0} |<psi_n| dH/dg |psi_0>|^2 / (E_0 - E_n)^2.
func ChiFPerturbation(m *Model) (float64, error) {
	vvs := m.Hamiltonian().EigenSym()
	e0, psi0 := vvs[0].Val, vvs[0].Vec

	dhPsi0 := make([]float64, m.Dim)
	m.DHamiltonian().Apply(dhPsi0, psi0)

	var chiF float64
	for _, vv := range vvs[1:] {
		gap := e0 - vv.Val
		if math.Abs(gap) < degenerateGapTol*math.Max(1, math.Abs(e0)) {
			return 0, errors.Wrap(ErrDegenerate, fmt.Sprintf("%f %f", e0, vv.Val))
		}
		numerator := floats.Dot(vv.Vec, dhPsi0)
		chiF += numerator * numerator / (gap * gap)
	}
	return chiF, nil
}

// ChiFDenseAD computes chi_F by differentiating the log-overlap of the
// ground state twice through the dominant eigenpair rule, with the
// Hamiltonian in normal, materialized form.
// k is the Lanczos truncation.
func ChiFDenseAD(m *Model, k int) (float64, error) {
	h := m.Hamiltonian()
	e0, psi0, err := lanczos.DominantEig(h, k)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	chiF, err := chiFAD(h.Apply, m, e0, psi0)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return chiF, nil
}

// ChiFSparseAD is ChiFDenseAD with the Hamiltonian represented only as a
// vector application function.
// The eigenpair is returned since ChiFGeometric reuses it.
func ChiFSparseAD(m *Model, k int) (float64, []float64, float64, error) {
	e0, psi0, err := lanczos.DominantEigSparse(m.Apply, m.Dim, k)
	if err != nil {
		return 0, nil, 0, errors.Wrap(err, "")
	}
	chiF, err := chiFAD(m.Apply, m, e0, psi0)
	if err != nil {
		return 0, nil, 0, errors.Wrap(err, "")
	}
	return e0, psi0, chiF, nil
}

// ChiFGeometric computes chi_F = <dpsi0/dg | dpsi0/dg>, obtaining the first
// order state derivative from a single forward sensitivity solve instead of
// a second differentiation pass.
func ChiFGeometric(m *Model, e0 float64, psi0 []float64) (float64, error) {
	b := make([]float64, m.Dim)
	m.ApplyDH(b, psi0)
	floats.Scale(-1, b)
	// The shifted operator is singular along psi0, so the right hand side
	// must lie in the orthogonal complement.
	floats.AddScaled(b, -floats.Dot(psi0, b), psi0)

	dpsi0, err := cg.SolveSubspace(m.Apply, e0, b, psi0)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return floats.Dot(dpsi0, dpsi0), nil
}

// chiFAD computes -d^2/dg^2 log <psi0_detached|psi0(g)> by two sequential
// reverse passes through the eigenpair differentiation rule. The first pass
// produces the subspace cotangent lambda; the second differentiates the
// first, which amounts to two more subspace solves: the forward sensitivity
// of the eigenpair and the sensitivity of lambda itself.
func chiFAD(apply func(dst, x []float64), m *Model, e0 float64, psi0 []float64) (float64, error) {
	dim := len(psi0)
	// The bra side of the overlap keeps its value as g varies.
	psi0d := slices.Clone(psi0)
	n := floats.Dot(psi0d, psi0)

	// Pass 1: d/dg log <psi0d|psi0(g)>, with cotangent vbar = psi0d / n on psi0.
	vbar := make([]float64, dim)
	for i := range vbar {
		vbar[i] = psi0d[i] / n
	}
	_, lambda, err := lanczos.Backward(apply, m.GAdjoint, e0, psi0, 0, vbar)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}

	// Pass 2: differentiate pass 1.
	de0, dpsi0, err := lanczos.Tangent(apply, m.ApplyDH, m.GAdjoint, e0, psi0)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}

	// d/dg of vbar.
	dn := floats.Dot(psi0d, dpsi0)
	dvbar := make([]float64, dim)
	floats.AddScaled(dvbar, -dn/(n*n), psi0d)

	// d/dg of P vbar = vbar - <psi0|vbar> psi0.
	dpvbar := slices.Clone(dvbar)
	floats.AddScaled(dpvbar, -(floats.Dot(dpsi0, vbar) + floats.Dot(psi0, dvbar)), psi0)
	floats.AddScaled(dpvbar, -floats.Dot(psi0, vbar), dpsi0)

	// d/dg of lambda: (H - E0) dlambda = d(P vbar) - (dH/dg - dE0/dg) lambda.
	rhs := make([]float64, dim)
	m.ApplyDH(rhs, lambda)
	floats.AddScaled(rhs, -de0, lambda)
	floats.Scale(-1, rhs)
	floats.Add(rhs, dpvbar)
	dlambda, err := cg.SolveSubspace(apply, e0, rhs, psi0)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}

	// d^2/dg^2 log <psi0d|psi0(g)> = -(dlambda^T H' psi0 + lambda^T H' dpsi0).
	d2logF := -(m.GAdjoint(dlambda, psi0) + m.GAdjoint(lambda, dpsi0))
	return -d2logF, nil
}
