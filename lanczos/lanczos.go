// Package lanczos computes the ground eigenpair of a symmetric operator by
// the Lanczos iteration, and carries the reverse-mode differentiation rule
// of that eigenpair with respect to the Hamiltonian parameter.
package lanczos

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"tfim/mat"
)

// breakdownTol is the beta below which the Krylov space is exhausted,
// meaning the spectrum is already captured exactly.
const breakdownTol = 1e-12

// DominantEig computes the ground eigenpair of a symmetric matrix in
// normal, materialized form, using at most k Lanczos iterations.
func DominantEig(h *mat.COO, k int) (float64, []float64, error) {
	e0, psi0, err := DominantEigSparse(h.Apply, h.Rows(), k)
	if err != nil {
		return 0, nil, errors.Wrap(err, "")
	}
	return e0, psi0, nil
}

// DominantEigSparse computes the ground eigenpair of a symmetric operator
// given only its action on vectors.
// The starting vector is deterministic, so runs with the same dim and k
// produce the same iterates regardless of operator representation.
func DominantEigSparse(apply func(dst, x []float64), dim, k int) (float64, []float64, error) {
	if dim < 2 {
		return 0, nil, errors.Errorf("%d", dim)
	}
	if k < 2 {
		return 0, nil, errors.Errorf("%d", k)
	}
	if k > dim {
		k = dim
	}

	rnd := rand.New(rand.NewPCG(11, 13))
	v := make([]float64, dim)
	for i := range v {
		v[i] = rnd.Float64()*2 - 1
	}
	floats.Scale(1/math.Sqrt(floats.Dot(v, v)), v)

	qs := make([][]float64, 0, k)
	alphas := make([]float64, 0, k)
	betas := make([]float64, 0, k-1)
	w := make([]float64, dim)
	for j := 0; j < k; j++ {
		q := make([]float64, dim)
		copy(q, v)
		qs = append(qs, q)

		apply(w, v)
		alpha := floats.Dot(v, w)
		alphas = append(alphas, alpha)
		if j == k-1 {
			break
		}

		floats.AddScaled(w, -alpha, v)
		if j > 0 {
			floats.AddScaled(w, -betas[j-1], qs[j-1])
		}
		// Full reorthogonalization keeps the basis usable for Ritz vectors.
		for _, qi := range qs {
			floats.AddScaled(w, -floats.Dot(qi, w), qi)
		}

		beta := math.Sqrt(floats.Dot(w, w))
		if beta < breakdownTol {
			break
		}
		betas = append(betas, beta)
		for i := range v {
			v[i] = w[i] / beta
		}
	}

	m := len(qs)
	vvs := mat.EigenSymTridiag(alphas[:m], betas[:m-1])
	ground := vvs[0]

	psi0 := make([]float64, dim)
	for j, y := range ground.Vec {
		floats.AddScaled(psi0, y, qs[j])
	}
	floats.Scale(1/math.Sqrt(floats.Dot(psi0, psi0)), psi0)
	normalizeSign(psi0)

	return ground.Val, psi0, nil
}

// normalizeSign fixes the overall sign so that eigenvectors from different
// operator representations are directly comparable.
func normalizeSign(psi0 []float64) {
	for _, v := range psi0 {
		if math.Abs(v) > 1e-8 {
			if v < 0 {
				floats.Scale(-1, psi0)
			}
			return
		}
	}
}
