package lanczos

import (
	"flag"
	"fmt"
	"log"
	"math"
	"testing"

	"github.com/fumin/tensor"
	"gonum.org/v1/gonum/floats"

	"tfim/mat"
)

// laplacian returns the action of the 1D Dirichlet Laplacian shifted by c,
// whose eigenvalues are 2 - 2cos(k*pi/(n+1)) + c with sine eigenvectors.
func laplacian(n int, c float64) func(dst, x []float64) {
	return func(dst, x []float64) {
		for i := 0; i < n; i++ {
			dst[i] = (2 + c) * x[i]
			if i > 0 {
				dst[i] -= x[i-1]
			}
			if i < n-1 {
				dst[i] -= x[i+1]
			}
		}
	}
}

func laplacianGround(n int) (float64, []float64) {
	e0 := 2 - 2*math.Cos(math.Pi/float64(n+1))
	v := make([]float64, n)
	for i := range v {
		v[i] = math.Sin(float64(i+1) * math.Pi / float64(n+1))
	}
	floats.Scale(1/math.Sqrt(floats.Dot(v, v)), v)
	return e0, v
}

func TestDominantEig(t *testing.T) {
	t.Parallel()
	const n = 8

	dense := make([][]float64, n)
	for i := range dense {
		dense[i] = make([]float64, n)
		dense[i][i] = 2
		if i > 0 {
			dense[i][i-1] = -1
		}
		if i < n-1 {
			dense[i][i+1] = -1
		}
	}

	e0, psi0, err := DominantEig(mat.M(dense), n)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	wantE0, wantPsi0 := laplacianGround(n)
	if math.Abs(e0-wantE0) > 1e-10 {
		t.Fatalf("%v, expected %v", e0, wantE0)
	}
	if overlap := math.Abs(floats.Dot(psi0, wantPsi0)); math.Abs(overlap-1) > 1e-10 {
		t.Fatalf("%v", overlap)
	}
}

// TestDominantEigSparse checks that the matrix-free path reproduces the
// materialized path exactly, since both start from the same seeded vector.
func TestDominantEigSparse(t *testing.T) {
	t.Parallel()
	const n = 8
	const k = 6

	dense := make([][]float64, n)
	for i := range dense {
		dense[i] = make([]float64, n)
		dense[i][i] = 2
		if i > 0 {
			dense[i][i-1] = -1
		}
		if i < n-1 {
			dense[i][i+1] = -1
		}
	}

	e0, psi0, err := DominantEig(mat.M(dense), k)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	e0Sparse, psi0Sparse, err := DominantEigSparse(laplacian(n, 0), n, k)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if math.Abs(e0-e0Sparse) > 1e-12 {
		t.Fatalf("%v %v", e0, e0Sparse)
	}
	for i, v := range psi0 {
		if math.Abs(v-psi0Sparse[i]) > 1e-12 {
			t.Fatalf("%d %v %v", i, v, psi0Sparse[i])
		}
	}
}

// TestVariational checks the Rayleigh-Ritz property: the ground energy
// estimate is non-increasing in the Krylov dimension.
func TestVariational(t *testing.T) {
	t.Parallel()
	const n = 32
	apply := laplacian(n, 0)

	prev := math.Inf(1)
	for _, k := range []int{4, 8, 16, 32} {
		e0, _, err := DominantEigSparse(apply, n, k)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if e0 > prev+1e-12 {
			t.Fatalf("k %d %v %v", k, e0, prev)
		}
		prev = e0
	}

	wantE0, _ := laplacianGround(n)
	if math.Abs(prev-wantE0) > 1e-10 {
		t.Fatalf("%v, expected %v", prev, wantE0)
	}
}

// diagApply returns the action of laplacian + g*diag(1..n), which stays
// tridiagonal so its exact spectrum is available at any g.
func diagApply(n int, g float64) func(dst, x []float64) {
	return func(dst, x []float64) {
		for i := 0; i < n; i++ {
			dst[i] = (2 + g*float64(i+1)) * x[i]
			if i > 0 {
				dst[i] -= x[i-1]
			}
			if i < n-1 {
				dst[i] -= x[i+1]
			}
		}
	}
}

func diagGround(n int, g float64) (float64, []float64) {
	diag := make([]float64, n)
	offdiag := make([]float64, n-1)
	for i := 0; i < n; i++ {
		diag[i] = 2 + g*float64(i+1)
		if i < n-1 {
			offdiag[i] = -1
		}
	}
	ground := mat.EigenSymTridiag(diag, offdiag)[0]
	psi0 := ground.Vec
	for _, v := range psi0 {
		if math.Abs(v) > 1e-8 {
			if v < 0 {
				floats.Scale(-1, psi0)
			}
			break
		}
	}
	return ground.Val, psi0
}

func TestTangent(t *testing.T) {
	t.Parallel()
	const n = 8
	const g = 0.8
	const h = 1e-5

	gadjoint := func(u, v []float64) float64 {
		var s float64
		for i, ui := range u {
			s += ui * float64(i+1) * v[i]
		}
		return s
	}

	e0, psi0, err := DominantEigSparse(diagApply(n, g), n, n)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	de0, dpsi0, err := Tangent(diagApply(n, g), func(dst, x []float64) {
		for i, xi := range x {
			dst[i] = float64(i+1) * xi
		}
	}, gadjoint, e0, psi0)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	e0Plus, psi0Plus := diagGround(n, g+h)
	e0Minus, psi0Minus := diagGround(n, g-h)

	if fd := (e0Plus - e0Minus) / (2 * h); math.Abs(de0-fd) > 1e-6 {
		t.Fatalf("%v, expected %v", de0, fd)
	}
	for i := range dpsi0 {
		fd := (psi0Plus[i] - psi0Minus[i]) / (2 * h)
		if math.Abs(dpsi0[i]-fd) > 1e-6 {
			t.Fatalf("%d %v, expected %v", i, dpsi0[i], fd)
		}
	}
}

// TestBackward checks the adjoint against the tangent through the duality
// gbar = ebar*de0 + <vbar, dpsi0>.
func TestBackward(t *testing.T) {
	t.Parallel()
	const n = 8
	const g = 0.8
	const ebar = 0.7

	gadjoint := func(u, v []float64) float64 {
		var s float64
		for i, ui := range u {
			s += ui * float64(i+1) * v[i]
		}
		return s
	}
	applyDH := func(dst, x []float64) {
		for i, xi := range x {
			dst[i] = float64(i+1) * xi
		}
	}

	e0, psi0, err := DominantEigSparse(diagApply(n, g), n, n)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	vbar := make([]float64, n)
	for i := range vbar {
		vbar[i] = math.Sin(float64(3*i + 1))
	}

	gbar, lambda, err := Backward(diagApply(n, g), gadjoint, e0, psi0, ebar, vbar)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if dot := floats.Dot(lambda, psi0); math.Abs(dot) > 1e-10 {
		t.Fatalf("%v", dot)
	}

	de0, dpsi0, err := Tangent(diagApply(n, g), applyDH, gadjoint, e0, psi0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := ebar*de0 + floats.Dot(vbar, dpsi0)
	if math.Abs(gbar-want) > 1e-8 {
		t.Fatalf("%v, expected %v", gbar, want)
	}
}

// TestArnoldi cross-checks the ground energy against an independent Krylov
// solver. The operator is shifted so that the ground state dominates in
// magnitude.
func TestArnoldi(t *testing.T) {
	t.Parallel()
	const n = 6
	const shift = -4.0

	h := tensor.Zeros(n, n)
	for i := 0; i < n; i++ {
		h.SetAt([]int{i, i}, complex(float32(2+shift), 0))
		if i > 0 {
			h.SetAt([]int{i, i - 1}, -1)
		}
		if i < n-1 {
			h.SetAt([]int{i, i + 1}, -1)
		}
	}

	eigvals, eigvecs := tensor.Zeros(1), tensor.Zeros(1)
	var bufs [7]*tensor.Dense
	for i := range bufs {
		bufs[i] = tensor.Zeros(1)
	}
	if err := tensor.Arnoldi(eigvals, eigvecs, h, 1, bufs); err != nil {
		t.Fatalf("%+v", err)
	}
	var got float64
	for _, v := range eigvals.All() {
		got = real(complex128(v))
	}

	want, _, err := DominantEigSparse(laplacian(n, shift), n, n)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(got-want)/math.Abs(want) > 1e-3 {
		t.Fatalf("%v, expected %v", got, want)
	}
}

func TestDominantEigSparseBadArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dim int
		k   int
	}{
		{dim: 1, k: 4},
		{dim: 4, k: 1},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %d", test.dim, test.k), func(t *testing.T) {
			t.Parallel()
			if _, _, err := DominantEigSparse(laplacian(test.dim, 0), test.dim, test.k); err == nil {
				t.Fatalf("expect error")
			}
		})
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
