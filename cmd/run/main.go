// Command run sweeps the transverse field over a grid and compares the four
// fidelity susceptibility estimates per point.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"

	"tfim"
	"tfim/config"
	"tfim/store"
)

const (
	fnameResults = "results.db"
)

var (
	runDir     = flag.String("d", filepath.Join("runs", "chif"), "run directory")
	configPath = flag.String("c", "", "sweep config file")
	dumpDir    = flag.String("dump", "", "write the Hamiltonian at gmin to this directory in COO format and exit")
)

func solve(model *tfim.Model, db *store.DB, cfg *config.Config, i int) (store.Point, error) {
	if p, ok, err := db.Get(i); err != nil {
		return store.Point{}, errors.Wrap(err, "")
	} else if ok {
		return p, nil
	}

	g := cfg.Grid(i)
	model.SetG(g)
	model.SetHamiltonian()

	p := store.Point{I: i, G: g}
	var err error
	if p.Perturbation, err = tfim.ChiFPerturbation(model); err != nil {
		return store.Point{}, errors.Wrap(err, fmt.Sprintf("%f", g))
	}
	if p.DenseAD, err = tfim.ChiFDenseAD(model, cfg.K); err != nil {
		return store.Point{}, errors.Wrap(err, fmt.Sprintf("%f", g))
	}
	var e0 float64
	var psi0 []float64
	if e0, psi0, p.SparseAD, err = tfim.ChiFSparseAD(model, cfg.K); err != nil {
		return store.Point{}, errors.Wrap(err, fmt.Sprintf("%f", g))
	}
	if p.Geometric, err = tfim.ChiFGeometric(model, e0, psi0); err != nil {
		return store.Point{}, errors.Wrap(err, fmt.Sprintf("%f", g))
	}

	if err := db.Put(p); err != nil {
		return store.Point{}, errors.Wrap(err, "")
	}
	return p, nil
}

func dump(cfg *config.Config) error {
	model := tfim.New(cfg.N)
	model.SetG(cfg.GMin)
	model.SetHamiltonian()

	if err := os.MkdirAll(*dumpDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	if err := model.Hamiltonian().WriteCOO(*dumpDir); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func plot(points []store.Point, n int) {
	curves := []struct {
		name   string
		series func(store.Point) float64
	}{
		{name: "perturbation", series: func(p store.Point) float64 { return p.Perturbation }},
		{name: "AD: normal representation", series: func(p store.Point) float64 { return p.DenseAD }},
		{name: "AD: sparse representation", series: func(p store.Point) float64 { return p.SparseAD }},
		{name: "Forward AD", series: func(p store.Point) float64 { return p.Geometric }},
	}
	for _, c := range curves {
		series := make([]float64, 0, len(points))
		for _, p := range points {
			series = append(series, c.series(p))
		}
		caption := fmt.Sprintf("chi_F of the 1D TFIM, N=%d, %s", n, c.name)
		chart := asciigraph.Plot(series, asciigraph.Height(12), asciigraph.Width(72), asciigraph.Caption(caption))
		fmt.Printf("%s\n\n", chart)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return errors.Wrap(err, "")
		}
	}

	if *dumpDir != "" {
		return dump(cfg)
	}

	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	db, err := store.Open(filepath.Join(*runDir, fnameResults))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	model := tfim.New(cfg.N)
	points := make([]store.Point, 0, cfg.Npoints)
	for i := 0; i < cfg.Npoints; i++ {
		p, err := solve(model, db, cfg, i)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}
		points = append(points, p)
		log.Printf("g: %f chiF_perturbation: %f chiF_denseAD: %f chiF_sparseAD: %f chiF_geometric: %f", p.G, p.Perturbation, p.DenseAD, p.SparseAD, p.Geometric)
	}

	fmt.Printf("g,perturbation,dense_ad,sparse_ad,geometric\n")
	for _, p := range points {
		fmt.Printf("%f,%f,%f,%f,%f\n", p.G, p.Perturbation, p.DenseAD, p.SparseAD, p.Geometric)
	}
	plot(points, cfg.N)
	return nil
}
