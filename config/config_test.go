package config

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	fpath := filepath.Join(t.TempDir(), "sweep.yaml")
	data := []byte("n: 4\nnpoints: 3\ngmin: 0.5\ngmax: 1.5\n")
	if err := os.WriteFile(fpath, data, 0644); err != nil {
		t.Fatalf("%+v", err)
	}

	cfg, err := Load(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.N != 4 || cfg.Npoints != 3 || cfg.GMin != 0.5 || cfg.GMax != 1.5 {
		t.Fatalf("%#v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.K != DefaultK {
		t.Fatalf("%d", cfg.K)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()
	tests := []string{
		"n: 1\n",
		"k: 0\n",
		"npoints: 0\n",
		"gmin: 2\ngmax: 1\n",
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			fpath := filepath.Join(t.TempDir(), "sweep.yaml")
			if err := os.WriteFile(fpath, []byte(test), 0644); err != nil {
				t.Fatalf("%+v", err)
			}
			if _, err := Load(fpath); err == nil {
				t.Fatalf("expect error")
			}
		})
	}
}

func TestGrid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Npoints = 5
	cfg.GMin = 1
	cfg.GMax = 2

	want := []float64{1, 1.25, 1.5, 1.75, 2}
	for i, w := range want {
		if g := cfg.Grid(i); math.Abs(g-w) > 1e-12 {
			t.Fatalf("%d %v, expected %v", i, g, w)
		}
	}
}

func TestGridSinglePoint(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Npoints = 1
	if g := cfg.Grid(0); g != cfg.GMin {
		t.Fatalf("%v", g)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
