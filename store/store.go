// Package store persists sweep results in sqlite, so that interrupted
// sweeps resume where they stopped.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableResults = "results"
)

// Point is the result of one sweep point.
type Point struct {
	I            int
	G            float64
	Perturbation float64
	DenseAD      float64
	SparseAD     float64
	Geometric    float64
}

type DB struct {
	Path string

	db *sql.DB
}

func Open(dbPath string) (*DB, error) {
	s := &DB{Path: dbPath}
	var err error
	s.db, err = sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := prepareDB(s.db); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "")
	}

	return s, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) Put(p Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (i, g, perturbation, dense_ad, sparse_ad, geometric) VALUES (?, ?, ?, ?, ?, ?)`, tableResults)
	args := []any{p.I, p.G, p.Perturbation, p.DenseAD, p.SparseAD, p.Geometric}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
	}
	return nil
}

// Get returns the point at grid index i, and whether it exists.
func (s *DB) Get(i int) (Point, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT i, g, perturbation, dense_ad, sparse_ad, geometric FROM %s WHERE i=?`, tableResults)
	var p Point
	err := s.db.QueryRowContext(ctx, sqlStr, i).Scan(&p.I, &p.G, &p.Perturbation, &p.DenseAD, &p.SparseAD, &p.Geometric)
	switch {
	case err == sql.ErrNoRows:
		return Point{}, false, nil
	case err != nil:
		return Point{}, false, errors.Wrap(err, "")
	default:
		return p, true, nil
	}
}

// All returns every stored point ordered by grid index.
func (s *DB) All() ([]Point, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT i, g, perturbation, dense_ad, sparse_ad, geometric FROM %s ORDER BY i`, tableResults)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	ps := make([]Point, 0)
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.I, &p.G, &p.Perturbation, &p.DenseAD, &p.SparseAD, &p.Geometric); err != nil {
			return nil, errors.Wrap(err, "")
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	return ps, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (i INTEGER PRIMARY KEY, g REAL, perturbation REAL, dense_ad REAL, sparse_ad REAL, geometric REAL) STRICT`, tableResults)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
