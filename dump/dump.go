// Package dump persists a layer's non-zero cells, one row per cell,
// in the coordinate frame spec.md §6 prescribes: the zero-based
// indexed position shifted back by the left ghost width, so that the
// first local cell is (0,...,0) and left ghost cells are negative.
package dump

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"

	"github.com/archsim/meshfield/geometry"
)

// RunTag is a collision-free identifier for one dump run, shared by
// every rank's CSV file and every row written to a SQLite table for
// that run.
type RunTag string

// NewRunTag mints a fresh run tag.
func NewRunTag() RunTag {
	return RunTag(xid.New().String())
}

// Bank is anything dump can read a flat scalar bank out of.
type Bank interface {
	At(i int) float64
}

type sliceBank []float64

func (b sliceBank) At(i int) float64 { return b[i] }

// SliceBank adapts a flat bank slice to Bank.
func SliceBank(bank []float64) Bank { return sliceBank(bank) }

// CSVWriter writes one file per rank, name
// "<prefix>DiffusionLayer_<tag>_<rank>.csv", header
// "DIM_0,DIM_1,...,DIM_{N-1},VALUE", one row per non-zero cell.
type CSVWriter struct {
	Prefix string
}

// Write walks geom's bank and emits the non-zero cells. If
// writeSharedBoundaryAreas is false, ghost rows (outside the local
// region) are omitted.
func (w CSVWriter) Write(geom geometry.LayerGeometry, bank Bank, tag RunTag, writeSharedBoundaryAreas bool) error {
	name := fmt.Sprintf("%sDiffusionLayer_%s_%d.csv", w.Prefix, tag, geom.Rank)

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("dump: opening %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	header := make([]string, geom.NumDims+1)
	for i := 0; i < geom.NumDims; i++ {
		header[i] = fmt.Sprintf("DIM_%d", i)
	}
	header[geom.NumDims] = "VALUE"
	if err := cw.Write(header); err != nil {
		return err
	}

	return walkRows(geom, bank, writeSharedBoundaryAreas, func(coords []int, val float64) error {
		row := make([]string, geom.NumDims+1)
		for i, c := range coords {
			row[i] = strconv.Itoa(c)
		}
		row[geom.NumDims] = strconv.FormatFloat(val, 'g', -1, 64)
		return cw.Write(row)
	})
}

// walkRows recurses outer axis to inner, mirroring
// ValueLayerND::writeDimension's traversal order, emitting one row per
// non-zero cell it visits.
func walkRows(geom geometry.LayerGeometry, bank Bank, writeSharedBoundaryAreas bool,
	emit func(coords []int, val float64) error) error {

	pos := make([]int, geom.NumDims)
	return walkDim(geom, bank, pos, 0, geom.NumDims-1, writeSharedBoundaryAreas, emit)
}

func walkDim(geom geometry.LayerGeometry, bank Bank, pos []int, base, dimIndex int,
	writeSharedBoundaryAreas bool, emit func(coords []int, val float64) error) error {

	a := geom.Axes[dimIndex]
	place := geom.Layout.Place(dimIndex)

	bufferEdge := a.LeftBuffer
	localEdge := bufferEdge + a.LocalWidth
	upperBound := localEdge + a.RightBuffer

	ptr := base
	i := 0
	for ; i < bufferEdge; i++ {
		if writeSharedBoundaryAreas {
			pos[dimIndex] = i
			if err := visitOrRecurse(geom, bank, pos, ptr, dimIndex, writeSharedBoundaryAreas, emit); err != nil {
				return err
			}
		}
		ptr += place
	}
	for ; i < localEdge; i++ {
		pos[dimIndex] = i
		if err := visitOrRecurse(geom, bank, pos, ptr, dimIndex, writeSharedBoundaryAreas, emit); err != nil {
			return err
		}
		ptr += place
	}
	if writeSharedBoundaryAreas {
		for ; i < upperBound; i++ {
			pos[dimIndex] = i
			if err := visitOrRecurse(geom, bank, pos, ptr, dimIndex, writeSharedBoundaryAreas, emit); err != nil {
				return err
			}
			ptr += place
		}
	}
	return nil
}

func visitOrRecurse(geom geometry.LayerGeometry, bank Bank, pos []int, ptr, dimIndex int,
	writeSharedBoundaryAreas bool, emit func(coords []int, val float64) error) error {

	if dimIndex == 0 {
		val := bank.At(ptr)
		if val == 0 {
			return nil
		}
		coords := make([]int, geom.NumDims)
		for j := 0; j < geom.NumDims; j++ {
			coords[j] = pos[j] - geom.Axes[j].LeftBuffer
		}
		return emit(coords, val)
	}
	return walkDim(geom, bank, pos, ptr, dimIndex-1, writeSharedBoundaryAreas, emit)
}

// SQLiteWriter appends the same non-zero-cell rows into a
// dump_cells(run_tag, rank, dim_0..dim_{n-1}, value) table of a
// SQLite-backed file, so every rank's dump is queryable from one file
// instead of one CSV per rank.
type SQLiteWriter struct {
	DB *sql.DB
}

// OpenSQLiteWriter opens (creating if necessary) a SQLite database at
// path and ensures the dump_cells table exists for numDims dimensions.
func OpenSQLiteWriter(path string, numDims int) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("dump: opening sqlite db %s: %w", path, err)
	}

	cols := ""
	for i := 0; i < numDims; i++ {
		cols += fmt.Sprintf("dim_%d INTEGER, ", i)
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS dump_cells (run_tag TEXT, rank INTEGER, %svalue REAL)", cols)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("dump: creating dump_cells table: %w", err)
	}

	return &SQLiteWriter{DB: db}, nil
}

// Close releases the underlying database handle.
func (w *SQLiteWriter) Close() error { return w.DB.Close() }

// Write inserts one row per non-zero cell, tagged with tag and
// geom.Rank.
func (w *SQLiteWriter) Write(geom geometry.LayerGeometry, bank Bank, tag RunTag, writeSharedBoundaryAreas bool) error {
	cols := "run_tag, rank, "
	placeholders := "?, ?, "
	for i := 0; i < geom.NumDims; i++ {
		cols += fmt.Sprintf("dim_%d, ", i)
		placeholders += "?, "
	}
	cols += "value"
	placeholders += "?"

	stmtText := fmt.Sprintf("INSERT INTO dump_cells (%s) VALUES (%s)", cols, placeholders)
	stmt, err := w.DB.Prepare(stmtText)
	if err != nil {
		return fmt.Errorf("dump: preparing insert: %w", err)
	}
	defer stmt.Close()

	return walkRows(geom, bank, writeSharedBoundaryAreas, func(coords []int, val float64) error {
		args := make([]interface{}, 0, geom.NumDims+3)
		args = append(args, string(tag), geom.Rank)
		for _, c := range coords {
			args = append(args, c)
		}
		args = append(args, val)
		_, err := stmt.Exec(args...)
		return err
	})
}
