// Package csvsink writes and reads the flat per-rho result rows consumed by
// the plotting scripts:
//
//	rho,Sell,n_iter,n_days,<n_iter*n_days values, day-major>
//	rho,Buy,n_iter,n_days,<same layout>
package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"netauction/internal/domain"

	"github.com/shopspring/decimal"
)

const headerFields = 4

// Sink appends two rows per rho to a CSV file. The file is opened per
// write so every completed rho is on disk before the next one starts.
type Sink struct {
	path string
}

// NewSink creates a sink appending to path. Parent directories are created.
func NewSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &Sink{path: path}, nil
}

// Path returns the output file.
func (s *Sink) Path() string {
	return s.path
}

// WriteSweep appends the Sell and Buy rows of one rho.
func (s *Sink) WriteSweep(ctx context.Context, r *domain.SweepResult) error {
	if err := r.Validate(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	if err := WriteRows(f, r.Rows()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteRows encodes rows to w.
func WriteRows(w io.Writer, rows []domain.SeriesRow) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		record := make([]string, 0, headerFields+len(row.Values))
		record = append(record,
			row.Rho.String(),
			row.Side.String(),
			strconv.Itoa(row.NIter),
			strconv.Itoa(row.NDays),
		)
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRows decodes every row from r, validating each against its header.
func ReadRows(r io.Reader) ([]domain.SeriesRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []domain.SeriesRow
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
}

// ReadFile decodes every row of the CSV file at path.
func ReadFile(path string) ([]domain.SeriesRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRows(f)
}

func parseRecord(record []string) (domain.SeriesRow, error) {
	var row domain.SeriesRow
	if len(record) < headerFields {
		return row, fmt.Errorf("%w: %d fields", domain.ErrMalformedRow, len(record))
	}

	rho, err := decimal.NewFromString(record[0])
	if err != nil {
		return row, fmt.Errorf("%w: rho %q", domain.ErrMalformedRow, record[0])
	}
	side, err := domain.ParseSide(record[1])
	if err != nil {
		return row, err
	}
	nIter, err := strconv.Atoi(record[2])
	if err != nil {
		return row, fmt.Errorf("%w: n_iter %q", domain.ErrMalformedRow, record[2])
	}
	nDays, err := strconv.Atoi(record[3])
	if err != nil {
		return row, fmt.Errorf("%w: n_days %q", domain.ErrMalformedRow, record[3])
	}

	values := make([]float64, len(record)-headerFields)
	for i, field := range record[headerFields:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return row, fmt.Errorf("%w: value %d: %q", domain.ErrMalformedRow, i, field)
		}
		values[i] = v
	}

	row = domain.SeriesRow{Rho: rho, Side: side, NIter: nIter, NDays: nDays, Values: values}
	return row, row.Validate()
}
