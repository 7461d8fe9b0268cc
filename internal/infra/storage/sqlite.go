package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netauction/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists experiment runs and their result rows in SQLite
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.ExperimentRun{}, &domain.PriceSeries{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Run Operations
// ======================================================================================

// CreateRun inserts a new, not yet completed run and sets its ID
func (s *Storage) CreateRun(ctx context.Context, run *domain.ExperimentRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

// FinishRun marks a run as completed
func (s *Storage) FinishRun(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&domain.ExperimentRun{}).Where("id = ?", id).
		Updates(map[string]any{"completed": true, "finished_at": time.Now()}).Error
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, id uint) (*domain.ExperimentRun, error) {
	var run domain.ExperimentRun
	err := s.db.WithContext(ctx).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &run, err
}

// ListRuns retrieves all runs, newest first
func (s *Storage) ListRuns(ctx context.Context) ([]domain.ExperimentRun, error) {
	var runs []domain.ExperimentRun
	err := s.db.WithContext(ctx).Order("id desc").Find(&runs).Error
	return runs, err
}

// DeleteRun deletes a run and all of its rows
func (s *Storage) DeleteRun(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&domain.PriceSeries{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ExperimentRun{}, id).Error
	})
}

// ======================================================================================
// Series Operations
// ======================================================================================

// LoadSeries returns the rows of a run in the order they were written
func (s *Storage) LoadSeries(ctx context.Context, runID uint) ([]domain.SeriesRow, error) {
	var series []domain.PriceSeries
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("ordinal").Find(&series).Error; err != nil {
		return nil, err
	}

	rows := make([]domain.SeriesRow, 0, len(series))
	for _, ps := range series {
		rho, err := decimal.NewFromString(ps.Rho)
		if err != nil {
			return nil, fmt.Errorf("%w: rho %q", domain.ErrMalformedRow, ps.Rho)
		}
		side, err := domain.ParseSide(ps.Side)
		if err != nil {
			return nil, err
		}
		row := domain.SeriesRow{Rho: rho, Side: side, NIter: ps.NIter, NDays: ps.NDays, Values: ps.Values}
		if err := row.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RunSink writes the rows of one run. It implements engine.Sink.
type RunSink struct {
	store *Storage
	runID uint
	next  int
}

// Sink returns a result sink bound to a run
func (s *Storage) Sink(runID uint) *RunSink {
	return &RunSink{store: s, runID: runID}
}

// WriteSweep stores the Sell and Buy rows of one rho in a single transaction
func (rs *RunSink) WriteSweep(ctx context.Context, r *domain.SweepResult) error {
	if err := r.Validate(); err != nil {
		return err
	}

	rows := r.Rows()
	series := make([]domain.PriceSeries, len(rows))
	for i, row := range rows {
		series[i] = domain.PriceSeries{
			RunID:   rs.runID,
			Rho:     row.Rho.String(),
			Side:    row.Side.String(),
			NIter:   row.NIter,
			NDays:   row.NDays,
			Values:  row.Values,
			Ordinal: rs.next + i,
		}
	}

	if err := rs.store.db.WithContext(ctx).Create(&series).Error; err != nil {
		return fmt.Errorf("failed to store rho=%s: %w", r.Rho, err)
	}
	rs.next += len(series)
	return nil
}
