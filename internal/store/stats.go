package store

import (
	"context"

	"github.com/jinzhu/gorm"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
)

// StatsStore appends run statistics.
type StatsStore interface {
	Record(ctx context.Context, stats *models.RunStats) error
}

// StatsLog is the gorm implementation of StatsStore over recon_log.
type StatsLog struct {
	db *gorm.DB
}

// NewStatsLog creates a stats log.
func NewStatsLog(db *gorm.DB) *StatsLog {
	return &StatsLog{db: db}
}

// Record appends one row. Rows are never updated.
func (s *StatsLog) Record(ctx context.Context, stats *models.RunStats) error {
	if err := ctx.Err(); err != nil {
		return errors.PersistenceFailure("record run stats", err)
	}

	row := ReconLog{
		RunID:            stats.RunID,
		CreatedAt:        stats.CreatedAt,
		BankID:           stats.BankCode,
		UserID:           stats.UserID,
		DateRange:        stats.DateRange,
		UploadedRows:     stats.UploadedRows,
		RequestedRows:    stats.RequestedRows,
		ReconciledRows:   stats.ReconciledRows,
		UnreconciledRows: stats.UnreconciledRows,
		ExceptionRows:    stats.ExceptionRows,
		Feedback:         stats.Feedback,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return errors.PersistenceFailure("record run stats", err).WithContext("run_id", stats.RunID)
	}
	return nil
}

// RunHistory lists the stats of a bank, newest first.
func (s *StatsLog) RunHistory(ctx context.Context, bankCode string) ([]models.RunStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.SourceFailure("list run stats", err)
	}

	var rows []ReconLog
	if err := s.db.Where("bank_id = ?", bankCode).Order("date_time DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, errors.SourceFailure("list run stats", err).WithContext("bank_code", bankCode)
	}

	out := make([]models.RunStats, len(rows))
	for i, row := range rows {
		out[i] = models.RunStats{
			RunID:            row.RunID,
			BankCode:         row.BankID,
			UserID:           row.UserID,
			DateRange:        row.DateRange,
			UploadedRows:     row.UploadedRows,
			RequestedRows:    row.RequestedRows,
			ReconciledRows:   row.ReconciledRows,
			UnreconciledRows: row.UnreconciledRows,
			ExceptionRows:    row.ExceptionRows,
			Feedback:         row.Feedback,
			CreatedAt:        row.CreatedAt,
		}
	}
	return out, nil
}
