package reporter

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/settlement"
	"golang-bank-recon-service/pkg/errors"
)

// Archive entry names.
const (
	MatchedEntry   = "matched_setle.csv"
	UnmatchedEntry = "unmatched_setlesabs.csv"
	PositionsEntry = "settlement_result.csv"
)

// PositionColumns is the header of the positions CSV.
var PositionColumns = []string{"Payer", "Beneficiary", "AMOUNT"}

// SettlementArtifacts are the files of one settlement run. A nil field is
// left out of the archive.
type SettlementArtifacts struct {
	Matched       []*models.SettlementRow
	Discrepancies []*models.SettlementRow
	Positions     []models.SettlementPosition
}

// ArtifactsFromMatch collects the report comparison and positions of a run.
func ArtifactsFromMatch(match *settlement.MatchResult, positions []models.SettlementPosition) *SettlementArtifacts {
	a := &SettlementArtifacts{Positions: positions}
	if match != nil {
		a.Matched = nonNil(match.Matched)
		a.Discrepancies = nonNil(match.Discrepancies)
	}
	return a
}

// nonNil keeps an empty partition in the archive as a header-only file.
func nonNil(rows []*models.SettlementRow) []*models.SettlementRow {
	if rows == nil {
		return []*models.SettlementRow{}
	}
	return rows
}

// WriteSettlementArchive zips the artifacts as CSV files into w.
func WriteSettlementArchive(w io.Writer, a *SettlementArtifacts) error {
	if a == nil {
		return errors.InternalError("write_archive", fmt.Errorf("artifacts cannot be nil"))
	}

	zw := zip.NewWriter(w)
	entries := []struct {
		name  string
		write func(io.Writer) error
	}{
		{MatchedEntry, rowsWriter(a.Matched)},
		{UnmatchedEntry, rowsWriter(a.Discrepancies)},
		{PositionsEntry, positionsWriter(a.Positions)},
	}

	for _, entry := range entries {
		if entry.write == nil {
			continue
		}
		f, err := zw.Create(entry.name)
		if err != nil {
			return errors.Wrap(err, errors.KindFile, "failed to add "+entry.name)
		}
		if err := entry.write(f); err != nil {
			return errors.Wrap(err, errors.KindFile, "failed to write "+entry.name)
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(err, errors.KindFile, "failed to finish archive")
	}
	return nil
}

// WriteSettlementArchiveFile writes the archive to path on fs.
func WriteSettlementArchiveFile(fs afero.Fs, path string, a *SettlementArtifacts) error {
	f, err := fs.Create(path)
	if err != nil {
		return errors.FileError(path, err)
	}
	if err := WriteSettlementArchive(f, a); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.FileError(path, err)
	}
	return nil
}

func rowsWriter(rows []*models.SettlementRow) func(io.Writer) error {
	if rows == nil {
		return nil
	}
	return func(w io.Writer) error { return WriteSettlementRows(w, rows) }
}

func positionsWriter(positions []models.SettlementPosition) func(io.Writer) error {
	if positions == nil {
		return nil
	}
	return func(w io.Writer) error { return WritePositions(w, positions) }
}

// WriteSettlementRows writes settlement rows as CSV in SettlementColumns order.
func WriteSettlementRows(w io.Writer, rows []*models.SettlementRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.SettlementColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePositions writes settlement positions as CSV.
func WritePositions(w io.Writer, positions []models.SettlementPosition) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PositionColumns); err != nil {
		return err
	}
	for _, p := range positions {
		if err := cw.Write([]string{p.Payer, p.Beneficiary, p.Amount.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
