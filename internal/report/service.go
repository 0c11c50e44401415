// Package report renders a shop's retained edit history as downloadable
// CSV and XLSX documents.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spector-app/bulkedit/internal/domain"
)

// HistorySource loads the retained snapshot generations for a shop.
type HistorySource interface {
	LoadHistory(ctx context.Context, shopID string) (domain.ShopSnapshotHistory, error)
}

// Service renders edit history reports.
type Service struct {
	snapshots HistorySource
}

// NewService creates a report service.
func NewService(snapshots HistorySource) *Service {
	return &Service{snapshots: snapshots}
}

var reportHeader = []string{
	"generation", "batch_id", "operation", "created_at",
	"resource_type", "resource_id", "field", "old_value", "new_value",
}

// row is one flattened change line in the report.
type row struct {
	generation string
	batch      *domain.EditBatch
	change     domain.FieldChange
}

func (r row) cells() []string {
	return []string{
		r.generation,
		r.batch.BatchID.String(),
		r.batch.OperationName,
		r.batch.CreatedAt.Format(time.RFC3339),
		string(r.change.ResourceType),
		r.change.ResourceID,
		string(r.change.Field),
		r.change.OldValue.String(),
		r.change.NewValue.String(),
	}
}

func (s *Service) rows(ctx context.Context, shopID string) ([]row, error) {
	history, err := s.snapshots.LoadHistory(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", shopID, err)
	}

	var rows []row
	for _, generation := range []struct {
		name  string
		batch *domain.EditBatch
	}{
		{"current", history.Current},
		{"previous", history.Previous},
	} {
		if generation.batch == nil {
			continue
		}
		for _, change := range generation.batch.ItemChanges {
			rows = append(rows, row{generation: generation.name, batch: generation.batch, change: change})
		}
	}
	return rows, nil
}

// WriteCSV streams the report as CSV. A shop with no history yields just
// the header row.
func (s *Service) WriteCSV(ctx context.Context, shopID string, w io.Writer) error {
	rows, err := s.rows(ctx, shopID)
	if err != nil {
		return err
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := csvWriter.Write(r.cells()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteXLSX streams the report as a single-sheet workbook.
func (s *Service) WriteXLSX(ctx context.Context, shopID string, w io.Writer) error {
	rows, err := s.rows(ctx, shopID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Changes"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]any, len(reportHeader))
	for i, column := range reportHeader {
		header[i] = column
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		cells := r.cells()
		values := make([]any, len(cells))
		for j, value := range cells {
			values[j] = value
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
