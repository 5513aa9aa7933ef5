package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oladayo-ade/solarbill/constants"
	"github.com/oladayo-ade/solarbill/internal/pipeline"
)

// Service produces XLSX bytes summarizing a batch of extraction results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildXLSX renders one row per result. Failed documents appear with their
// error so a batch report is complete even when individual documents were not.
func (s *Service) BuildXLSX(results []*pipeline.Result) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Source",
		"State",
		"Account",
		"Period Start",
		"Period End",
		"New Charges",
		"Amount Due",
		"Unit Cost ($/kWh)",
		"System Size (kW)",
		"Annual Production (kWh)",
		"Net Cost",
		"Payback (yrs)",
		"25yr Savings",
		"Battery (kWh)",
		"Confidence",
		"Needs Review",
		"Parse Layer",
		"Imputed Months",
		"Flags",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range results {
		values := rowValues(r)
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(results),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func rowValues(r *pipeline.Result) []any {
	values := []any{
		r.SourcePath,
		string(r.State),
		"", "", "", "", "", // bill columns when absent
		"", "", "", "", "", "", "",
		r.Confidence,
		r.NeedsReview,
		int(r.ParseLayer),
		r.ImputedMonths,
		"",
		r.Error,
	}
	if r.State == constants.StateFailed {
		return values
	}
	if b := r.Bill; b != nil {
		values[2] = b.AccountNumber
		values[3] = b.PeriodStart
		values[4] = b.PeriodEnd
		values[5] = b.NewCharges.String()
		values[6] = b.AmountDue.String()
		flags := ""
		for i, fl := range b.Flags {
			if i > 0 {
				flags += ", "
			}
			flags += fl
		}
		values[18] = flags
	}
	if p := r.Projection; p != nil {
		values[7] = p.UnitCost.String()
		values[8] = p.SystemSizeKW
		values[9] = p.AnnualProductionKWh
		values[10] = p.NetCost.String()
		values[11] = p.PaybackYears
		values[12] = p.TotalSavings.String()
		if p.Battery.Recommended {
			values[13] = p.Battery.CapacityKWh
		}
	}
	return values
}
