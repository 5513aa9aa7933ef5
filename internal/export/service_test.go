package export

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/oladayo-ade/solarbill/constants"
	"github.com/oladayo-ade/solarbill/internal/bill"
	"github.com/oladayo-ade/solarbill/internal/pipeline"
	"github.com/oladayo-ade/solarbill/internal/projection"
)

func TestBuildXLSXIncludesCompleteAndFailedRows(t *testing.T) {
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))

	complete := &pipeline.Result{
		ID:         uuid.New(),
		SourcePath: "march.txt",
		State:      constants.StateComplete,
		Bill: &bill.BillRecord{
			AccountNumber: "ACCT-123",
			PeriodStart:   "2024-03-01",
			PeriodEnd:     "2024-03-31",
			NewCharges:    decimal.RequireFromString("187.42"),
			AmountDue:     decimal.RequireFromString("210.44"),
		},
		Projection: &projection.Projection{
			SystemSizeKW:        8.5,
			AnnualProductionKWh: 11900,
			UnitCost:            decimal.RequireFromString("0.2812"),
			NetCost:             decimal.RequireFromString("16660"),
			TotalSavings:        decimal.RequireFromString("78000.55"),
			PaybackYears:        5.0,
		},
		Confidence: 90,
	}
	failed := &pipeline.Result{
		ID:          uuid.New(),
		SourcePath:  "broken.pdf",
		State:       constants.StateFailed,
		NeedsReview: false,
		Error:       "all providers exhausted for vision after 2 attempts",
	}

	out, err := svc.BuildXLSX([]*pipeline.Result{complete, failed})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	const sheet = "Extractions"

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Source", header)

	source, _ := f.GetCellValue(sheet, "A2")
	assert.Equal(t, "march.txt", source)
	account, _ := f.GetCellValue(sheet, "C2")
	assert.Equal(t, "ACCT-123", account)
	charges, _ := f.GetCellValue(sheet, "F2")
	assert.Equal(t, "187.42", charges)
	confidence, _ := f.GetCellValue(sheet, "O2")
	assert.Equal(t, "90", confidence)

	state, _ := f.GetCellValue(sheet, "B3")
	assert.Equal(t, string(constants.StateFailed), state)
	errCell, _ := f.GetCellValue(sheet, "T3")
	assert.Equal(t, failed.Error, errCell)
	accountFailed, _ := f.GetCellValue(sheet, "C3")
	assert.Empty(t, accountFailed)
}

func TestBuildXLSXEmptyBatch(t *testing.T) {
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))

	out, err := svc.BuildXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Extractions")
	require.NoError(t, err)
	assert.Len(t, rows, 1) // header only
}
