// Package refdata loads tariff reference data from operator files.
package refdata

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// gridCells is the fixed cell layout of the operator tariff sheet.
var gridCells = []struct {
	cell  string
	field func(t *domain.GridTariff) *float64
}{
	{"O15", func(t *domain.GridTariff) *float64 { return &t.PeakUsageAvgMonthlyCost }},
	{"O17", func(t *domain.GridTariff) *float64 { return &t.PeakUsageKWh }},
	{"O29", func(t *domain.GridTariff) *float64 { return &t.DataManagementStandard }},
	{"O28", func(t *domain.GridTariff) *float64 { return &t.DataManagementDynamic }},
	{"O32", func(t *domain.GridTariff) *float64 { return &t.PublicServicesKWh }},
	{"O35", func(t *domain.GridTariff) *float64 { return &t.SurchargesKWh }},
	{"O37", func(t *domain.GridTariff) *float64 { return &t.TransmissionChargesKWh }},
}

// ReadGridSheet reads the drawdown electricity tariff of provider from the
// active sheet of an operator workbook.
func ReadGridSheet(r io.Reader, provider string) (*domain.GridTariff, error) {
	if strings.TrimSpace(provider) == "" {
		return nil, fmt.Errorf("%w: provider is required", storage.ErrInvalidInput)
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readGrid(f, provider)
}

// ReadGridFile is ReadGridSheet for a workbook on disk.
func ReadGridFile(path, provider string) (*domain.GridTariff, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	t, err := readGrid(f, provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readGrid(f *excelize.File, provider string) (*domain.GridTariff, error) {
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no active sheet", storage.ErrInvalidInput)
	}

	t := &domain.GridTariff{
		Country:   "BE",
		Provider:  provider,
		Direction: domain.DirectionDrawdown,
	}
	for _, c := range gridCells {
		raw, err := f.GetCellValue(sheet, c.cell, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read %s!%s: %w", sheet, c.cell, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cell %s!%s: %q is not a number", storage.ErrInvalidInput, sheet, c.cell, raw)
		}
		*c.field(t) = v
	}
	return t, nil
}
