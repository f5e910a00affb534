// Package report renders issuance records and item ledgers as xlsx workbooks.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/zaloga/internal/model"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateFormat = "2006-01-02"

var issuanceHeaders = []string{"ID", "Date", "Item ID", "Item", "Quantity", "Department"}
var issuanceWidths = []float64{8, 12, 10, 32, 10, 24}

var ledgerHeaders = []string{"ID", "Date", "Type", "Quantity", "Balance", "Issuance ID"}
var ledgerWidths = []float64{8, 12, 10, 10, 10, 12}

// Issuances builds a workbook with one row per issuance record and a total
// quantity row at the bottom. The caller must Close the returned file.
func Issuances(records []model.Issuance) (*excelize.File, error) {
	f, sheet, err := newSheet("Issuances", issuanceHeaders, issuanceWidths)
	if err != nil {
		return nil, err
	}

	total := 0
	for i, r := range records {
		row := i + 2
		values := []any{r.ID, r.DateIssued.Format(dateFormat), r.ItemID, r.ItemName, r.QuantityIssued, r.DepartmentName}
		if err := setRow(f, sheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		total += r.QuantityIssued
	}

	if err := addTotal(f, sheet, len(records)+2, "E", total); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// Ledger builds a workbook with an item's ledger entries in the given order.
// The caller must Close the returned file.
func Ledger(item *model.Item, entries []model.LedgerEntry) (*excelize.File, error) {
	f, sheet, err := newSheet("Ledger", ledgerHeaders, ledgerWidths)
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		values := []any{e.ID, e.TransactionDate.Format(dateFormat), e.TransactionType, e.Quantity, e.BalanceAfter}
		if e.IssuanceID != nil {
			values = append(values, *e.IssuanceID)
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	info := "Item"
	if _, err := f.NewSheet(info); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating item sheet: %w", err)
	}
	rows := [][]any{
		{"ID", item.ID},
		{"Name", item.Name},
		{"Unit", item.Unit},
		{"Quantity", item.Quantity},
		{"Cost per unit", item.CostPerUnit.String()},
		{"Location", item.Location},
	}
	for i, values := range rows {
		if err := setRow(f, info, i+1, values); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetColWidth(info, "A", "A", 16)
	f.SetColWidth(info, "B", "B", 32)

	return f, nil
}

// IssuancesFilename is the download name of the issuance export.
func IssuancesFilename() string { return "issuances.xlsx" }

// LedgerFilename is the download name of an item's ledger export.
func LedgerFilename(itemID int64) string { return fmt.Sprintf("ledger-item-%d.xlsx", itemID) }

func newSheet(name string, headers []string, widths []float64) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("naming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("creating header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(name, cell, h)
		f.SetCellStyle(name, cell, cell, headerStyle)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(name, col, col, w)
	}

	return f, name, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func addTotal(f *excelize.File, sheet string, row int, col string, total int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating total style: %w", err)
	}
	label := fmt.Sprintf("A%d", row)
	f.SetCellValue(sheet, label, "Total")
	f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), total)
	f.SetCellStyle(sheet, label, fmt.Sprintf("%s%d", col, row), style)
	return nil
}
