package ledger

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is stable per run so repeated downloads overwrite each other.
func (l Ledger) Filename(f Format) string {
	return fmt.Sprintf("ledger_%04d_%02d_%s.%s", l.Year, l.Month, l.RunID, f)
}

var header = []string{"Account Name", "Bank Name", "Account Number", "Amount", "Narration"}

func (l Ledger) Write(w io.Writer, f Format) error {
	switch f {
	case FormatCSV:
		return l.WriteCSV(w)
	case FormatXLSX:
		return l.WriteXLSX(w)
	}
	return ErrUnsupportedFormat
}

// WriteCSV is the canonical form: the same ledger always yields the same bytes.
func (l Ledger) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range l.Entries {
		if err := cw.Write([]string{e.AccountName, e.BankName, e.AccountNumber, e.Amount.String(), e.Narration}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Ledger"

func (l Ledger) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellStr(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", cell, err)
		}
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, e := range l.Entries {
		if err := writeXLSXRow(f, i+2, e, amountStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "E", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writeXLSXRow(f *excelize.File, row int, e Entry, amountStyle int) error {
	text := []struct{ col, value string }{
		{"A", e.AccountName},
		{"B", e.BankName},
		// text, so leading zeros survive
		{"C", e.AccountNumber},
		{"E", e.Narration},
	}
	for _, c := range text {
		cell := fmt.Sprintf("%s%d", c.col, row)
		if err := f.SetCellStr(sheetName, cell, c.value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}

	amount := fmt.Sprintf("D%d", row)
	if err := f.SetCellFloat(sheetName, amount, e.Amount.Decimal().InexactFloat64(), 2, 64); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", amount, err)
	}
	if err := f.SetCellStyle(sheetName, amount, amount, amountStyle); err != nil {
		return fmt.Errorf("failed to style cell %s: %w", amount, err)
	}
	return nil
}
