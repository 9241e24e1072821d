package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/rustyeddy/servicer/credit"
	"github.com/rustyeddy/servicer/parity"
)

// BuildXLSX renders the report as a workbook with summary, loans and ledger sheets.
func BuildXLSX(rep *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	loansSheet := "loans"
	ledgerSheet := "ledger"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(loansSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return nil, err
	}

	outstanding, _ := rep.Outstanding.Float64()
	_ = f.SetCellValue(summarySheet, "A1", "Portfolio Report")
	_ = f.SetCellValue(summarySheet, "A3", "Run ID")
	_ = f.SetCellValue(summarySheet, "B3", rep.RunID)
	_ = f.SetCellValue(summarySheet, "A4", "As of")
	_ = f.SetCellValue(summarySheet, "B4", credit.FormatDate(rep.Date))
	_ = f.SetCellValue(summarySheet, "A5", "Loans")
	_ = f.SetCellValue(summarySheet, "B5", len(rep.Rows))
	_ = f.SetCellValue(summarySheet, "A6", "Payments")
	_ = f.SetCellValue(summarySheet, "B6", rep.Payments)
	_ = f.SetCellValue(summarySheet, "A7", "Outstanding")
	_ = f.SetCellValue(summarySheet, "B7", outstanding)
	_ = f.SetCellValue(summarySheet, "A9", "Bucket")
	_ = f.SetCellValue(summarySheet, "B9", "Loans")
	for i, b := range parity.Buckets {
		row := i + 10
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), int(b))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), rep.Distribution[b])
	}

	headers := []string{"Loan", "UUID", "Convention", "Principal", "Balance", "Required", "Paid", "Missed", "Status", "Days Without Payment", "Paid Periods", "Bucket"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(loansSheet, cell, h)
	}
	for i, r := range rep.Rows {
		row := i + 2
		values := []any{r.LoanID, r.UUID.String(), r.Convention.String(), r.Principal, r.Balance,
			r.Required, r.Paid, r.Missed, string(r.Status), r.DaysWithoutPayment, r.PaidPeriods, nil}
		if r.Applicable {
			values[len(values)-1] = int(r.Bucket)
		}
		if err := f.SetSheetRow(loansSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
	}

	ledgerHeaders := []any{"Loan", "Period", "Expected Date", "Amount", "Date", "Paid", "Delay", "Category"}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeaders); err != nil {
		return nil, err
	}
	for i, rec := range rep.Ledger {
		values := []any{rec.LoanID, rec.Period, dateCell(rec.ExpectedDate), nil, dateCell(rec.Date), rec.Paid, nil, nil}
		if rec.Amount != nil {
			values[3] = *rec.Amount
		}
		if rec.Delay != nil {
			values[6] = *rec.Delay
		}
		if rec.Category != nil {
			values[7] = *rec.Category
		}
		if err := f.SetSheetRow(ledgerSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dateCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return credit.FormatDate(*t)
}

// BuildPDF renders a one page portfolio summary.
func BuildPDF(rep *Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Portfolio Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", rep.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("As of: %s", credit.FormatDate(rep.Date)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", rep.Created.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Loans: %d  Payments: %d", len(rep.Rows), rep.Payments))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Outstanding: %s", rep.Outstanding.StringFixed(2)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Bucket", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Loans", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, b := range parity.Buckets {
		pdf.CellFormat(50, 6, bucketLabel(b), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", rep.Distribution[b]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
