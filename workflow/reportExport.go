package workflow

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportAuditReport writes the audit findings to an xlsx workbook with one
// sheet for candidate discrepancies and one for the center/series money
// summary, so finance staff can review a run without database access.
func ExportAuditReport(report *AuditReport, filename string) error {
	f := excelize.NewFile()

	const discSheet = "Discrepancies"
	if err := f.SetSheetName("Sheet1", discSheet); err != nil {
		return err
	}

	f.SetCellValue(discSheet, "A1", "CandidateID")
	f.SetCellValue(discSheet, "B1", "RegNumber")
	f.SetCellValue(discSheet, "C1", "FullName")
	f.SetCellValue(discSheet, "D1", "Category")
	f.SetCellValue(discSheet, "E1", "Center")
	f.SetCellValue(discSheet, "F1", "Series")
	f.SetCellValue(discSheet, "G1", "Kind")
	f.SetCellValue(discSheet, "H1", "Expected")
	f.SetCellValue(discSheet, "I1", "Actual")
	f.SetCellValue(discSheet, "J1", "Diff")
	f.SetCellValue(discSheet, "K1", "MultiLevel")
	f.SetCellValue(discSheet, "L1", "Detail")

	rows := make([]Discrepancy, 0, len(report.Discrepancies)+len(report.Orphans)+len(report.MissingAmounts))
	rows = append(rows, report.Discrepancies...)
	rows = append(rows, report.Orphans...)
	rows = append(rows, report.MissingAmounts...)
	for i, d := range rows {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(discSheet, "A"+row, d.CandidateID)
		f.SetCellValue(discSheet, "B"+row, d.RegNumber)
		f.SetCellValue(discSheet, "C"+row, d.FullName)
		f.SetCellValue(discSheet, "D"+row, d.Category)
		f.SetCellValue(discSheet, "E"+row, d.CenterNumber)
		f.SetCellValue(discSheet, "F"+row, d.SeriesName)
		f.SetCellValue(discSheet, "G"+row, string(d.Kind))
		f.SetCellValue(discSheet, "H"+row, d.Expected.StringFixed(2))
		f.SetCellValue(discSheet, "I"+row, d.Actual.StringFixed(2))
		f.SetCellValue(discSheet, "J"+row, d.Diff.StringFixed(2))
		f.SetCellValue(discSheet, "K"+row, d.MultiLevel)
		f.SetCellValue(discSheet, "L"+row, d.Detail)
	}

	const summarySheet = "Center Series"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	f.SetCellValue(summarySheet, "A1", "CenterNumber")
	f.SetCellValue(summarySheet, "B1", "CenterName")
	f.SetCellValue(summarySheet, "C1", "Series")
	f.SetCellValue(summarySheet, "D1", "Candidates")
	f.SetCellValue(summarySheet, "E1", "Paid")
	f.SetCellValue(summarySheet, "F1", "PaidTotal")
	f.SetCellValue(summarySheet, "G1", "DueTotal")
	f.SetCellValue(summarySheet, "H1", "GrandTotal")
	f.SetCellValue(summarySheet, "I1", "StoredAmountPaid")
	f.SetCellValue(summarySheet, "J1", "GhostDiff")

	for i, s := range report.Summaries {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(summarySheet, "A"+row, s.CenterNumber)
		f.SetCellValue(summarySheet, "B"+row, s.CenterName)
		f.SetCellValue(summarySheet, "C"+row, s.SeriesName)
		f.SetCellValue(summarySheet, "D"+row, s.CandidateCount)
		f.SetCellValue(summarySheet, "E"+row, s.PaidCount)
		f.SetCellValue(summarySheet, "F"+row, s.PaidTotal.StringFixed(2))
		f.SetCellValue(summarySheet, "G"+row, s.DueTotal.StringFixed(2))
		f.SetCellValue(summarySheet, "H"+row, s.GrandTotal.StringFixed(2))
		if s.HasPaymentRecord {
			f.SetCellValue(summarySheet, "I"+row, s.StoredAmountPaid.StringFixed(2))
			f.SetCellValue(summarySheet, "J"+row, s.GhostDiff.StringFixed(2))
		} else {
			f.SetCellValue(summarySheet, "I"+row, "no record")
		}
	}

	return f.SaveAs(filename)
}
