package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sabaq-center/sabaq-service/internal/models"
)

// AttendedRow is one row of the Attended sheet.
type AttendedRow struct {
	Name        string
	ITSNumber   string
	Email       string
	Status      models.BulkMarkStatus
	MinutesLate int
	Method      models.AttendanceMethod
}

// MemberRow is one row of the Absent and No-Shows sheets.
type MemberRow struct {
	Name      string
	ITSNumber string
	Email     string
}

// SessionReport is the aggregate the workbook is built from.
type SessionReport struct {
	SabaqName   string
	SessionDate string

	Attended []AttendedRow
	Absent   []MemberRow
	NoShows  []MemberRow
}

const (
	sheetAttended = "Attended"
	sheetAbsent   = "Absent"
	sheetNoShows  = "No-Shows"
)

// BuildWorkbook renders the three-sheet session report and returns the xlsx
// bytes for the email attachment.
func BuildWorkbook(report SessionReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes Attended; the other two are added after.
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetAttended); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetAbsent); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetNoShows); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeAttendedSheet(f, headerStyle, report.Attended); err != nil {
		return nil, err
	}
	if err := writeMemberSheet(f, sheetAbsent, headerStyle, report.Absent); err != nil {
		return nil, err
	}
	if err := writeMemberSheet(f, sheetNoShows, headerStyle, report.NoShows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAttendedSheet(f *excelize.File, headerStyle int, rows []AttendedRow) error {
	headers := []string{"Name", "ITS Number", "Email", "Status", "Minutes Late", "Method"}
	if err := writeHeader(f, sheetAttended, headerStyle, headers); err != nil {
		return err
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []interface{}{
			row.Name,
			row.ITSNumber,
			row.Email,
			string(row.Status),
			row.MinutesLate,
			string(row.Method),
		}
		if err := f.SetSheetRow(sheetAttended, cell, &values); err != nil {
			return fmt.Errorf("failed to write row on %s: %w", sheetAttended, err)
		}
	}
	return nil
}

func writeMemberSheet(f *excelize.File, sheet string, headerStyle int, rows []MemberRow) error {
	headers := []string{"Name", "ITS Number", "Email"}
	if err := writeHeader(f, sheet, headerStyle, headers); err != nil {
		return err
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []interface{}{row.Name, row.ITSNumber, row.Email}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row on %s: %w", sheet, err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	endCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("failed to resolve header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", endCol+"1", style); err != nil {
		return fmt.Errorf("failed to style header on %s: %w", sheet, err)
	}
	return nil
}

// AttachmentName builds the workbook filename for the report email.
func AttachmentName(sabaqName, sessionDate string) string {
	return fmt.Sprintf("attendance-%s-%s.xlsx", sanitize(sabaqName), sessionDate)
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		case r == ' ', r == '_':
			out = append(out, '-')
		}
	}
	return string(out)
}
