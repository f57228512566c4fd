// Package export renders attendance reports as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"attendancechecker/internal/attendance"
)

// scanTimeLayout matches the format the faculty expects in exported
// sign-in sheets.
const scanTimeLayout = "02.01.2006 15:04"

// WriteKolegijReport writes the per-kolegij percentage report: one row per
// student with the attendance share across all termini of the kolegij.
func WriteKolegijReport(w io.Writer, rows []attendance.StudentAttendance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Ime", "Prezime", "OIB", "Postotak prisustva"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.FirstName,
			row.LastName,
			row.OIB,
			row.Percentage + "%",
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row for student %d: %w", row.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTerminReport writes the per-termin sign-in sheet: who checked into
// the termin and when their card was scanned.
func WriteTerminReport(w io.Writer, checkIns []attendance.TerminCheckIn) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Ime", "Prezime", "OIB", "Vrijeme prijave"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range checkIns {
		record := []string{
			c.FirstName,
			c.LastName,
			attendance.RenderOIB(c.OIB),
			c.DateScanned.Format(scanTimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row for student %d: %w", c.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
