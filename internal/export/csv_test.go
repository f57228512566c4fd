package export

import (
	"bytes"
	"testing"
	"time"

	"attendancechecker/internal/attendance"
)

func TestWriteKolegijReport(t *testing.T) {
	rows := []attendance.StudentAttendance{
		{StudentID: 1, FirstName: "Ana", LastName: "Horvat", OIB: "12345678901", AttendedCount: 1, TotalCount: 2, Percentage: "50.00"},
		{StudentID: 2, FirstName: "Ivan", LastName: "Kovac", OIB: "N/A", AttendedCount: 0, TotalCount: 2, Percentage: "0.00"},
	}

	var buf bytes.Buffer
	if err := WriteKolegijReport(&buf, rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := "Ime,Prezime,OIB,Postotak prisustva\n" +
		"Ana,Horvat,12345678901,50.00%\n" +
		"Ivan,Kovac,N/A,0.00%\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteTerminReport(t *testing.T) {
	scanned := time.Date(2026, 3, 9, 10, 5, 0, 0, time.UTC)
	checkIns := []attendance.TerminCheckIn{
		{
			Nazocnost: attendance.Nazocnost{ID: "a", TerminID: 1, StudentID: 1, DateScanned: scanned},
			FirstName: "Ana",
			LastName:  "Horvat",
			OIB:       "  12345678901  ",
		},
	}

	var buf bytes.Buffer
	if err := WriteTerminReport(&buf, checkIns); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := "Ime,Prezime,OIB,Vrijeme prijave\n" +
		"Ana,Horvat,12345678901,09.03.2026 10:05\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteKolegijReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKolegijReport(&buf, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.String() != "Ime,Prezime,OIB,Postotak prisustva\n" {
		t.Fatalf("expected header only, got %q", buf.String())
	}
}
