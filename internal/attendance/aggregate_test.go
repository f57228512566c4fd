package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAggregateKolegij(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		students: []Student{
			{ID: 1, FirstName: "Ana", LastName: "Horvat", OIB: "12345678901"},
			{ID: 2, FirstName: "Ivan", LastName: "Kovac", OIB: ""},
		},
		termini: []Termin{
			{ID: 1, KolegijID: 7, StartTime: start},
			{ID: 2, KolegijID: 7, StartTime: start.Add(24 * time.Hour)},
			{ID: 3, KolegijID: 8, StartTime: start}, // other kolegij
		},
		records: []Nazocnost{
			{ID: "a", TerminID: 1, StudentID: 1, DateScanned: start},
			{ID: "b", TerminID: 3, StudentID: 1, DateScanned: start}, // must not count
		},
	}
	svc := NewService(store, 15*time.Minute)

	rows, err := svc.AggregateKolegij(context.Background(), 7)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	ana := rows[0]
	if ana.StudentID != 1 {
		t.Fatalf("expected student 1 first, got %d", ana.StudentID)
	}
	if ana.AttendedCount != 1 || ana.TotalCount != 2 {
		t.Fatalf("expected 1/2 for Ana, got %d/%d", ana.AttendedCount, ana.TotalCount)
	}
	if ana.Percentage != "50.00" {
		t.Fatalf("expected percentage 50.00, got %q", ana.Percentage)
	}

	ivan := rows[1]
	if ivan.AttendedCount != 0 || ivan.Percentage != "0.00" {
		t.Fatalf("expected 0 and 0.00 for Ivan, got %d and %q", ivan.AttendedCount, ivan.Percentage)
	}
	if ivan.OIB != "N/A" {
		t.Fatalf("expected N/A for empty OIB, got %q", ivan.OIB)
	}
}

func TestAggregateNoTermini(t *testing.T) {
	store := &fakeStore{
		students: []Student{{ID: 1, FirstName: "Ana", LastName: "Horvat"}},
	}
	svc := NewService(store, 15*time.Minute)

	rows, err := svc.AggregateKolegij(context.Background(), 7)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].TotalCount != 0 || rows[0].Percentage != "0.00" {
		t.Fatalf("expected 0 total and 0.00, got %d and %q", rows[0].TotalCount, rows[0].Percentage)
	}
}

func TestAggregatePreservesStudentOrder(t *testing.T) {
	store := &fakeStore{
		students: []Student{{ID: 3}, {ID: 1}, {ID: 2}},
	}
	svc := NewService(store, 15*time.Minute)

	rows, err := svc.AggregateKolegij(context.Background(), 7)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	for i, wantID := range []int64{3, 1, 2} {
		if rows[i].StudentID != wantID {
			t.Fatalf("row %d: expected student %d, got %d", i, wantID, rows[i].StudentID)
		}
	}
}

func TestAggregateStoreFault(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	store := &fakeStore{failStudents: boom}
	svc := NewService(store, 15*time.Minute)

	rows, err := svc.AggregateKolegij(context.Background(), 7)
	if !errors.Is(err, ErrAggregationFailed) {
		t.Fatalf("expected ErrAggregationFailed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if rows != nil {
		t.Fatal("expected no partial result on failure")
	}
}

func TestRenderOIB(t *testing.T) {
	cases := map[string]string{
		"":                "N/A",
		"   ":             "N/A",
		"12345678901":     "12345678901",
		"  12345678901  ": "12345678901",
	}
	for input, want := range cases {
		if got := RenderOIB(input); got != want {
			t.Fatalf("RenderOIB(%q): expected %q, got %q", input, want, got)
		}
	}
}
