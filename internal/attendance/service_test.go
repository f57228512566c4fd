package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeStore is an in-memory Store for engine tests. TerminiForScan returns
// every termin unfiltered so the tests exercise the service's own window
// predicate rather than the store's coarse filter.
type fakeStore struct {
	students []Student
	termini  []Termin
	records  []Nazocnost

	failStudents  error
	failTermini   error
	failRecords   error
	failInsert    error
	terminLookups int
}

func (f *fakeStore) StudentByCard(_ context.Context, cardUID string) (*Student, error) {
	if f.failStudents != nil {
		return nil, f.failStudents
	}
	for i := range f.students {
		if f.students[i].CardUID == cardUID {
			return &f.students[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) TerminiForScan(_ context.Context, _ int64, _, _ time.Time) ([]Termin, error) {
	f.terminLookups++
	if f.failTermini != nil {
		return nil, f.failTermini
	}
	return f.termini, nil
}

func (f *fakeStore) TerminiByKolegij(_ context.Context, kolegijID int64) ([]Termin, error) {
	if f.failTermini != nil {
		return nil, f.failTermini
	}
	var out []Termin
	for _, t := range f.termini {
		if t.KolegijID == kolegijID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListStudents(_ context.Context) ([]Student, error) {
	if f.failStudents != nil {
		return nil, f.failStudents
	}
	return f.students, nil
}

func (f *fakeStore) NazocnostForTermini(_ context.Context, terminIDs []int64) ([]Nazocnost, error) {
	if f.failRecords != nil {
		return nil, f.failRecords
	}
	wanted := make(map[int64]bool, len(terminIDs))
	for _, id := range terminIDs {
		wanted[id] = true
	}
	var out []Nazocnost
	for _, n := range f.records {
		if wanted[n.TerminID] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertNazocnost(_ context.Context, n Nazocnost) (Nazocnost, bool, error) {
	if f.failInsert != nil {
		return Nazocnost{}, false, f.failInsert
	}
	for _, existing := range f.records {
		if existing.TerminID == n.TerminID && existing.StudentID == n.StudentID {
			return existing, false, nil
		}
	}
	f.records = append(f.records, n)
	return n, true, nil
}

func ptrInt64(v int64) *int64 { return &v }

func testService(store Store, at time.Time) *Service {
	svc := NewService(store, 15*time.Minute)
	svc.now = func() time.Time { return at }
	return svc
}

func TestMatchGraceWindow(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		students: []Student{{ID: 1, CardUID: "ABC123"}},
		termini:  []Termin{{ID: 1, KolegijID: 7, StartTime: start}},
	}
	svc := NewService(store, 15*time.Minute)

	cases := []struct {
		name    string
		at      time.Time
		matched bool
	}{
		{"at start", start, true},
		{"five minutes in", start.Add(5 * time.Minute), true},
		{"window edge", start.Add(15 * time.Minute), true},
		{"past window", start.Add(16 * time.Minute), false},
		{"before start", start.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		_, termin, err := svc.Match(context.Background(), "ABC123", 0, tc.at)
		if tc.matched {
			if err != nil {
				t.Fatalf("%s: expected match, got %v", tc.name, err)
			}
			if termin.ID != 1 {
				t.Fatalf("%s: expected termin 1, got %d", tc.name, termin.ID)
			}
		} else if !errors.Is(err, ErrNoActiveSession) {
			t.Fatalf("%s: expected ErrNoActiveSession, got %v", tc.name, err)
		}
	}
}

func TestMatchUnknownCardSkipsTerminLookup(t *testing.T) {
	store := &fakeStore{
		termini: []Termin{{ID: 1, KolegijID: 7, StartTime: time.Now()}},
	}
	svc := NewService(store, 15*time.Minute)

	_, _, err := svc.Match(context.Background(), "nope", 0, time.Now())
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if store.terminLookups != 0 {
		t.Fatalf("expected no termin lookup for unknown card, got %d", store.terminLookups)
	}
}

func TestMatchClosedTermin(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	ended := start.Add(5 * time.Minute)
	store := &fakeStore{
		students: []Student{{ID: 1, CardUID: "ABC123"}},
		termini:  []Termin{{ID: 1, KolegijID: 7, StartTime: start, EndTime: &ended}},
	}
	svc := NewService(store, 15*time.Minute)

	if _, _, err := svc.Match(context.Background(), "ABC123", 0, start.Add(4*time.Minute)); err != nil {
		t.Fatalf("expected match before close, got %v", err)
	}
	if _, _, err := svc.Match(context.Background(), "ABC123", 0, start.Add(6*time.Minute)); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession after close, got %v", err)
	}
}

func TestMatchDvoranaFilter(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		students: []Student{{ID: 1, CardUID: "ABC123"}},
		termini: []Termin{
			{ID: 1, KolegijID: 7, DvoranaID: ptrInt64(1), StartTime: start},
			{ID: 2, KolegijID: 8, DvoranaID: ptrInt64(2), StartTime: start},
		},
	}
	svc := NewService(store, 15*time.Minute)

	_, termin, err := svc.Match(context.Background(), "ABC123", 2, start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("expected match in dvorana 2, got %v", err)
	}
	if termin.ID != 2 {
		t.Fatalf("expected termin 2, got %d", termin.ID)
	}

	if _, _, err := svc.Match(context.Background(), "ABC123", 3, start.Add(5*time.Minute)); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for empty dvorana, got %v", err)
	}
}

func TestMatchTieBreakIsDeterministic(t *testing.T) {
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		students: []Student{{ID: 1, CardUID: "ABC123"}},
		termini: []Termin{
			{ID: 3, KolegijID: 9, StartTime: base.Add(2 * time.Minute)},
			{ID: 2, KolegijID: 8, StartTime: base},
			{ID: 1, KolegijID: 7, StartTime: base},
		},
	}
	svc := NewService(store, 15*time.Minute)

	// Earliest start wins; equal starts break on the lowest termin id.
	_, termin, err := svc.Match(context.Background(), "ABC123", 0, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if termin.ID != 1 {
		t.Fatalf("expected termin 1, got %d", termin.ID)
	}
}

func TestScanRecordsIdempotently(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		students: []Student{{ID: 42, CardUID: "ABC123"}},
		termini:  []Termin{{ID: 1, KolegijID: 7, StartTime: start}},
	}
	svc := testService(store, start.Add(5*time.Minute))

	first, err := svc.Scan(context.Background(), ScanRequest{CardUID: "ABC123"})
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if !first.Inserted {
		t.Fatal("expected first scan to insert a record")
	}

	svc.now = func() time.Time { return start.Add(6 * time.Minute) }
	second, err := svc.Scan(context.Background(), ScanRequest{CardUID: "ABC123"})
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if second.Inserted {
		t.Fatal("expected second scan to reuse the existing record")
	}
	if second.Nazocnost.ID != first.Nazocnost.ID {
		t.Fatalf("expected record %s back, got %s", first.Nazocnost.ID, second.Nazocnost.ID)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.records))
	}
}

func TestScanUsesServerClock(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	observed := start.Add(3 * time.Minute)
	store := &fakeStore{
		students: []Student{{ID: 42, CardUID: "ABC123"}},
		termini:  []Termin{{ID: 1, KolegijID: 7, StartTime: start}},
	}
	svc := testService(store, observed)

	result, err := svc.Scan(context.Background(), ScanRequest{CardUID: "ABC123"})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !result.Nazocnost.DateScanned.Equal(observed) {
		t.Fatalf("expected server timestamp %v, got %v", observed, result.Nazocnost.DateScanned)
	}
}

func TestScanRejectsInvalidRequest(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, 15*time.Minute)

	if _, err := svc.Scan(context.Background(), ScanRequest{}); !errors.Is(err, ErrInvalidScan) {
		t.Fatalf("expected ErrInvalidScan for empty card, got %v", err)
	}
	if _, err := svc.Scan(context.Background(), ScanRequest{CardUID: "ABC123", DvoranaID: -1}); !errors.Is(err, ErrInvalidScan) {
		t.Fatalf("expected ErrInvalidScan for negative dvorana, got %v", err)
	}
	if store.terminLookups != 0 {
		t.Fatal("invalid requests must not reach the store")
	}
}

func TestScanPropagatesStoreFault(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	boom := fmt.Errorf("connection reset")
	store := &fakeStore{
		students:   []Student{{ID: 42, CardUID: "ABC123"}},
		termini:    []Termin{{ID: 1, KolegijID: 7, StartTime: start}},
		failInsert: boom,
	}
	svc := testService(store, start.Add(5*time.Minute))

	_, err := svc.Scan(context.Background(), ScanRequest{CardUID: "ABC123"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store fault, got %v", err)
	}
	if errors.Is(err, ErrNoActiveSession) || errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("store fault must not masquerade as a scan outcome: %v", err)
	}
}
