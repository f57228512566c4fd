package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ScanRequest is a card scan as delivered by an RFID reader. DvoranaID is
// optional; zero means the reader is not tied to a room.
type ScanRequest struct {
	CardUID   string `json:"card_uid"`
	DvoranaID int64  `json:"dvorana_id"`
}

// ScanResult is the outcome of a successful scan. Inserted is false when
// the student had already checked into the termin and the existing record
// was returned instead.
type ScanResult struct {
	Student   Student   `json:"student"`
	Termin    Termin    `json:"termin"`
	Nazocnost Nazocnost `json:"nazocnost"`
	Inserted  bool      `json:"inserted"`
}

// Service is the attendance engine: it resolves scans to active termini
// and records check-ins idempotently.
type Service struct {
	store Store
	grace time.Duration
	now   func() time.Time
}

// NewService creates a service backed by a store. grace is the window
// after a termin's start during which a scan still counts toward it.
func NewService(store Store, grace time.Duration) *Service {
	if grace <= 0 {
		grace = 15 * time.Minute
	}
	return &Service{store: store, grace: grace, now: time.Now}
}

// Match resolves a card scan observed at "at" to the student holding the
// card and the one active termin it belongs to.
//
// A termin is active for the scan when at falls within
// [StartTime, StartTime+grace] and, if the termin has been closed, at is
// not past its EndTime. When several termini are simultaneously active
// the earliest start wins; equal starts break on the lowest termin id.
func (s *Service) Match(ctx context.Context, cardUID string, dvoranaID int64, at time.Time) (Student, Termin, error) {
	student, err := s.store.StudentByCard(ctx, cardUID)
	if err != nil {
		return Student{}, Termin{}, fmt.Errorf("lookup student by card: %w", err)
	}
	if student == nil {
		return Student{}, Termin{}, ErrStudentNotFound
	}

	candidates, err := s.store.TerminiForScan(ctx, dvoranaID, at.Add(-s.grace), at)
	if err != nil {
		return Student{}, Termin{}, fmt.Errorf("lookup termini for scan: %w", err)
	}

	var active []Termin
	for _, t := range candidates {
		if at.Before(t.StartTime) || at.After(t.StartTime.Add(s.grace)) {
			continue
		}
		if t.EndTime != nil && at.After(*t.EndTime) {
			continue
		}
		if dvoranaID > 0 && (t.DvoranaID == nil || *t.DvoranaID != dvoranaID) {
			continue
		}
		active = append(active, t)
	}
	if len(active) == 0 {
		return Student{}, Termin{}, ErrNoActiveSession
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].StartTime.Equal(active[j].StartTime) {
			return active[i].StartTime.Before(active[j].StartTime)
		}
		return active[i].ID < active[j].ID
	})
	return *student, active[0], nil
}

// Record writes the check-in linking termin and student, stamped with the
// server's clock. If a record for the pair already exists it is returned
// unchanged and the bool is false.
func (s *Service) Record(ctx context.Context, termin Termin, student Student) (Nazocnost, bool, error) {
	n := Nazocnost{
		ID:          uuid.NewString(),
		TerminID:    termin.ID,
		StudentID:   student.ID,
		DateScanned: s.now().UTC(),
	}
	stored, inserted, err := s.store.InsertNazocnost(ctx, n)
	if err != nil {
		return Nazocnost{}, false, fmt.Errorf("insert nazocnost: %w", err)
	}
	return stored, inserted, nil
}

// Scan validates the request, matches it to an active termin, and records
// the check-in. One durable write at most; failures write nothing.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if req.CardUID == "" || req.DvoranaID < 0 {
		observeScanError(ErrInvalidScan)
		return ScanResult{}, ErrInvalidScan
	}

	student, termin, err := s.Match(ctx, req.CardUID, req.DvoranaID, s.now())
	if err != nil {
		observeScanError(err)
		return ScanResult{}, err
	}

	record, inserted, err := s.Record(ctx, termin, student)
	if err != nil {
		observeScanError(err)
		return ScanResult{}, err
	}

	if inserted {
		scansMatched.Inc()
	} else {
		scansDuplicate.Inc()
	}
	return ScanResult{Student: student, Termin: termin, Nazocnost: record, Inserted: inserted}, nil
}

// Grace reports the configured grace window.
func (s *Service) Grace() time.Duration { return s.grace }
