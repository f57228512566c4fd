package attendance

import (
	"context"
	"fmt"
	"strconv"
)

// AggregateKolegij computes, for every enrolled student, how many of the
// kolegij's termini they attended and the resulting percentage.
//
// Rows follow the store's student order (the repository returns students
// ordered by id). Percentage is fixed to two decimals with a "." separator
// regardless of locale; a kolegij with no termini yields "0.00" for every
// student. Any store failure aborts the whole report.
func (s *Service) AggregateKolegij(ctx context.Context, kolegijID int64) ([]StudentAttendance, error) {
	termini, err := s.store.TerminiByKolegij(ctx, kolegijID)
	if err != nil {
		return nil, fmt.Errorf("%w: list termini for kolegij %d: %w", ErrAggregationFailed, kolegijID, err)
	}
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list students: %w", ErrAggregationFailed, err)
	}

	terminIDs := make([]int64, len(termini))
	for i, t := range termini {
		terminIDs[i] = t.ID
	}
	records, err := s.store.NazocnostForTermini(ctx, terminIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: list nazocnost for kolegij %d: %w", ErrAggregationFailed, kolegijID, err)
	}

	// Tally once per student instead of rescanning all records per row.
	attended := make(map[int64]int, len(students))
	for _, n := range records {
		attended[n.StudentID]++
	}

	total := len(termini)
	rows := make([]StudentAttendance, 0, len(students))
	for _, st := range students {
		count := attended[st.ID]
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		rows = append(rows, StudentAttendance{
			StudentID:     st.ID,
			FirstName:     st.FirstName,
			LastName:      st.LastName,
			OIB:           RenderOIB(st.OIB),
			PhotoURL:      st.PhotoURL,
			AttendedCount: count,
			TotalCount:    total,
			Percentage:    strconv.FormatFloat(pct, 'f', 2, 64),
		})
	}
	aggregations.Inc()
	return rows, nil
}
