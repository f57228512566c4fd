package attendance

import (
	"context"
	"time"
)

// Store is the record-store contract the engine depends on. The Postgres
// Repository implements it; tests swap in a fake.
type Store interface {
	// StudentByCard returns the student holding the card, or nil when no
	// student has it registered.
	StudentByCard(ctx context.Context, cardUID string) (*Student, error)

	// TerminiForScan returns termini whose start falls in [from, to],
	// optionally restricted to a dvorana (dvoranaID > 0), and not yet
	// closed before "to". The service applies the exact active-window
	// predicate and tie-break on top of this coarse filter.
	TerminiForScan(ctx context.Context, dvoranaID int64, from, to time.Time) ([]Termin, error)

	// TerminiByKolegij returns every termin of the kolegij.
	TerminiByKolegij(ctx context.Context, kolegijID int64) ([]Termin, error)

	// ListStudents returns all students ordered by id.
	ListStudents(ctx context.Context) ([]Student, error)

	// NazocnostForTermini returns attendance records belonging to the
	// given termini only.
	NazocnostForTermini(ctx context.Context, terminIDs []int64) ([]Nazocnost, error)

	// InsertNazocnost writes the record unless one already exists for the
	// same (termin, student), in which case the existing record comes
	// back. The bool reports whether a new row was written.
	InsertNazocnost(ctx context.Context, n Nazocnost) (Nazocnost, bool, error)
}
