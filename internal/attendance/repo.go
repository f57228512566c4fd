package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const studentColumns = `student_id, ime, prezime, oib, email, slika, br_kartice, created_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.FirstName, &st.LastName, &st.OIB, &st.Email, &st.PhotoURL, &st.CardUID, &st.CreatedAt)
	return st, err
}

// StudentByCard resolves an RFID card UID to its holder; nil when no
// student has the card registered.
func (r *Repository) StudentByCard(ctx context.Context, cardUID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM studenti WHERE br_kartice = $1
	`, cardUID)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// ListStudents returns all students ordered by id.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM studenti
		ORDER BY student_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudent returns a single student by id, or nil when absent.
func (r *Repository) GetStudent(ctx context.Context, id int64) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM studenti WHERE student_id = $1
	`, id)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// InsertStudent stores a new student and returns it with the assigned id.
func (r *Repository) InsertStudent(ctx context.Context, st Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO studenti (ime, prezime, oib, email, slika, br_kartice)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING student_id, created_at
	`, st.FirstName, st.LastName, st.OIB, st.Email, st.PhotoURL, st.CardUID)
	if err := row.Scan(&st.ID, &st.CreatedAt); err != nil {
		return Student{}, err
	}
	return st, nil
}

const terminColumns = `termin_id, kolegij_id, dvorana_id, start_time, end_time`

func scanTermin(row interface{ Scan(...any) error }) (Termin, error) {
	var t Termin
	err := row.Scan(&t.ID, &t.KolegijID, &t.DvoranaID, &t.StartTime, &t.EndTime)
	return t, err
}

func (r *Repository) queryTermini(ctx context.Context, query string, args ...any) ([]Termin, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var termini []Termin
	for rows.Next() {
		t, err := scanTermin(rows)
		if err != nil {
			return nil, err
		}
		termini = append(termini, t)
	}
	return termini, rows.Err()
}

// TerminiForScan returns termini starting in [from, to] that have not been
// closed before "to", optionally restricted to one dvorana.
func (r *Repository) TerminiForScan(ctx context.Context, dvoranaID int64, from, to time.Time) ([]Termin, error) {
	query := `
		SELECT ` + terminColumns + `
		FROM termini
		WHERE start_time >= $1 AND start_time <= $2
		  AND (end_time IS NULL OR end_time >= $2)
	`
	args := []any{from, to}
	if dvoranaID > 0 {
		query += ` AND dvorana_id = $3`
		args = append(args, dvoranaID)
	}
	query += ` ORDER BY start_time, termin_id`
	return r.queryTermini(ctx, query, args...)
}

// TerminiByKolegij returns the kolegij's termini, most recent first.
func (r *Repository) TerminiByKolegij(ctx context.Context, kolegijID int64) ([]Termin, error) {
	return r.queryTermini(ctx, `
		SELECT `+terminColumns+`
		FROM termini
		WHERE kolegij_id = $1
		ORDER BY start_time DESC, termin_id DESC
	`, kolegijID)
}

// ListTermini returns every termin, most recent first.
func (r *Repository) ListTermini(ctx context.Context) ([]Termin, error) {
	return r.queryTermini(ctx, `
		SELECT `+terminColumns+`
		FROM termini
		ORDER BY start_time DESC, termin_id DESC
	`)
}

// GetTermin returns a single termin by id, or nil when absent.
func (r *Repository) GetTermin(ctx context.Context, id int64) (*Termin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+terminColumns+`
		FROM termini WHERE termin_id = $1
	`, id)
	t, err := scanTermin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// InsertTermin opens a new termin. EndTime may be nil for an open-ended
// termin that will be closed explicitly.
func (r *Repository) InsertTermin(ctx context.Context, t Termin) (Termin, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO termini (kolegij_id, dvorana_id, start_time, end_time)
		VALUES ($1,$2,$3,$4)
		RETURNING termin_id
	`, t.KolegijID, t.DvoranaID, t.StartTime, t.EndTime)
	if err := row.Scan(&t.ID); err != nil {
		return Termin{}, err
	}
	return t, nil
}

// EndTermin closes the termin at the given instant and returns it.
func (r *Repository) EndTermin(ctx context.Context, id int64, at time.Time) (Termin, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE termini SET end_time = $2
		WHERE termin_id = $1
		RETURNING `+terminColumns+`
	`, id, at)
	t, err := scanTermin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Termin{}, ErrTerminNotFound
		}
		return Termin{}, err
	}
	return t, nil
}

// NazocnostForTermini returns the attendance records belonging to the
// given termini. An empty id set short-circuits without touching the db.
func (r *Repository) NazocnostForTermini(ctx context.Context, terminIDs []int64) ([]Nazocnost, error) {
	if len(terminIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(terminIDs))
	args := make([]any, len(terminIDs))
	for i, id := range terminIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT nazocnost_id, termin_id, student_id, date_scanned
		FROM nazocnost
		WHERE termin_id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Nazocnost
	for rows.Next() {
		var n Nazocnost
		if err := rows.Scan(&n.ID, &n.TerminID, &n.StudentID, &n.DateScanned); err != nil {
			return nil, err
		}
		records = append(records, n)
	}
	return records, rows.Err()
}

// CheckInsForTermin returns the termin's check-ins joined with student
// names, in scan order, for the per-termin report.
func (r *Repository) CheckInsForTermin(ctx context.Context, terminID int64) ([]TerminCheckIn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.nazocnost_id, n.termin_id, n.student_id, n.date_scanned,
		       s.ime, s.prezime, s.oib
		FROM nazocnost n
		JOIN studenti s ON s.student_id = n.student_id
		WHERE n.termin_id = $1
		ORDER BY n.date_scanned, n.nazocnost_id
	`, terminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkIns []TerminCheckIn
	for rows.Next() {
		var c TerminCheckIn
		if err := rows.Scan(&c.ID, &c.TerminID, &c.StudentID, &c.DateScanned, &c.FirstName, &c.LastName, &c.OIB); err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}

// InsertNazocnost writes the record unless the (termin, student) pair is
// already present. The unique index on the pair makes concurrent taps for
// the same student race-safe: one insert wins, the rest read it back.
func (r *Repository) InsertNazocnost(ctx context.Context, n Nazocnost) (Nazocnost, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO nazocnost (nazocnost_id, termin_id, student_id, date_scanned)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (termin_id, student_id) DO NOTHING
	`, n.ID, n.TerminID, n.StudentID, n.DateScanned)
	if err != nil {
		return Nazocnost{}, false, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return Nazocnost{}, false, err
	} else if affected > 0 {
		return n, true, nil
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT nazocnost_id, termin_id, student_id, date_scanned
		FROM nazocnost
		WHERE termin_id = $1 AND student_id = $2
	`, n.TerminID, n.StudentID)
	var existing Nazocnost
	if err := row.Scan(&existing.ID, &existing.TerminID, &existing.StudentID, &existing.DateScanned); err != nil {
		return Nazocnost{}, false, err
	}
	return existing, false, nil
}

const kolegijColumns = `kolegij_id, naziv, profesor, asistent, br_sati`

// ListKolegiji returns all kolegiji ordered by id.
func (r *Repository) ListKolegiji(ctx context.Context) ([]Kolegij, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+kolegijColumns+`
		FROM kolegiji
		ORDER BY kolegij_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kolegiji []Kolegij
	for rows.Next() {
		var k Kolegij
		if err := rows.Scan(&k.ID, &k.Name, &k.Professor, &k.Assistant, &k.Hours); err != nil {
			return nil, err
		}
		kolegiji = append(kolegiji, k)
	}
	return kolegiji, rows.Err()
}

// GetKolegij returns a single kolegij by id, or nil when absent.
func (r *Repository) GetKolegij(ctx context.Context, id int64) (*Kolegij, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+kolegijColumns+`
		FROM kolegiji WHERE kolegij_id = $1
	`, id)
	var k Kolegij
	if err := row.Scan(&k.ID, &k.Name, &k.Professor, &k.Assistant, &k.Hours); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
}

// ListDvorane returns all dvorane ordered by id.
func (r *Repository) ListDvorane(ctx context.Context) ([]Dvorana, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dvorana_id, naziv, lokacija
		FROM dvorane
		ORDER BY dvorana_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dvorane []Dvorana
	for rows.Next() {
		var d Dvorana
		if err := rows.Scan(&d.ID, &d.Name, &d.Location); err != nil {
			return nil, err
		}
		dvorane = append(dvorane, d)
	}
	return dvorane, rows.Err()
}

// GetDvorana returns a single dvorana by id, or nil when absent.
func (r *Repository) GetDvorana(ctx context.Context, id int64) (*Dvorana, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT dvorana_id, naziv, lokacija
		FROM dvorane WHERE dvorana_id = $1
	`, id)
	var d Dvorana
	if err := row.Scan(&d.ID, &d.Name, &d.Location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
