package attendance

import (
	"strings"
	"time"
)

// Student is an enrolled student. Enrollment is managed elsewhere; the
// scan path only reads students, keyed by their RFID card UID.
type Student struct {
	ID        int64     `json:"student_id"`
	FirstName string    `json:"ime"`
	LastName  string    `json:"prezime"`
	OIB       string    `json:"oib"`
	Email     string    `json:"email"`
	PhotoURL  *string   `json:"slika,omitempty"`
	CardUID   string    `json:"br_kartice"`
	CreatedAt time.Time `json:"created_at"`
}

// Kolegij is a course.
type Kolegij struct {
	ID        int64   `json:"kolegij_id"`
	Name      string  `json:"naziv"`
	Professor string  `json:"profesor"`
	Assistant *string `json:"asistent,omitempty"`
	Hours     *int64  `json:"br_sati,omitempty"`
}

// Dvorana is a room where termini are held.
type Dvorana struct {
	ID       int64  `json:"dvorana_id"`
	Name     string `json:"naziv"`
	Location string `json:"lokacija"`
}

// Termin is one scheduled session of a kolegij. EndTime is nil while the
// termin is open-ended; it is set when the termin is explicitly closed.
type Termin struct {
	ID        int64      `json:"termin_id"`
	KolegijID int64      `json:"kolegij_id"`
	DvoranaID *int64     `json:"dvorana_id,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Nazocnost links a student to a termin they checked into. Records are
// append-only; at most one exists per (termin, student).
type Nazocnost struct {
	ID          string    `json:"nazocnost_id"`
	TerminID    int64     `json:"termin_id"`
	StudentID   int64     `json:"student_id"`
	DateScanned time.Time `json:"date_scanned"`
}

// TerminCheckIn is one row of the per-termin attendance log, a Nazocnost
// joined with the student's name fields for reporting.
type TerminCheckIn struct {
	Nazocnost
	FirstName string `json:"ime"`
	LastName  string `json:"prezime"`
	OIB       string `json:"oib"`
}

// StudentAttendance is one row of the per-kolegij attendance report.
type StudentAttendance struct {
	StudentID     int64   `json:"student_id"`
	FirstName     string  `json:"ime"`
	LastName      string  `json:"prezime"`
	OIB           string  `json:"oib"`
	PhotoURL      *string `json:"slika_url,omitempty"`
	AttendedCount int     `json:"attended_count"`
	TotalCount    int     `json:"total_count"`
	Percentage    string  `json:"percentage"`
}

// RenderOIB normalizes a raw OIB for reporting: surrounding whitespace is
// stripped, and an absent value renders as "N/A".
func RenderOIB(oib string) string {
	trimmed := strings.TrimSpace(oib)
	if trimmed == "" {
		return "N/A"
	}
	return trimmed
}
