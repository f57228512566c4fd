package attendance

import "errors"

// Scan and aggregation outcomes callers are expected to branch on.
// Handlers map these to HTTP statuses with errors.Is; anything else is a
// store fault and propagates wrapped.
var (
	ErrInvalidScan       = errors.New("invalid scan request")
	ErrStudentNotFound   = errors.New("no student holds that card")
	ErrNoActiveSession   = errors.New("no active termin for scan")
	ErrTerminNotFound    = errors.New("termin not found")
	ErrKolegijNotFound   = errors.New("kolegij not found")
	ErrDvoranaNotFound   = errors.New("dvorana not found")
	ErrAggregationFailed = errors.New("attendance aggregation failed")
)
