package logstore

import "time"

// Kind classifies a log entry for display and filtering.
type Kind string

const (
	KindError        Kind = "error"
	KindWarn         Kind = "warn"
	KindCommand      Kind = "command"
	KindAPDU         Kind = "apdu"
	KindBinary       Kind = "binary"
	KindVerbose      Kind = "verbose"
	KindAnnouncement Kind = "announcement"
)

// Kinds lists every entry kind in display order.
var Kinds = []Kind{
	KindError,
	KindWarn,
	KindCommand,
	KindAPDU,
	KindBinary,
	KindVerbose,
	KindAnnouncement,
}

// Entry is a single log line. Entries are immutable once appended; ID is the
// canonical total order (two entries can share a timestamp).
type Entry struct {
	ID         uint64
	Time       time.Time
	Kind       Kind
	Text       string
	Attachment any
}
