package reminders

import "time"

// Offset is how long before the due time a reminder fires. Zero means no
// reminder.
type Offset time.Duration

const (
	OffsetNone Offset = 0
	Offset10m  Offset = Offset(10 * time.Minute)
	Offset30m  Offset = Offset(30 * time.Minute)
	Offset1h   Offset = Offset(time.Hour)
	Offset2h   Offset = Offset(2 * time.Hour)
	Offset1d   Offset = Offset(24 * time.Hour)
)

// OffsetFromMinutes maps the client's preset minute values onto an Offset.
// Unknown values still produce a usable offset; negative values mean none.
func OffsetFromMinutes(min int) Offset {
	if min <= 0 {
		return OffsetNone
	}
	return Offset(time.Duration(min) * time.Minute)
}

// ReminderAt computes dueAt minus the offset and reports whether the
// result is strictly in the future at now. A reminder that is not in the
// future is skipped silently; that is not an error.
func ReminderAt(dueAt time.Time, offset Offset, now time.Time) (time.Time, bool) {
	if offset == OffsetNone {
		return time.Time{}, false
	}
	at := dueAt.Add(-time.Duration(offset))
	return at, at.After(now)
}
