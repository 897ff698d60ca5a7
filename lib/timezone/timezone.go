package timezone

import "time"

// snapshot directories are keyed by calendar date, so every
// date computation is forced into UTC regardless of where the
// job happens to run. a task rescheduled onto a host in another
// region must still agree on what "today" is.
var Location = time.UTC

func Now() time.Time {
	return time.Now().In(Location)
}

// DateKey formats the calendar date used to name snapshot
// directories, ex. "2025-03-09".
func DateKey(t time.Time) string {
	return t.In(Location).Format("2006-01-02")
}
