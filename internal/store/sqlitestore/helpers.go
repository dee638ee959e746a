package sqlitestore

import (
	"strings"
	"time"

	"github.com/TimurManjosov/flaglite/internal/store"
)

// timeLayout is the ISO-8601 form stored in TEXT timestamp columns.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int64) bool {
	return i != 0
}

// isUniqueViolation reports whether err came from a UNIQUE index
// conflict. SQLite (and the modernc driver) surfaces this as a plain
// error whose message names the constraint, so we match on that rather
// than depend on a specific error type across driver versions.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapWriteErr translates a raw driver error into the port's sentinel
// error kinds, leaving everything else (connectivity, I/O) untranslated
// so it surfaces as a backend/internal error further up the stack.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return store.ErrNotFound
	}
	return err
}
