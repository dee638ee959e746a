// Package logging builds the process-wide zerolog logger. The HTTP
// surface (internal/httpapi) uses it to write one line per request
// carrying request_id, principal_kind, and principal_id, and to log
// backend errors in full server-side while the client only ever sees
// {error, message}.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide base logger at the given level
// (debug|info|warn|error, as validated by internal/config). It writes
// structured JSON to stdout for an external log collector to pick up.
func New(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}
