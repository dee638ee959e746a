package httpapi

import (
	"net/http"
	"time"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger emits one structured log line per request with the
// fields needed to correlate a 500 response with its server-side
// detail: request_id, plus principal_kind/principal_id when
// authn.WithPrincipal (which sits outside this middleware in the
// chain) resolved one.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		event := s.logger.Info()
		if ww.Status() >= 500 {
			event = s.logger.Error()
		}
		entry := event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start))

		if p, ok := authn.FromContext(r.Context()); ok && p != nil {
			entry = entry.Str("principal_kind", string(p.Kind))
			if p.Kind == authn.PrincipalUser {
				entry = entry.Str("principal_id", p.UserID.String())
			} else if p.ApiKey != nil {
				entry = entry.Str("principal_id", p.ApiKey.ID.String())
			}
		}
		entry.Msg("request")
	})
}
