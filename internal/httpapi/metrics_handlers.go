package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/breeze-rmm/breeze/internal/apperr"
)

// MetricsHandler returns the Prometheus scrape endpoint, gated by a
// static bearer token (spec.md §9) rather than the user/API-key auth
// stack, since scrapers are infrastructure, not tenants.
func MetricsHandler(scrapeToken string) http.HandlerFunc {
	next := promhttp.Handler()
	return func(w http.ResponseWriter, r *http.Request) {
		if scrapeToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("Authorization")
		want := "Bearer " + scrapeToken
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			Error(w, r, apperr.Unauthenticated("invalid metrics scrape token"))
			return
		}
		next.ServeHTTP(w, r)
	}
}
