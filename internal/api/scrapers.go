package api

import (
	"net/http"
	"strings"
)

// BlockScrapers answers 403 to user agents containing any of agents, compared
// case-insensitively, and to clients announcing a headless platform.
func BlockScrapers(agents []string) func(http.Handler) http.Handler {
	blocked := make([]string, 0, len(agents))
	for _, a := range agents {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			blocked = append(blocked, a)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent := strings.ToLower(r.UserAgent())
			for _, b := range blocked {
				if strings.Contains(agent, b) {
					writeJSON(w, http.StatusForbidden, ErrorResponse{"Scrapers not allowed"})
					return
				}
			}
			platform := strings.Trim(r.Header.Get("Sec-Ch-Ua-Platform"), `"`)
			if strings.EqualFold(platform, "Headless") {
				writeJSON(w, http.StatusForbidden, ErrorResponse{"Headless browsers blocked"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
