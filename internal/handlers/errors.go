package handlers

import (
	"log"
	"net/http"

	"studentportal/internal/diag"
)

// respondWithError writes userMsg as a plain-text response. A 5xx with an
// error goes to reporter; client errors are only logged. r may be nil.
func respondWithError(w http.ResponseWriter, r *http.Request, reporter *diag.Reporter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			reporter.Error(r, logMsg, err)
		} else {
			log.Printf("%s: %v", logMsg, err)
		}
	}

	http.Error(w, userMsg, status)
}
