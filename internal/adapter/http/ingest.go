package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// handleIngest accepts one ping object or an array of pings. Invalid items
// are skipped; only an unreadable body is rejected. The response does not
// wait for alert delivery.
//
// An unreadable body answers 400 rather than 500 since the fault lies with
// the caller's payload.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", RequestIDFromContext(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			err = fmt.Errorf("%w: body must not be larger than %d bytes", domain.ErrMalformedBody, maxBytesErr.Limit)
		}
		logger.Warn("read request body failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := domain.DecodePings(body)
	if err != nil {
		logger.Warn("rejecting malformed ingestion body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	for _, rej := range res.Rejected {
		s.metrics.PingsRejected.Inc()
		logger.Warn("invalid ping skipped", "index", rej.Index, "error", rej.Err)
	}

	alerts := s.processor.Process(r.Context(), res.Pings)
	logger.Debug("pings processed", "accepted", len(res.Pings), "rejected", len(res.Rejected), "alerts", alerts)

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
