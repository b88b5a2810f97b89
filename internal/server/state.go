package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tekradar/userstate/internal/userstate"
)

// stateSnapshot is the JSON body of GET /api/v1/state. Times are RFC 3339
// strings in UTC; years past 9999 or before 0 keep their sign and digits.
type stateSnapshot struct {
	StartDate         string             `json:"start_date"`
	DaysOfUse         int                `json:"days_of_use"`
	Terms             map[string]*string `json:"terms"`
	AllAgreed         bool               `json:"all_agreed"`
	RegionCheckpoints map[string]int64   `json:"region_checkpoints"`
}

func (s *Server) snapshot(ctx context.Context) (*stateSnapshot, error) {
	var snap stateSnapshot

	start, err := s.state.GetStartDate(ctx)
	if err != nil {
		return nil, err
	}
	snap.StartDate = formatTime(start)
	if snap.DaysOfUse, err = s.state.GetDaysOfUse(ctx); err != nil {
		return nil, err
	}

	snap.Terms = make(map[string]*string, 2)
	for _, kind := range userstate.TermsTypes() {
		t, err := s.state.GetLastUpdateDate(ctx, kind)
		if err != nil {
			return nil, err
		}
		if t.IsZero() {
			snap.Terms[kind.String()] = nil
			continue
		}
		text := formatTime(t)
		snap.Terms[kind.String()] = &text
	}

	if snap.AllAgreed, err = s.state.IsAllAgreed(ctx); err != nil {
		return nil, err
	}
	if snap.RegionCheckpoints, err = s.state.GetLastProcessedTimestamps(ctx); err != nil {
		return nil, err
	}
	return &snap, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to read user state")
		if errors.Is(err, userstate.ErrMalformedData) {
			http.Error(w, "region checkpoint data is malformed", http.StatusInternalServerError)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		s.logger.WithError(err).Error("failed to encode user state")
	}
}

// handleRefresh queues an immediate collector run.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accepted := s.queue.Enqueue(func(ctx context.Context) {
		// Failures are logged by the registry.
		_ = s.registry.RunAll(ctx)
	})
	if !accepted {
		http.Error(w, "refresh queue full", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"queued"}`))
}
