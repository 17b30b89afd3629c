package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"roomsync/icsfeed"
	"roomsync/reconcile"
	"roomsync/store"
)

// runTrigger is what the sync routes need from the runner.
type runTrigger interface {
	Running() bool
	TriggerRun(ctx context.Context) (reconcile.Report, error)
}

type syncHandler struct {
	runner  runTrigger
	reports *store.ReportStore
	stream  *store.RunStream
	history *store.History
	feed    *icsfeed.Feed
}

func registerSyncRoutes(r *mux.Router, runner runTrigger, reports *store.ReportStore,
	stream *store.RunStream, history *store.History, feed *icsfeed.Feed) {
	h := &syncHandler{runner: runner, reports: reports, stream: stream, history: history, feed: feed}
	r.HandleFunc("/sync/run", h.handleRun).Methods("POST")
	r.HandleFunc("/sync/report", h.handleReport).Methods("GET")
	r.HandleFunc("/sync/history", h.handleHistory).Methods("GET")
	r.HandleFunc("/sync/status", h.handleStatus).Methods("GET")
	r.HandleFunc("/ws/sync", h.handleWebSocket).Methods("GET")
	r.HandleFunc("/feed.ics", h.handleFeed).Methods("GET")
}

func (h *syncHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.TriggerRun(r.Context())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			http.Error(w, "sync run already in progress", http.StatusConflict)
			return
		}
		log.Printf("sync run failed: %v", err)
		http.Error(w, "sync run failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *syncHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"running": h.runner.Running(),
	})
}

func (h *syncHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok, err := h.reports.Last(r.Context())
	if err != nil {
		http.Error(w, "load report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no sync run recorded yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *syncHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "run history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			http.Error(w, "limit must be a number between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "load history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []reconcile.Report{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}

func (h *syncHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
		return
	}

	bucket := strings.TrimSpace(r.URL.Query().Get("bucket"))
	body := h.feed.Render(bucket)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rooms.ics"`)
	_, _ = w.Write([]byte(body))
}

var syncUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Output-only surface.
		return true
	},
}

// handleWebSocket streams run lifecycle events to the client as they
// land on the run stream.
func (h *syncHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		http.Error(w, "run stream unavailable", http.StatusServiceUnavailable)
		return
	}

	lastID := strings.TrimSpace(r.URL.Query().Get("after"))

	conn, err := syncUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		events, nextID, err := h.stream.Tail(ctx, lastID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(300 * time.Millisecond)
			continue
		}
		if len(events) == 0 {
			continue
		}

		lastID = nextID
		for _, evt := range events {
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
