package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"logwarden/core"
)

const maxUploadBytes = 50 << 20 // 50MB

// writeJSON sends a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeCoreError translates typed core errors into response codes
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrAlertResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case core.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "UP",
		"service":   "logwarden",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Stats())
}

type ingestLineRequest struct {
	Line   string `json:"line" validate:"required"`
	Source string `json:"source" validate:"required"`
}

func (s *Server) handleIngestLine(w http.ResponseWriter, r *http.Request) {
	var req ingestLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := s.pipeline.Ingest(req.Line, req.Source)
	if event == nil {
		writeError(w, http.StatusBadRequest, "blank line")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

type ingestEventRequest struct {
	Timestamp      string                 `json:"timestamp"`
	Level          string                 `json:"level"`
	Source         string                 `json:"source" validate:"required"`
	Message        string                 `json:"message" validate:"required"`
	IPAddress      string                 `json:"ip_address"`
	UserAgent      string                 `json:"user_agent"`
	StatusCode     int                    `json:"status_code"`
	ResponseTimeMs int                    `json:"response_time_ms"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := &core.Event{
		Level:          core.Level(req.Level),
		Source:         req.Source,
		Message:        req.Message,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		StatusCode:     req.StatusCode,
		ResponseTimeMs: req.ResponseTimeMs,
		Metadata:       req.Metadata,
	}
	if req.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			event.Timestamp = ts
		}
	}

	writeJSON(w, http.StatusCreated, s.pipeline.IngestEvent(event))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	source := r.FormValue("source")
	if source == "" {
		source = header.Filename
	}

	// Runs on the request goroutine; client disconnect cancels r.Context()
	// and abandons the remainder, keeping the already-ingested prefix.
	processed, err := s.pipeline.ProcessFile(r.Context(), file, source)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"processed": processed,
			"partial":   true,
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"processed": processed})
}

func (s *Server) handleSearchLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events := s.pipeline.Search(core.SearchFilter{
		Text:   q.Get("query"),
		Level:  core.Level(q.Get("level")),
		Source: q.Get("source"),
		Limit:  limit,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  events,
		"count": len(events),
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := core.AlertFilter{
		Severity: core.Severity(q.Get("severity")),
		Type:     core.AlertType(q.Get("type")),
		Limit:    20,
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := q.Get("resolved"); raw != "" {
		if resolved, err := strconv.ParseBool(raw); err == nil {
			filter.Resolved = &resolved
		}
	}

	alerts := s.pipeline.ListAlerts(filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

type actorRequest struct {
	By    string `json:"by" validate:"required"`
	Notes string `json:"notes"`
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	alert, err := s.pipeline.AcknowledgeAlert(mux.Vars(r)["id"], req.By)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	alert, err := s.pipeline.ResolveAlert(mux.Vars(r)["id"], req.By, req.Notes)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
