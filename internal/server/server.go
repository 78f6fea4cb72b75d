package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pitchcast/internal/app"
	"pitchcast/internal/util"
	"pitchcast/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MaxUploadBytes int64
}

// Server exposes the campaign HTTP endpoints.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 200 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/campaigns", s.handleCampaigns)
	s.mux.HandleFunc("/campaigns/", s.handleCampaignByID)
	s.mux.HandleFunc("/reconcile", s.handleReconcile)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateCampaign(w, r)
	case http.MethodGet:
		s.handleListCampaigns(w, r)
	default:
		methodNotAllowed(w)
	}
}

// handleCreateCampaign takes the template video, the voice sample, and the
// recipient rows in one multipart request, creates the campaign, runs its
// pipeline, and materializes per-recipient videos.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	video, videoHeader, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "template video is required (field: video)")
		return
	}
	defer video.Close()
	sample, sampleHeader, err := r.FormFile("sample")
	if err != nil {
		writeError(w, http.StatusBadRequest, "voice sample is required (field: sample)")
		return
	}
	defer sample.Close()

	ownerID := strings.TrimSpace(r.FormValue("userId"))
	if ownerID == "" {
		ownerID = strings.TrimSpace(r.FormValue("user_id"))
	}
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	rowsField := r.FormValue("data")
	if rowsField == "" {
		writeError(w, http.StatusBadRequest, "recipient data is required (field: data)")
		return
	}
	var rows []domain.RecipientRow
	if err := json.Unmarshal([]byte(rowsField), &rows); err != nil {
		writeError(w, http.StatusBadRequest, "recipient data must be a JSON array of objects")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusBadRequest, "recipient data must not be empty")
		return
	}

	ctx := r.Context()
	c, err := s.app.CreateCampaign(ctx, app.CreateCampaignInput{
		OwnerID:     ownerID,
		Name:        name,
		Description: r.FormValue("description"),
		Type:        r.FormValue("campaign_type"),
		Model:       r.FormValue("model"),
		Rows:        rows,
		Video:       video,
		VideoSize:   videoHeader.Size,
		Sample:      sample,
		SampleSize:  sampleHeader.Size,
	})
	if err != nil {
		var adapterErr *app.AdapterError
		if errors.As(err, &adapterErr) {
			writeError(w, http.StatusBadGateway, "upload failed")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.app.Advance(ctx, c.ID); err != nil {
		// the campaign exists with its progress persisted; report it with
		// the pipeline failure so the client can retry the advance
		c, _, _ = s.app.GetCampaign(c.ID)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"campaign": c,
			"error":    err.Error(),
		})
		return
	}
	c, _, _ = s.app.GetCampaign(c.ID)

	ids, rowErrs, err := s.app.MaterializeVideos(ctx, c.ID, ownerID, rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := map[string]any{
		"campaign": c,
		"videoIds": ids,
	}
	if len(rowErrs) > 0 {
		rowErrors := make([]map[string]any, 0, len(rowErrs))
		for _, re := range rowErrs {
			rowErrors = append(rowErrors, map[string]any{
				"row":   re.Row,
				"error": re.Err.Error(),
			})
		}
		resp["rowErrors"] = rowErrors
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}
	campaigns, err := s.app.ListCampaigns(ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": campaigns,
		"count": len(campaigns),
	})
}

// /campaigns/{id} or /campaigns/{id}/videos
func (s *Server) handleCampaignByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/campaigns/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 && parts[1] == "videos" {
		s.handleCampaignVideos(w, id)
		return
	}
	if len(parts) == 2 {
		notFound(w, "not found")
		return
	}

	c, ok, err := s.app.GetCampaign(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		notFound(w, "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCampaignVideos(w http.ResponseWriter, id string) {
	if _, ok, err := s.app.GetCampaign(id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	} else if !ok {
		notFound(w, "campaign not found")
		return
	}
	videos, err := s.app.ListCampaignVideos(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": videos,
		"count": len(videos),
	})
}

// handleReconcile triggers one reconciliation sweep on demand, in addition to
// the periodic loop.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	results, err := s.app.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	summary := map[string]int{}
	for _, res := range results {
		summary[string(res.Outcome)]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": len(results),
		"summary": summary,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
