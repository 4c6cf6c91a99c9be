package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/infra/logging"
	"stock-metadata-generator/internal/infra/worker"
	"stock-metadata-generator/internal/usecase"
)

// ---- views ----

type fileView struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type,omitempty"`
	Size     int    `json:"size"`
}

type itemView struct {
	ID               string                            `json:"id"`
	Primary          fileView                          `json:"primary"`
	Preview          *fileView                         `json:"preview,omitempty"`
	Status           model.Status                      `json:"status"`
	Error            string                            `json:"error,omitempty"`
	ActivePlatform   model.Platform                    `json:"active_platform"`
	PlatformMetadata map[model.Platform]model.Metadata `json:"platform_metadata"`
	HasThumbnail     bool                              `json:"has_thumbnail"`
	NeedsPreview     bool                              `json:"needs_preview,omitempty"`
}

func toFileView(f model.File) fileView {
	return fileView{Name: f.Name, MIMEType: f.MIMEType, Size: len(f.Data)}
}

func toItemView(it model.WorkItem) itemView {
	v := itemView{
		ID:               it.ID,
		Primary:          toFileView(it.PrimaryFile),
		Status:           it.Status,
		Error:            it.Error,
		ActivePlatform:   it.ActivePlatform,
		PlatformMetadata: make(map[model.Platform]model.Metadata, len(it.PlatformMetadata)),
		HasThumbnail:     len(it.Thumbnail) > 0,
		// .eps cannot be analysed without a raster preview
		NeedsPreview: it.PrimaryFile.Ext() == ".eps" && it.PreviewFile == nil,
	}
	if it.PreviewFile != nil {
		pv := toFileView(*it.PreviewFile)
		v.Preview = &pv
	}
	for p, md := range it.PlatformMetadata {
		if md != nil {
			v.PlatformMetadata[p] = *md
		}
	}
	return v
}

func toItemViews(items []model.WorkItem) []itemView {
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = toItemView(it)
	}
	return out
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress), errors.Is(err, domain.ErrNothingToUndo), errors.Is(err, domain.ErrNothingToExport):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoCredential), errors.Is(err, domain.ErrNoPlatforms), errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownPlatform), errors.Is(err, domain.ErrTooManyFiles):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeError(w, code, msg)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument)
	}
	return nil
}

func platformParam(r *http.Request) (model.Platform, error) {
	return model.ParsePlatform(chi.URLParam(r, "platform"))
}

func providerParam(r *http.Request) (model.Provider, error) {
	return model.ParseProvider(chi.URLParam(r, "provider"))
}

// ---- auth ----

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil {
		writeError(w, http.StatusNotFound, "auth disabled")
		return
	}
	key := r.Header.Get("X-API-Key")
	if key == "" {
		var req tokenRequest
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		key = req.APIKey
	}
	if !s.Auth.CheckAPIKey(key) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	tok, exp, err := s.Auth.Mint()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "expires_at": exp})
}

// ---- items ----

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toItemViews(s.Items.Snapshot()))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.Items.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemView(it))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	headers := r.MultipartForm.File["files"]
	files := make([]model.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var buf bytes.Buffer
		_, err = io.Copy(&buf, f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "upload interrupted")
			return
		}
		files = append(files, model.File{Name: h.Filename, MIMEType: h.Header.Get("Content-Type"), Data: buf.Bytes()})
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, `no files in "files" field`)
		return
	}
	items, err := s.Intake.Intake(r.Context(), files)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemViews(items))
}

func (s *Server) handleClearItems(w http.ResponseWriter, r *http.Request) {
	if cur, ok := s.Batch.Current(); ok && cur.InProgress {
		s.fail(w, r, domain.ErrRunInProgress)
		return
	}
	s.Items.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	it, err := s.Items.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(it.Thumbnail) == 0 {
		writeError(w, http.StatusNotFound, "no thumbnail")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(it.Thumbnail)
}

func (s *Server) handleEditMetadata(w http.ResponseWriter, r *http.Request) {
	p, err := platformParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var md model.Metadata
	if err := decodeJSON(r, &md); err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.Edits.EditMetadata(chi.URLParam(r, "id"), p, md)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type activePlatformRequest struct {
	Platform string `json:"platform"`
}

func (s *Server) handleActivePlatform(w http.ResponseWriter, r *http.Request) {
	var req activePlatformRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := model.ParsePlatform(req.Platform)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Edits.SetActivePlatform(chi.URLParam(r, "id"), p); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- batches ----

// decodeRunRequest pre-fills default settings so omitted fields keep them.
func decodeRunRequest(r *http.Request) (usecase.RunRequest, error) {
	req := usecase.RunRequest{Settings: model.DefaultSettings()}
	if r.ContentLength == 0 {
		return req, nil
	}
	err := decodeJSON(r, &req)
	return req, err
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	runID, err := s.Batch.Start(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleCurrentBatch(w http.ResponseWriter, r *http.Request) {
	cur, ok := s.Batch.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet")
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Batch.StartRegenerate(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ---- credentials ----

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) pool(w http.ResponseWriter, r *http.Request) (*usecase.CredentialPool, bool) {
	p, err := providerParam(r)
	if err == nil {
		var pool *usecase.CredentialPool
		if pool, err = s.Creds.Pool(p); err == nil {
			return pool, true
		}
	}
	writeError(w, http.StatusNotFound, err.Error())
	return nil, false
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	pool, ok := s.pool(w, r)
	if !ok {
		return
	}
	keys := pool.Keys()
	masked := make([]string, len(keys))
	for i, k := range keys {
		masked[i] = logging.Redact(k, s.Dev)
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider": pool.Provider(), "count": len(keys), "keys": masked})
}

func (s *Server) handleAddKey(w http.ResponseWriter, r *http.Request) {
	pool, ok := s.pool(w, r)
	if !ok {
		return
	}
	var req keyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := pool.Add(r.Context(), req.Key); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"provider": pool.Provider(), "count": pool.Len()})
}

// handleRemoveKey removes one key when a body is given, else clears the pool.
func (s *Server) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	pool, ok := s.pool(w, r)
	if !ok {
		return
	}
	var err error
	if r.ContentLength != 0 {
		var req keyRequest
		if err = decodeJSON(r, &req); err == nil {
			err = pool.Remove(r.Context(), req.Key)
		}
	} else {
		err = pool.Clear(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- bulk edit / history ----

func (s *Server) handleBulkEdit(w http.ResponseWriter, r *http.Request) {
	var edit usecase.BulkEdit
	if err := decodeJSON(r, &edit); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.Edits.Apply(edit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"modified": n, "history": s.Edits.HistoryLen()})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.Edits.Undo(); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"history": s.Edits.HistoryLen()})
}

// ---- exports ----

func (s *Server) handleReadyExports(w http.ResponseWriter, r *http.Request) {
	ready := s.Export.ReadyPlatforms()
	if ready == nil {
		ready = []model.Platform{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": ready})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := platformParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// buffer so a failure can still produce a JSON error
	var buf bytes.Buffer
	if _, err := s.Export.Export(r.Context(), &buf, p); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-metadata.zip"`, strings.ToLower(string(p))))
	_, _ = w.Write(buf.Bytes())
}
