package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"GoMatch/internal/dictionary"
	"GoMatch/internal/store"
	"GoMatch/internal/trie"
)

// Handler holds HTTP handlers for the GoMatch API.
type Handler struct {
	mgr     *dictionary.Manager
	logger  *slog.Logger
	maxBody int64
}

// NewHandler creates a new Handler backed by the given Manager. maxBody
// bounds request bodies; zero means 8 MiB.
func NewHandler(mgr *dictionary.Manager, logger *slog.Logger, maxBody int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	return &Handler{mgr: mgr, logger: logger, maxBody: maxBody}
}

// RegisterRoutes registers all API routes on the given router.
func (h *Handler) RegisterRoutes(r *httprouter.Router) {
	// Dictionary lifecycle.
	r.GET("/dictionaries", h.handleListDictionaries)
	r.POST("/dictionaries", h.handleCreateDictionary)
	r.GET("/dictionaries/:name", h.handleGetDictionary)
	r.DELETE("/dictionaries/:name", h.handleDeleteDictionary)

	// Pattern registration and publication.
	r.POST("/dictionaries/:name/patterns", h.handleAddPatterns)
	r.POST("/dictionaries/:name/build", h.handleBuild)
	r.POST("/dictionaries/:name/save", h.handleSave)

	// Scanning.
	r.POST("/dictionaries/:name/scan", h.handleScan)
}

// --- Dictionary Lifecycle ---

func (h *Handler) handleListDictionaries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	names := h.mgr.List(r.URL.Query().Get("match"))

	infos := make([]dictionary.Info, 0, len(names))
	for _, name := range names {
		d, err := h.mgr.Get(name)
		if err != nil {
			continue // deleted concurrently
		}
		infos = append(infos, d.Info())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dictionaries": infos,
	})
}

func (h *Handler) handleCreateDictionary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Name     string   `json:"name"`
		Rule     string   `json:"rule"`
		Patterns []string `json:"patterns"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "dictionary name is required")
		return
	}

	d, err := h.mgr.Create(req.Name, req.Rule)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if len(req.Patterns) > 0 {
		if _, err := d.Add(req.Patterns...); err != nil {
			if derr := h.mgr.Delete(req.Name); derr != nil {
				h.logger.Error("failed to roll back dictionary", "name", req.Name, "error", derr)
			}
			h.writeErr(w, err)
			return
		}
		if _, err := d.Build(); err != nil {
			h.writeErr(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, d.Info())
}

func (h *Handler) handleGetDictionary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, ok := h.lookup(w, ps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Info())
}

func (h *Handler) handleDeleteDictionary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	if err := h.mgr.Delete(name); err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"name":   name,
	})
}

// --- Patterns ---

func (h *Handler) handleAddPatterns(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, ok := h.lookup(w, ps)
	if !ok {
		return
	}
	var req struct {
		Patterns []string `json:"patterns"`
		Build    bool     `json:"build"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Patterns) == 0 {
		writeError(w, http.StatusBadRequest, "no patterns provided")
		return
	}

	ids, err := d.Add(req.Patterns...)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	resp := map[string]interface{}{"ids": ids}
	if req.Build {
		gen, err := d.Build()
		if err != nil {
			h.writeErr(w, err)
			return
		}
		resp["generation"] = gen
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBuild(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, ok := h.lookup(w, ps)
	if !ok {
		return
	}
	gen, err := d.Build()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generation": gen,
	})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	rows, err := h.mgr.Save(name)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name": name,
		"rows": rows,
	})
}

// --- Scan ---

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, ok := h.lookup(w, ps)
	if !ok {
		return
	}
	var req struct {
		Text  string `json:"text"`
		Limit int    `json:"limit"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	hits, err := d.Scan(req.Text)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	total := len(hits)
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"hits":  hits,
	})
}

// --- Helpers ---

func (h *Handler) lookup(w http.ResponseWriter, ps httprouter.Params) (*dictionary.Dictionary, bool) {
	d, err := h.mgr.Get(ps.ByName("name"))
	if err != nil {
		h.writeErr(w, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dictionary.ErrExists):
		return http.StatusConflict
	case errors.Is(err, dictionary.ErrNotBuilt):
		return http.StatusConflict
	case errors.Is(err, trie.ErrInvalidArgument), errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, dictionary.ErrNoStore):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": err.Error(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	})
}
