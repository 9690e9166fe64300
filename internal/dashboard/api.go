package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/edgeboard/edgeboard/internal/images"
	"github.com/edgeboard/edgeboard/internal/schema"
	"github.com/edgeboard/edgeboard/internal/store"
)

// registerAPI wires the REST routes the page edits through. Store
// semantics carry over: unknown ids and out-of-range indexes are
// silent no-ops that still return the current state, while real
// storage failures map to 500.
func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/setups", s.handleListSetups)
	mux.HandleFunc("POST /api/setups", s.handleCreateSetup)
	mux.HandleFunc("PATCH /api/setups/{id}", s.handlePatchSetup)
	mux.HandleFunc("DELETE /api/setups/{id}", s.handleDeleteSetup)
	mux.HandleFunc("POST /api/setups/{id}/bullets", s.handleAppendBullet)
	mux.HandleFunc("DELETE /api/setups/{id}/bullets/{index}", s.handleRemoveBullet)
	mux.HandleFunc("POST /api/setups/{id}/images", s.handleUploadImages)
	mux.HandleFunc("DELETE /api/setups/{id}/images/{index}", s.handleRemoveImage)

	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.handleCreateRule)
	mux.HandleFunc("PATCH /api/rules/{id}", s.handlePatchRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("GET /api/mental", s.handleGetMental)
	mux.HandleFunc("POST /api/mental/{metric}/cycle", s.handleCycleMetric)

	mux.HandleFunc("GET /api/stats", s.handleStats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleListSetups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.st.Setups())
}

func (s *Server) handleCreateSetup(w http.ResponseWriter, r *http.Request) {
	var setup schema.Setup
	if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	created, err := s.st.CreateSetup(setup)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// setupPatchBody is the wire form of a partial setup update.
type setupPatchBody struct {
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	Color        *string   `json:"color"`
	BulletPoints *[]string `json:"bulletPoints"`
}

func (s *Server) handlePatchSetup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body setupPatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	patch := store.SetupPatch{
		Name:         body.Name,
		Description:  body.Description,
		Color:        body.Color,
		BulletPoints: body.BulletPoints,
	}
	if err := s.st.UpdateSetup(id, patch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondSetup(w, id)
}

func (s *Server) handleDeleteSetup(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteSetup(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendBullet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	if err := s.st.AppendBullet(id, body.Text); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondSetup(w, id)
}

func (s *Server) handleRemoveBullet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index: %w", err))
		return
	}

	if err := s.st.RemoveBullet(id, index); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondSetup(w, id)
}

// handleUploadImages accepts a multipart batch, runs it through the
// ingestion pipeline, and appends the accepted results to the setup in
// one store write.
func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	maxBytes := int64(s.pipeline.Options().MaxBytes)
	maxBatch := int64(s.pipeline.Options().MaxBatch)
	// Oversize files must reach the pipeline so they are skipped and
	// reported instead of failing the whole request, hence the slack
	// beyond maxBytes per file.
	r.Body = http.MaxBytesReader(w, r.Body, (maxBatch+1)*(maxBytes+1<<20))

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
		return
	}

	var batch []images.File
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
			return
		}
		if part.FormName() != "images" {
			_ = part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		_ = part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
			return
		}

		batch = append(batch, images.File{
			Name:      part.FileName(),
			MediaType: part.Header.Get("Content-Type"),
			Data:      data,
		})
	}

	result, err := s.pipeline.Process(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	applied, err := s.st.AppendImages(id, result.Encoded...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !applied && len(result.Encoded) > 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("setup %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appended": len(result.Encoded),
		"skipped":  result.Skipped,
	})
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index: %w", err))
		return
	}

	if err := s.st.RemoveImage(id, index); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondSetup(w, id)
}

func (s *Server) respondSetup(w http.ResponseWriter, id string) {
	if setup, ok := s.st.Setup(id); ok {
		writeJSON(w, http.StatusOK, setup)
		return
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("setup %q not found", id))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.st.Rules())
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule schema.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	created, err := s.st.CreateRule(rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePatchRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	if err := s.st.UpdateRule(id, store.RulePatch{Content: body.Content}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	for _, rule := range s.st.Rules() {
		if rule.ID == id {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("rule %q not found", id))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteRule(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMental(w http.ResponseWriter, r *http.Request) {
	mental := s.st.Mental()
	writeJSON(w, http.StatusOK, MentalUpdateData{State: mental, Readiness: mental.Score()})
}

func (s *Server) handleCycleMetric(w http.ResponseWriter, r *http.Request) {
	metric := schema.Metric(r.PathValue("metric"))
	if !metric.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown metric %q", metric))
		return
	}

	mental, err := s.st.CycleMetric(metric)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, MentalUpdateData{State: mental, Readiness: mental.Score()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}
