package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sendrelay/internal/filter"
	logx "sendrelay/pkg/logx"
)

type sendRequest struct {
	Body *string `json:"body"`
}

type filterRequest struct {
	Pattern *string `json:"pattern"`
}

type filterModel struct {
	ID      int    `json:"id"`
	Pattern string `json:"pattern"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: `field "body" is missing from json request`})
		return
	}
	body := *req.Body

	if id, ok := s.filters.Match(body); ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "forbidden by filter id=" + strconv.Itoa(id)})
		return
	}
	if !s.queue.Accept(time.Now(), body) {
		writeJSON(w, http.StatusTooManyRequests, messageResponse{Message: "the queue is full"})
		return
	}
	writeJSON(w, http.StatusAccepted, struct{}{})
}

func (s *Server) handleListFilters(w http.ResponseWriter, _ *http.Request) {
	filters := s.filters.List()
	out := make([]filterModel, 0, len(filters))
	for _, f := range filters {
		out = append(out, toModel(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pattern == nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: `field "pattern" is missing from json request`})
		return
	}
	f, err := s.filters.Add(*req.Pattern)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	s.log.Info("filter added", logx.Int("id", f.ID), logx.String("pattern", f.Pattern))
	writeJSON(w, http.StatusOK, toModel(f))
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "no filter with id=" + chi.URLParam(r, "id")})
		return
	}
	f, ok := s.filters.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "no filter with id=" + strconv.Itoa(id)})
		return
	}
	writeJSON(w, http.StatusOK, toModel(f))
}

func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "no filter with id=" + chi.URLParam(r, "id")})
		return
	}
	f, ok := s.filters.Delete(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "no filter with id=" + strconv.Itoa(id)})
		return
	}
	s.log.Info("filter removed", logx.Int("id", f.ID), logx.String("pattern", f.Pattern))
	w.WriteHeader(http.StatusNoContent)
}

func toModel(f filter.Filter) filterModel {
	return filterModel{ID: f.ID, Pattern: f.Pattern}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
