package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/invopilot/docflow/internal/core/domain"
)

type reviewRequest struct {
	Actor            string `json:"actor"`
	Reason           string `json:"reason,omitempty"`
	Value            string `json:"value,omitempty"`
	ExpectedSequence int64  `json:"expected_sequence,omitempty"`
}

func decodeReviewRequest(r *http.Request) (reviewRequest, bool) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return reviewRequest{}, false
	}
	req.Actor = strings.TrimSpace(req.Actor)
	return req, req.Actor != ""
}

func (rt *Router) approve(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "json body with non-empty 'actor' is required"})
		return
	}

	doc, err := rt.review.Approve(r.Context(), r.PathValue("id"), req.Actor, req.ExpectedSequence)
	if rt.metrics != nil {
		rt.metrics.ObserveReviewAction(serviceName, "approve", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) reject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "json body with non-empty 'actor' is required"})
		return
	}

	doc, err := rt.review.Reject(r.Context(), r.PathValue("id"), req.Actor, req.Reason, req.ExpectedSequence)
	if rt.metrics != nil {
		rt.metrics.ObserveReviewAction(serviceName, "reject", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) archive(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "json body with non-empty 'actor' is required"})
		return
	}

	doc, err := rt.review.Archive(r.Context(), r.PathValue("id"), req.Actor, req.ExpectedSequence)
	if rt.metrics != nil {
		rt.metrics.ObserveReviewAction(serviceName, "archive", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) submitFieldCorrection(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewRequest(r)
	if !ok || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "json body with non-empty 'actor' and 'value' is required"})
		return
	}

	doc, err := rt.review.SubmitFieldCorrection(
		r.Context(), r.PathValue("id"), r.PathValue("name"), req.Value, req.Actor, req.ExpectedSequence,
	)
	if rt.metrics != nil {
		rt.metrics.ObserveReviewAction(serviceName, "field_correction", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listQueue(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQueueFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := rt.queries.ListQueue(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func parseQueueFilter(r *http.Request) (domain.QueueFilter, error) {
	filter := domain.DefaultQueueFilter()
	filter.Search = r.URL.Query().Get("search")

	if lo := r.URL.Query().Get("lo"); lo != "" {
		v, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return domain.QueueFilter{}, domain.WrapError(domain.ErrInvalidFilter, "parse queue filter", err)
		}
		filter.MinConfidence = v
	}
	if hi := r.URL.Query().Get("hi"); hi != "" {
		v, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return domain.QueueFilter{}, domain.WrapError(domain.ErrInvalidFilter, "parse queue filter", err)
		}
		filter.MaxConfidence = v
	}
	return filter, filter.Validate()
}
