package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
	"github.com/invopilot/docflow/internal/observability/metrics"
)

const serviceName = "docflow-api"

type Router struct {
	ingest  ports.DocumentIngestor
	review  ports.ReviewWorkflow
	queries ports.WorkflowQueries
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	ingest ports.DocumentIngestor,
	review ports.ReviewWorkflow,
	queries ports.WorkflowQueries,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingest:  ingest,
		review:  review,
		queries: queries,
		metrics: serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{id}/audit", rt.getAuditTrail)
	mux.HandleFunc("POST /v1/documents/{id}/fields/{name}", rt.submitFieldCorrection)
	mux.HandleFunc("POST /v1/documents/{id}/approve", rt.approve)
	mux.HandleFunc("POST /v1/documents/{id}/reject", rt.reject)
	mux.HandleFunc("POST /v1/documents/{id}/archive", rt.archive)
	mux.HandleFunc("GET /v1/review/queue", rt.listQueue)
	mux.HandleFunc("GET /v1/stats", rt.stats)

	handler := http.Handler(mux)
	handler = accessLogMiddleware(rt.metrics, serviceName)(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	actor := r.FormValue("actor")
	if actor == "" {
		actor = "uploader"
	}

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		actor,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.queries.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := domain.HistoryQuery{}
	if s := r.URL.Query().Get("stage"); s != "" {
		stage := domain.Stage(s)
		q.Stage = &stage
	}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	docs, err := rt.queries.ListDocuments(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (rt *Router) getAuditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := rt.queries.GetAuditTrail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.queries.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
