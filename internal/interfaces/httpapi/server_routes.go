package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler, token string) {
	mux.Handle("POST /v1/internal/matches/{matchID}/events", RequireInternalJobToken(token, http.HandlerFunc(handler.IngestMatchEvent)))
	mux.Handle("POST /v1/internal/events/batch", RequireInternalJobToken(token, http.HandlerFunc(handler.IngestEventBatch)))
	mux.Handle("GET /v1/internal/matches/{matchID}/minutes", RequireInternalJobToken(token, http.HandlerFunc(handler.GetMatchMinutes)))
	mux.Handle("DELETE /v1/internal/matches/{matchID}/session", RequireInternalJobToken(token, http.HandlerFunc(handler.EndMatchSession)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, token string) {
	mux.Handle("POST /v1/internal/jobs/post-fixtures", RequireInternalJobToken(token, http.HandlerFunc(handler.RunPostFixturesJob)))
	mux.Handle("POST /v1/internal/jobs/post-results", RequireInternalJobToken(token, http.HandlerFunc(handler.RunPostResultsJob)))
	mux.Handle("POST /v1/internal/jobs/summary", RequireInternalJobToken(token, http.HandlerFunc(handler.RunSummaryJob)))
	mux.Handle("POST /v1/internal/summaries/preview", RequireInternalJobToken(token, http.HandlerFunc(handler.PreviewSummary)))
}
