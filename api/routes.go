package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *server) routes() {
	api := s.router.PathPrefix("/v1/stars").Subrouter()
	api.HandleFunc("/ping", s.PingHandler).Methods(http.MethodGet)
	api.HandleFunc("/version", s.VersionHandler).Methods(http.MethodGet)
	api.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// search is registered before the id routes so "search" isn't matched as an id
	api.HandleFunc("/repos/search/{query}", s.RepoSearchHandler).Methods(http.MethodGet)

	api.HandleFunc("/repos", s.RepoListHandler).Methods(http.MethodGet)
	api.HandleFunc("/repos", s.RepoCreateHandler).Methods(http.MethodPost)
	api.HandleFunc("/repos/{id}", s.RepoShowHandler).Methods(http.MethodGet)
	api.HandleFunc("/repos/{id}", s.RepoUpdateHandler).Methods(http.MethodPut)
	api.HandleFunc("/repos/{id}", s.RepoDeleteHandler).Methods(http.MethodDelete)

	api.HandleFunc("/repos/{id}/events", s.EventListHandler).Methods(http.MethodGet)

	api.HandleFunc("/stats", s.StatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tags", s.TagListHandler).Methods(http.MethodGet)
}
