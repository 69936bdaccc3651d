package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/YaleSpinup/stars-api/apierror"
	log "github.com/sirupsen/logrus"
)

// StatsHandler summarizes the repos under management by language and status
func (s *server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}

	log.Debug("getting repo stats")

	stats, err := s.service.RepoRepository.Stats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	j, err := json.Marshal(stats)
	if err != nil {
		msg := fmt.Sprintf("cannot encode stats into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// TagListHandler returns the distinct tags in use
func (s *server) TagListHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}

	log.Debug("listing repo tags")

	tags, err := s.service.RepoRepository.Tags(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	output := struct {
		Total int      `json:"total"`
		Tags  []string `json:"tags"`
	}{
		len(tags),
		tags,
	}

	j, err := json.Marshal(&output)
	if err != nil {
		msg := fmt.Sprintf("cannot encode tag list into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}
