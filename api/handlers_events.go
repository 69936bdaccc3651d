package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// EventListHandler returns the audit trail for a repo
func (s *server) EventListHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}
	vars := mux.Vars(r)
	id := vars["id"]

	if s.service.EventRepository == nil {
		handleError(w, apierror.New(apierror.ErrNotImplemented, "the configured repository doesn't keep an audit trail", nil))
		return
	}

	log.Debugf("listing events for repo %s", id)

	// make sure the repo exists so a bogus id is a 404 and not an empty list
	if _, err := s.service.RepoRepository.Get(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	events, err := s.service.EventRepository.ListEvents(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	j, err := json.Marshal(events)
	if err != nil {
		msg := fmt.Sprintf("cannot encode repo events into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}
