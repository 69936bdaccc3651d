package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/YaleSpinup/stars-api/star"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// RepoCreateHandler adds a new repo to the organizer
// * generates an internal repo id
// * validates the input vocabulary
// * records a created event in the audit trail
func (s *server) RepoCreateHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}

	log.Infof("creating repo (org: %s)", Org)

	input := star.Repo{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		msg := fmt.Sprintf("cannot decode body into create repo input: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	if input.URL == "" {
		handleError(w, apierror.New(apierror.ErrBadRequest, "repo url is required", nil))
		return
	}

	if err := input.Validate(); err != nil {
		handleError(w, apierror.New(apierror.ErrBadRequest, err.Error(), err))
		return
	}

	log.Debugf("decoded request body into repo input %+v", input)

	id := s.service.NewID()

	log.Debugf("generated random id %s for new repo", id)

	out, err := s.service.RepoRepository.Create(r.Context(), id, &input)
	if err != nil {
		handleError(w, err)
		return
	}

	s.recordEvent(r, id, star.ActionCreated, fmt.Sprintf("repo %s added", out.URL))

	output := struct {
		Message string     `json:"message"`
		Repo    *star.Repo `json:"repo"`
	}{
		"Repository added successfully",
		out,
	}

	j, err := json.Marshal(&output)
	if err != nil {
		msg := fmt.Sprintf("cannot encode repo output into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// RepoListHandler lists repos, optionally narrowed by the language, tag and
// status query parameters
func (s *server) RepoListHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}

	filter := star.Filter{
		Language: r.URL.Query().Get("language"),
		Tag:      r.URL.Query().Get("tag"),
		Status:   r.URL.Query().Get("status"),
	}

	log.Debugf("listing repos with filter %+v", filter)

	repos, err := s.service.RepoRepository.List(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}

	output := struct {
		Total int          `json:"total"`
		Repos []*star.Repo `json:"repos"`
	}{
		len(repos),
		repos,
	}

	j, err := json.Marshal(&output)
	if err != nil {
		msg := fmt.Sprintf("cannot encode repo list into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// RepoShowHandler returns a single repo by id
func (s *server) RepoShowHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}
	vars := mux.Vars(r)
	id := vars["id"]

	log.Debugf("showing repo %s", id)

	repo, err := s.service.RepoRepository.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	j, err := json.Marshal(repo)
	if err != nil {
		msg := fmt.Sprintf("cannot encode repo into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// RepoUpdateHandler applies a partial update to a repo's metadata (tags,
// notes, status, priority, ...)
func (s *server) RepoUpdateHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}
	vars := mux.Vars(r)
	id := vars["id"]

	log.Infof("updating repo %s (org: %s)", id, Org)

	input := star.RepoUpdate{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		msg := fmt.Sprintf("cannot decode body into update repo input: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	if err := input.Validate(); err != nil {
		handleError(w, apierror.New(apierror.ErrBadRequest, err.Error(), err))
		return
	}

	out, err := s.service.RepoRepository.Update(r.Context(), id, &input)
	if err != nil {
		handleError(w, err)
		return
	}

	s.recordEvent(r, id, star.ActionUpdated, "repo metadata updated")

	output := struct {
		Message string     `json:"message"`
		Repo    *star.Repo `json:"repo"`
	}{
		"Repository updated successfully",
		out,
	}

	j, err := json.Marshal(&output)
	if err != nil {
		msg := fmt.Sprintf("cannot encode repo output into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// RepoDeleteHandler removes a repo by id
func (s *server) RepoDeleteHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}
	vars := mux.Vars(r)
	id := vars["id"]

	log.Infof("deleting repo %s (org: %s)", id, Org)

	if err := s.service.RepoRepository.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	s.recordEvent(r, id, star.ActionDeleted, "repo deleted")

	output := struct {
		Message string `json:"message"`
	}{
		fmt.Sprintf("Repository %s deleted successfully", id),
	}

	j, err := json.Marshal(&output)
	if err != nil {
		msg := fmt.Sprintf("cannot encode delete output into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// RepoSearchHandler searches repos by name, description or tags
func (s *server) RepoSearchHandler(w http.ResponseWriter, r *http.Request) {
	w = LogWriter{w}
	vars := mux.Vars(r)
	query := vars["query"]

	log.Debugf("searching repos for '%s'", query)

	repos, err := s.service.RepoRepository.Search(r.Context(), query)
	if err != nil {
		handleError(w, err)
		return
	}

	output := struct {
		Query string       `json:"query"`
		Total int          `json:"total"`
		Repos []*star.Repo `json:"repos"`
	}{
		query,
		len(repos),
		repos,
	}

	j, err := json.Marshal(&output)
	if err != nil {
		msg := fmt.Sprintf("cannot encode repo list into json: %s", err)
		handleError(w, apierror.New(apierror.ErrBadRequest, msg, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// recordEvent appends to the audit trail when the backend supports it.  A
// failure to record is logged but doesn't fail the request.
func (s *server) recordEvent(r *http.Request, id, action, message string) {
	if s.service.EventRepository == nil {
		return
	}

	event := &star.Event{
		RepoID:  id,
		Action:  action,
		Message: message,
	}

	if err := s.service.EventRepository.CreateEvent(r.Context(), event); err != nil {
		log.Errorf("failed to record %s event for repo %s: %s", action, id, err)
	}
}
