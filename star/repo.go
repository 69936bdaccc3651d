package star

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Statuses is the list of allowed repo status values
var Statuses = []string{"to-try", "tried", "using", "abandoned"}

// Priorities is the list of allowed repo priority values
var Priorities = []string{"low", "medium", "high"}

// Event actions recorded in the audit trail
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Repo is the structure of a starred repository record
type Repo struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Tags        []string   `json:"tags"`
	Notes       string     `json:"notes"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	CreatedAt   *time.Time `json:"created_at"`
	ModifiedAt  *time.Time `json:"modified_at"`
}

// RepoUpdate is a partial update of a repo.  Nil fields are left untouched.
type RepoUpdate struct {
	URL         *string  `json:"url"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Language    *string  `json:"language"`
	Tags        []string `json:"tags"`
	Notes       *string  `json:"notes"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
}

// Event is an audit trail entry for a repo
type Event struct {
	ID        int64      `json:"id"`
	RepoID    string     `json:"repo_id"`
	Action    string     `json:"action"`
	Message   string     `json:"message"`
	CreatedAt *time.Time `json:"created_at"`
}

// ValidStatus returns true for an allowed status value, empty included
func ValidStatus(s string) bool {
	if s == "" {
		return true
	}
	for _, v := range Statuses {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// ValidPriority returns true for an allowed priority value, empty included
func ValidPriority(p string) bool {
	if p == "" {
		return true
	}
	for _, v := range Priorities {
		if strings.EqualFold(p, v) {
			return true
		}
	}
	return false
}

// Validate checks the repo fields against the allowed vocabularies
func (r *Repo) Validate() error {
	if !ValidStatus(r.Status) {
		return fmt.Errorf("invalid status '%s', allowed values: %s", r.Status, strings.Join(Statuses, ", "))
	}

	if !ValidPriority(r.Priority) {
		return fmt.Errorf("invalid priority '%s', allowed values: %s", r.Priority, strings.Join(Priorities, ", "))
	}

	return nil
}

// Validate checks the update fields against the allowed vocabularies
func (u *RepoUpdate) Validate() error {
	if u.Status != nil && !ValidStatus(*u.Status) {
		return fmt.Errorf("invalid status '%s', allowed values: %s", *u.Status, strings.Join(Statuses, ", "))
	}

	if u.Priority != nil && !ValidPriority(*u.Priority) {
		return fmt.Errorf("invalid priority '%s', allowed values: %s", *u.Priority, strings.Join(Priorities, ", "))
	}

	return nil
}

// Apply copies the non-nil update fields onto the repo.  ID and CreatedAt
// are immutable and never touched.
func (u *RepoUpdate) Apply(r *Repo) {
	if u.URL != nil {
		r.URL = *u.URL
	}

	if u.Name != nil {
		r.Name = *u.Name
	}

	if u.Description != nil {
		r.Description = *u.Description
	}

	if u.Language != nil {
		r.Language = *u.Language
	}

	if u.Tags != nil {
		r.Tags = u.Tags
	}

	if u.Notes != nil {
		r.Notes = *u.Notes
	}

	if u.Status != nil {
		r.Status = *u.Status
	}

	if u.Priority != nil {
		r.Priority = *u.Priority
	}
}

// Matches returns true if the repo satisfies the filter
func (r *Repo) Matches(filter Filter) bool {
	if filter.Language != "" && !strings.EqualFold(r.Language, filter.Language) {
		return false
	}

	if filter.Status != "" && !strings.EqualFold(r.Status, filter.Status) {
		return false
	}

	if filter.Tag != "" {
		found := false
		for _, t := range r.Tags {
			if strings.EqualFold(t, filter.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// MatchesQuery returns true if the query is a case-insensitive substring of
// the repo name, description or any of its tags
func (r *Repo) MatchesQuery(query string) bool {
	q := strings.ToLower(query)

	if strings.Contains(strings.ToLower(r.Name), q) {
		return true
	}

	if strings.Contains(strings.ToLower(r.Description), q) {
		return true
	}

	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}

	return false
}

// UnmarshalJSON is a custom JSON unmarshaller for a repo
func (r *Repo) UnmarshalJSON(j []byte) error {
	var rawStrings map[string]interface{}

	log.Debugf("unmarshalling repo: %s", string(j))

	err := json.Unmarshal(j, &rawStrings)
	if err != nil {
		return err
	}

	if id, ok := rawStrings["id"]; ok {
		s, ok := id.(string)
		if !ok {
			msg := fmt.Sprintf("id is not a string: %+v", rawStrings["id"])
			return errors.New(msg)
		}
		r.ID = s
	}

	if u, ok := rawStrings["url"]; ok {
		s, ok := u.(string)
		if !ok {
			msg := fmt.Sprintf("url is not a string: %+v", rawStrings["url"])
			return errors.New(msg)
		}
		r.URL = s
	}

	if name, ok := rawStrings["name"]; ok {
		s, ok := name.(string)
		if !ok {
			msg := fmt.Sprintf("name is not a string: %+v", rawStrings["name"])
			return errors.New(msg)
		}
		r.Name = s
	}

	if desc, ok := rawStrings["description"]; ok {
		s, ok := desc.(string)
		if !ok {
			msg := fmt.Sprintf("description is not a string: %+v", rawStrings["description"])
			return errors.New(msg)
		}
		r.Description = s
	}

	if language, ok := rawStrings["language"]; ok {
		s, ok := language.(string)
		if !ok {
			msg := fmt.Sprintf("language is not a string: %+v", rawStrings["language"])
			return errors.New(msg)
		}
		r.Language = s
	}

	if tags, ok := rawStrings["tags"]; ok {
		if tags == nil {
			r.Tags = []string{}
		} else {
			ts, ok := tags.([]interface{})
			if !ok {
				msg := fmt.Sprintf("tags is not a []interface{}: %+v", rawStrings["tags"])
				return errors.New(msg)
			}
			r.Tags = []string{}
			for _, iface := range ts {
				tag, ok := iface.(string)
				if !ok {
					msg := fmt.Sprintf("tag value is not a string: %+v", iface)
					return errors.New(msg)
				}
				r.Tags = append(r.Tags, tag)
			}
		}
	}

	if notes, ok := rawStrings["notes"]; ok {
		s, ok := notes.(string)
		if !ok {
			msg := fmt.Sprintf("notes is not a string: %+v", rawStrings["notes"])
			return errors.New(msg)
		}
		r.Notes = s
	}

	if status, ok := rawStrings["status"]; ok {
		s, ok := status.(string)
		if !ok {
			msg := fmt.Sprintf("status is not a string: %+v", rawStrings["status"])
			return errors.New(msg)
		}
		r.Status = s
	}

	if priority, ok := rawStrings["priority"]; ok {
		s, ok := priority.(string)
		if !ok {
			msg := fmt.Sprintf("priority is not a string: %+v", rawStrings["priority"])
			return errors.New(msg)
		}
		r.Priority = s
	}

	if createdAt, ok := rawStrings["created_at"]; ok {
		ca, ok := createdAt.(string)
		if !ok {
			msg := fmt.Sprintf("created_at is not a string: %+v", rawStrings["created_at"])
			return errors.New(msg)
		}
		if ca != "" {
			t, err := time.Parse(time.RFC3339, ca)
			if err != nil {
				msg := fmt.Sprintf("failed to parse created_at as time: %+v", ca)
				return errors.New(msg)
			}
			r.CreatedAt = &t
		}
	}

	if modifiedAt, ok := rawStrings["modified_at"]; ok {
		ma, ok := modifiedAt.(string)
		if !ok {
			msg := fmt.Sprintf("modified_at is not a string: %+v", rawStrings["modified_at"])
			return errors.New(msg)
		}
		if ma != "" {
			t, err := time.Parse(time.RFC3339, ma)
			if err != nil {
				msg := fmt.Sprintf("failed to parse modified_at as time: %+v", ma)
				return errors.New(msg)
			}
			r.ModifiedAt = &t
		}
	}

	return nil
}

// MarshalJSON is a custom JSON marshaller for a repo
func (r Repo) MarshalJSON() ([]byte, error) {
	createdAt := ""
	if r.CreatedAt != nil {
		createdAt = r.CreatedAt.Format(time.RFC3339)
	}

	modifiedAt := ""
	if r.ModifiedAt != nil {
		modifiedAt = r.ModifiedAt.Format(time.RFC3339)
	}

	repo := struct {
		ID          string   `json:"id"`
		URL         string   `json:"url"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Language    string   `json:"language"`
		Tags        []string `json:"tags"`
		Notes       string   `json:"notes"`
		Status      string   `json:"status"`
		Priority    string   `json:"priority"`
		CreatedAt   string   `json:"created_at"`
		ModifiedAt  string   `json:"modified_at"`
	}{
		ID:          r.ID,
		URL:         r.URL,
		Name:        r.Name,
		Description: r.Description,
		Language:    r.Language,
		Tags:        r.Tags,
		Notes:       r.Notes,
		Status:      r.Status,
		Priority:    r.Priority,
		CreatedAt:   createdAt,
		ModifiedAt:  modifiedAt,
	}

	return json.Marshal(repo)
}
