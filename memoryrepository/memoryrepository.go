package memoryrepository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/YaleSpinup/stars-api/star"
	log "github.com/sirupsen/logrus"
)

// MemoryRepository is an in-memory implementation of a repo repository.  It
// is the development default and keeps everything in maps guarded by a mutex,
// so the contents are lost when the process exits.
type MemoryRepository struct {
	mux         sync.RWMutex
	repos       map[string]*star.Repo
	events      map[string][]*star.Event
	nextEventID int64
}

// New creates a new empty memory repository
func New() *MemoryRepository {
	log.Info("creating new memory repository provider")

	return &MemoryRepository{
		repos:  make(map[string]*star.Repo),
		events: make(map[string][]*star.Event),
	}
}

// copyRepo returns a deep copy of a repo so callers can't mutate the stored record
func copyRepo(r *star.Repo) *star.Repo {
	c := *r

	if r.Tags != nil {
		c.Tags = make([]string, len(r.Tags))
		copy(c.Tags, r.Tags)
	}

	if r.CreatedAt != nil {
		ca := *r.CreatedAt
		c.CreatedAt = &ca
	}

	if r.ModifiedAt != nil {
		ma := *r.ModifiedAt
		c.ModifiedAt = &ma
	}

	return &c
}

// Create stores a new repo with the given id
func (m *MemoryRepository) Create(ctx context.Context, id string, repo *star.Repo) (*star.Repo, error) {
	if id == "" || repo == nil {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	if _, ok := m.repos[id]; ok {
		msg := fmt.Sprintf("repo %s already exists", id)
		return nil, apierror.New(apierror.ErrConflict, msg, nil)
	}

	now := time.Now().UTC().Truncate(time.Second)
	stored := copyRepo(repo)
	stored.ID = id
	stored.CreatedAt = &now
	stored.ModifiedAt = &now

	m.repos[id] = stored

	return copyRepo(stored), nil
}

// Get returns the repo with the given id
func (m *MemoryRepository) Get(ctx context.Context, id string) (*star.Repo, error) {
	if id == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.RLock()
	defer m.mux.RUnlock()

	repo, ok := m.repos[id]
	if !ok {
		msg := fmt.Sprintf("repo %s not found", id)
		return nil, apierror.New(apierror.ErrNotFound, msg, nil)
	}

	return copyRepo(repo), nil
}

// List returns the repos matching the filter, ordered by creation time
func (m *MemoryRepository) List(ctx context.Context, filter star.Filter) ([]*star.Repo, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	repos := []*star.Repo{}
	for _, repo := range m.repos {
		if repo.Matches(filter) {
			repos = append(repos, copyRepo(repo))
		}
	}

	sortRepos(repos)

	return repos, nil
}

// Search returns the repos matching the query by name, description or tag
func (m *MemoryRepository) Search(ctx context.Context, query string) ([]*star.Repo, error) {
	if query == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.RLock()
	defer m.mux.RUnlock()

	repos := []*star.Repo{}
	for _, repo := range m.repos {
		if repo.MatchesQuery(query) {
			repos = append(repos, copyRepo(repo))
		}
	}

	sortRepos(repos)

	return repos, nil
}

// Update applies a partial update to the repo with the given id
func (m *MemoryRepository) Update(ctx context.Context, id string, update *star.RepoUpdate) (*star.Repo, error) {
	if id == "" || update == nil {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	repo, ok := m.repos[id]
	if !ok {
		msg := fmt.Sprintf("repo %s not found", id)
		return nil, apierror.New(apierror.ErrNotFound, msg, nil)
	}

	update.Apply(repo)

	now := time.Now().UTC().Truncate(time.Second)
	repo.ModifiedAt = &now

	return copyRepo(repo), nil
}

// Delete removes the repo with the given id
func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	if _, ok := m.repos[id]; !ok {
		msg := fmt.Sprintf("repo %s not found", id)
		return apierror.New(apierror.ErrNotFound, msg, nil)
	}

	// the audit trail is kept so the deletion itself can be recorded
	delete(m.repos, id)

	return nil
}

// Stats summarizes the stored repos by language and status
func (m *MemoryRepository) Stats(ctx context.Context) (*star.Stats, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	stats := &star.Stats{
		TotalRepos: len(m.repos),
		ByLanguage: map[string]int{},
		ByStatus:   map[string]int{},
	}

	for _, repo := range m.repos {
		language := repo.Language
		if language == "" {
			language = "Unknown"
		}
		stats.ByLanguage[language]++

		status := repo.Status
		if status == "" {
			status = "unknown"
		}
		stats.ByStatus[status]++
	}

	return stats, nil
}

// Tags returns the sorted list of distinct tags in use
func (m *MemoryRepository) Tags(ctx context.Context) ([]string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	seen := map[string]struct{}{}
	for _, repo := range m.repos {
		for _, tag := range repo.Tags {
			seen[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags, nil
}

// CreateEvent appends an event to the audit trail of a repo
func (m *MemoryRepository) CreateEvent(ctx context.Context, event *star.Event) error {
	if event == nil || event.RepoID == "" || event.Action == "" {
		return apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	m.nextEventID++

	now := time.Now().UTC().Truncate(time.Second)
	stored := *event
	stored.ID = m.nextEventID
	stored.CreatedAt = &now

	m.events[event.RepoID] = append(m.events[event.RepoID], &stored)

	return nil
}

// ListEvents returns the audit trail of a repo, oldest first
func (m *MemoryRepository) ListEvents(ctx context.Context, repoID string) ([]*star.Event, error) {
	if repoID == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	m.mux.RLock()
	defer m.mux.RUnlock()

	events := []*star.Event{}
	for _, e := range m.events[repoID] {
		c := *e
		events = append(events, &c)
	}

	return events, nil
}

// sortRepos orders repos by creation time, falling back to id for stability
func sortRepos(repos []*star.Repo) {
	sort.Slice(repos, func(i, j int) bool {
		if repos[i].CreatedAt != nil && repos[j].CreatedAt != nil && !repos[i].CreatedAt.Equal(*repos[j].CreatedAt) {
			return repos[i].CreatedAt.Before(*repos[j].CreatedAt)
		}
		return repos[i].ID < repos[j].ID
	})
}
