package star

import (
	"context"

	"github.com/google/uuid"
)

// Service is a collection of the following:
// - a Repo Repository for storing starred repository records
// - an optional Event Repository for storing the audit trail of changes
type Service struct {
	RepoRepository  RepoRepository
	EventRepository EventRepository
}

// RepoRepository is an interface for a starred repository store
type RepoRepository interface {
	Create(ctx context.Context, id string, repo *Repo) (*Repo, error)
	Get(ctx context.Context, id string) (*Repo, error)
	List(ctx context.Context, filter Filter) ([]*Repo, error)
	Search(ctx context.Context, query string) ([]*Repo, error)
	Update(ctx context.Context, id string, update *RepoUpdate) (*Repo, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
	Tags(ctx context.Context) ([]string, error)
}

// EventRepository is an interface for the repo change audit trail
type EventRepository interface {
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, repoID string) ([]*Event, error)
}

// Filter narrows down the repo list.  Empty fields are ignored and all
// matches are case-insensitive.
type Filter struct {
	Language string
	Tag      string
	Status   string
}

// Stats summarizes the repos under management
type Stats struct {
	TotalRepos int            `json:"total_repos"`
	ByLanguage map[string]int `json:"by_language"`
	ByStatus   map[string]int `json:"by_status"`
}

// ServiceOption is a function to set service options
type ServiceOption func(*Service)

// NewService creates a new star service with the provided ServiceOption functions
func NewService(opts ...ServiceOption) *Service {
	s := Service{}

	for _, opt := range opts {
		opt(&s)
	}

	return &s
}

// WithRepoRepository sets the RepoRepository for the service
func WithRepoRepository(repo RepoRepository) ServiceOption {
	return func(s *Service) {
		s.RepoRepository = repo
	}
}

// WithEventRepository sets the EventRepository for the service
func WithEventRepository(repo EventRepository) ServiceOption {
	return func(s *Service) {
		s.EventRepository = repo
	}
}

// NewID generates a new repo id
func (s *Service) NewID() string {
	return uuid.New().String()
}
