package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/YaleSpinup/stars-api/common"
	"github.com/YaleSpinup/stars-api/memoryrepository"
	"github.com/YaleSpinup/stars-api/s3repository"
	"github.com/YaleSpinup/stars-api/sqliterepository"
	"github.com/YaleSpinup/stars-api/star"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	log "github.com/sirupsen/logrus"
)

type server struct {
	service *star.Service
	router  *mux.Router
	version common.Version
	context context.Context
}

// Org will carry throughout the api and get tagged on resources
var Org string

// NewServer creates a new server and starts it
func NewServer(config common.Config) error {
	// setup server context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := server{
		router:  mux.NewRouter(),
		version: config.Version,
		context: ctx,
	}

	if config.Org == "" {
		return errors.New("'org' cannot be empty in the configuration")
	}
	Org = config.Org
	repository := config.Repository

	// Initialize repo repository session
	log.Debugf("Creating new session for Repository of type %s with configuration %+v (org: %s)", repository.Type, repository.Config, Org)

	var repoRepo star.RepoRepository
	var eventRepo star.EventRepository

	switch repository.Type {
	case "memory":
		m := memoryrepository.New()
		repoRepo = m
		eventRepo = m
	case "sqlite":
		sq, err := sqliterepository.NewDefaultRepository(repository.Config)
		if err != nil {
			return err
		}
		repoRepo = sq
		eventRepo = sq
	case "s3":
		// the s3 backend has no audit trail, the service runs without an event repository
		s3repo, err := s3repository.NewDefaultRepository(repository.Config)
		if err != nil {
			return err
		}
		repoRepo = s3repo
	default:
		return errors.New("failed to determine repository type, or type not supported: " + repository.Type)
	}

	opts := []star.ServiceOption{
		star.WithRepoRepository(repoRepo),
	}

	if eventRepo != nil {
		opts = append(opts, star.WithEventRepository(eventRepo))
	}

	s.service = star.NewService(opts...)

	publicURLs := map[string]string{
		"/v1/stars/ping":    "public",
		"/v1/stars/version": "public",
		"/v1/stars/metrics": "public",
	}

	// load routes
	s.routes()

	if config.ListenAddress == "" {
		config.ListenAddress = ":8080"
	}

	// allow a browser frontend to call the api
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(config.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Auth-Token"}),
		handlers.AllowCredentials(),
	)

	handler := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, cors(TokenMiddleware([]byte(config.Token), publicURLs, s.router))))
	srv := &http.Server{
		Handler:      handler,
		Addr:         config.ListenAddress,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	log.Infof("Starting listener on %s", config.ListenAddress)
	if err := srv.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

// LogWriter is an http.ResponseWriter
type LogWriter struct {
	http.ResponseWriter
}

// Write log message if http response writer returns an error
func (w LogWriter) Write(p []byte) (n int, err error) {
	n, err = w.ResponseWriter.Write(p)
	if err != nil {
		log.Errorf("Write failed: %v", err)
	}
	return
}
