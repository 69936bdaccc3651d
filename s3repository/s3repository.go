package s3repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"
	"time"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/YaleSpinup/stars-api/star"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	log "github.com/sirupsen/logrus"
)

// S3RepositoryOption is a function to set repository options
type S3RepositoryOption func(*S3Repository)

// S3Repository is an implementation of a repo repository in S3.  Each repo is
// stored as a JSON document under the configured bucket and prefix.  It does
// not keep an audit trail.
type S3Repository struct {
	S3     s3iface.S3API
	Bucket string
	Prefix string
	config *aws.Config
}

// NewDefaultRepository creates a new repository from the default config data
func NewDefaultRepository(config map[string]interface{}) (*S3Repository, error) {
	var akid, secret, token, region, endpoint, bucket, prefix string
	if v, ok := config["akid"].(string); ok {
		akid = v
	}

	if v, ok := config["secret"].(string); ok {
		secret = v
	}

	if v, ok := config["token"].(string); ok {
		token = v
	}

	if v, ok := config["region"].(string); ok {
		region = v
	}

	if v, ok := config["endpoint"].(string); ok {
		endpoint = v
	}

	if v, ok := config["bucket"].(string); ok {
		bucket = v
	}

	if v, ok := config["prefix"].(string); ok {
		prefix = v
	}

	opts := []S3RepositoryOption{
		WithStaticCredentials(akid, secret, token),
	}

	if region != "" {
		opts = append(opts, WithRegion(region))
	}

	if endpoint != "" {
		opts = append(opts, WithEndpoint(endpoint))
	}

	if bucket != "" {
		opts = append(opts, WithBucket(bucket))
	}

	if prefix != "" {
		opts = append(opts, WithPrefix(prefix))
	}

	return New(opts...)
}

// New creates an S3Repository from a list of S3RepositoryOption functions
func New(opts ...S3RepositoryOption) (*S3Repository, error) {
	log.Info("creating new s3 repository provider")

	s := S3Repository{}
	s.config = aws.NewConfig()

	for _, opt := range opts {
		opt(&s)
	}

	sess := session.Must(session.NewSession(s.config))

	s.S3 = s3.New(sess)
	return &s, nil
}

// WithStaticCredentials authenticates with AWS static credentials (key, secret, token)
func WithStaticCredentials(akid, secret, token string) S3RepositoryOption {
	return func(s *S3Repository) {
		log.Debugf("setting static credentials with akid %s", akid)
		s.config.WithCredentials(credentials.NewStaticCredentials(akid, secret, token))
	}
}

// WithRegion sets the region for the S3Repository
func WithRegion(region string) S3RepositoryOption {
	return func(s *S3Repository) {
		log.Debugf("setting region %s", region)
		s.config.WithRegion(region)
	}
}

// WithEndpoint sets the endpoint for the S3Repository
func WithEndpoint(endpoint string) S3RepositoryOption {
	return func(s *S3Repository) {
		log.Debugf("setting endpoint %s", endpoint)
		s.config.WithEndpoint(endpoint)
	}
}

// WithBucket sets the bucket for the S3Repository
func WithBucket(bucket string) S3RepositoryOption {
	return func(s *S3Repository) {
		log.Debugf("setting bucket %s", bucket)
		s.Bucket = bucket
	}
}

// WithPrefix sets the bucket prefix for the S3Repository
func WithPrefix(prefix string) S3RepositoryOption {
	return func(s *S3Repository) {
		log.Debugf("setting bucket prefix %s", prefix)
		s.Prefix = prefix
	}
}

func (s *S3Repository) key(id string) string {
	if s.Prefix != "" {
		return s.Prefix + "/" + id
	}
	return id
}

// Create stores a new repo as a JSON document with the given id
func (s *S3Repository) Create(ctx context.Context, id string, repo *star.Repo) (*star.Repo, error) {
	if id == "" || repo == nil {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	key := s.key(id)

	log.Debugf("creating repo object in s3: %s/%s", s.Bucket, key)

	// HeadObject returns NotFound for missing keys, anything else means the id is taken
	if _, err := s.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}); err == nil {
		msg := fmt.Sprintf("repo %s already exists", id)
		return nil, apierror.New(apierror.ErrConflict, msg, nil)
	} else if aerr, ok := err.(awserr.Error); !ok || (aerr.Code() != "NotFound" && aerr.Code() != s3.ErrCodeNoSuchKey) {
		msg := fmt.Sprintf("failed to check for existing s3 repo object: %s/%s", s.Bucket, key)
		return nil, ErrCode(msg, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	stored := *repo
	stored.ID = id
	stored.CreatedAt = &now
	stored.ModifiedAt = &now

	if err := s.put(ctx, key, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// Get returns the repo with the given id
func (s *S3Repository) Get(ctx context.Context, id string) (*star.Repo, error) {
	if id == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	key := s.key(id)

	out, err := s.S3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		msg := fmt.Sprintf("failed to get repo object from s3: %s/%s", s.Bucket, key)
		return nil, ErrCode(msg, err)
	}
	defer out.Body.Close()

	body, err := ioutil.ReadAll(out.Body)
	if err != nil {
		msg := fmt.Sprintf("failed to read repo object body: %s/%s", s.Bucket, key)
		return nil, apierror.New(apierror.ErrInternalError, msg, err)
	}

	repo := &star.Repo{}
	if err := json.Unmarshal(body, repo); err != nil {
		msg := fmt.Sprintf("failed to unmarshal repo object: %s/%s", s.Bucket, key)
		return nil, apierror.New(apierror.ErrInternalError, msg, err)
	}

	return repo, nil
}

// List returns the repos matching the filter, ordered by creation time.  All
// objects under the prefix are fetched, filtering happens here.
func (s *S3Repository) List(ctx context.Context, filter star.Filter) ([]*star.Repo, error) {
	ids := []string{}

	prefix := ""
	if s.Prefix != "" {
		prefix = s.Prefix + "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	}

	err := s.S3.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			ids = append(ids, key[len(prefix):])
		}
		return true
	})
	if err != nil {
		msg := fmt.Sprintf("failed to list repo objects in s3: %s/%s", s.Bucket, prefix)
		return nil, ErrCode(msg, err)
	}

	repos := []*star.Repo{}
	for _, id := range ids {
		repo, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if repo.Matches(filter) {
			repos = append(repos, repo)
		}
	}

	sort.Slice(repos, func(i, j int) bool {
		if repos[i].CreatedAt != nil && repos[j].CreatedAt != nil && !repos[i].CreatedAt.Equal(*repos[j].CreatedAt) {
			return repos[i].CreatedAt.Before(*repos[j].CreatedAt)
		}
		return repos[i].ID < repos[j].ID
	})

	return repos, nil
}

// Search returns the repos matching the query by name, description or tag
func (s *S3Repository) Search(ctx context.Context, query string) ([]*star.Repo, error) {
	if query == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	all, err := s.List(ctx, star.Filter{})
	if err != nil {
		return nil, err
	}

	repos := []*star.Repo{}
	for _, repo := range all {
		if repo.MatchesQuery(query) {
			repos = append(repos, repo)
		}
	}

	return repos, nil
}

// Update applies a partial update to the repo with the given id
func (s *S3Repository) Update(ctx context.Context, id string, update *star.RepoUpdate) (*star.Repo, error) {
	if id == "" || update == nil {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	repo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(repo)

	now := time.Now().UTC().Truncate(time.Second)
	repo.ModifiedAt = &now

	if err := s.put(ctx, s.key(id), repo); err != nil {
		return nil, err
	}

	return repo, nil
}

// Delete removes the repo with the given id
func (s *S3Repository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	key := s.key(id)

	log.Debugf("deleting repo object from s3: %s/%s", s.Bucket, key)

	// deleting a missing object succeeds in s3, check first so the API can 404
	if _, err := s.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		msg := fmt.Sprintf("repo %s not found", id)
		return apierror.New(apierror.ErrNotFound, msg, err)
	}

	if _, err := s.S3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		msg := fmt.Sprintf("failed to delete s3 repo object: %s/%s", s.Bucket, key)
		return ErrCode(msg, err)
	}

	return nil
}

// Stats summarizes the stored repos by language and status
func (s *S3Repository) Stats(ctx context.Context) (*star.Stats, error) {
	all, err := s.List(ctx, star.Filter{})
	if err != nil {
		return nil, err
	}

	stats := &star.Stats{
		TotalRepos: len(all),
		ByLanguage: map[string]int{},
		ByStatus:   map[string]int{},
	}

	for _, repo := range all {
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
func (s *S3Repository) Tags(ctx context.Context) ([]string, error) {
	all, err := s.List(ctx, star.Filter{})
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, repo := range all {
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

func (s *S3Repository) put(ctx context.Context, key string, repo *star.Repo) error {
	j, err := json.Marshal(repo)
	if err != nil {
		msg := fmt.Sprintf("failed to marshal repo object: %s/%s", s.Bucket, key)
		return apierror.New(apierror.ErrInternalError, msg, err)
	}

	if _, err := s.S3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(j),
		ContentType: aws.String("application/json"),
	}); err != nil {
		msg := fmt.Sprintf("failed to put s3 repo object: %s/%s", s.Bucket, key)
		return ErrCode(msg, err)
	}

	return nil
}
