package memoryrepository

import (
	"context"
	"reflect"
	"testing"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/YaleSpinup/stars-api/star"
)

func strPtr(s string) *string {
	return &s
}

func testRepos() map[string]*star.Repo {
	return map[string]*star.Repo{
		"2D24607A-38DD-4E11-8A83-5F317ADA24F1": {
			URL:         "https://github.com/gorilla/mux",
			Name:        "mux",
			Description: "A powerful HTTP router",
			Language:    "Go",
			Tags:        []string{"http", "router"},
			Status:      "using",
			Priority:    "high",
		},
		"8B7842E1-9032-4C8B-942E-B58FBA8E5744": {
			URL:         "https://github.com/tiangolo/fastapi",
			Name:        "fastapi",
			Description: "FastAPI framework, high performance",
			Language:    "Python",
			Tags:        []string{"http", "framework"},
			Status:      "to-try",
			Priority:    "medium",
		},
		"C00925D6-2EEF-4FB6-AEF1-87152613222C": {
			URL:  "https://github.com/torvalds/linux",
			Name: "linux",
		},
	}
}

func seededRepository(t *testing.T) *MemoryRepository {
	m := New()
	for id, repo := range testRepos() {
		if _, err := m.Create(context.TODO(), id, repo); err != nil {
			t.Fatalf("failed to seed repo %s: %s", id, err)
		}
	}
	return m
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	if err == nil {
		t.Errorf("expected %s error, got nil", code)
		return
	}

	aerr, ok := err.(apierror.Error)
	if !ok {
		t.Errorf("expected apierror.Error, got: %s", reflect.TypeOf(err).String())
		return
	}

	if aerr.Code != code {
		t.Errorf("expected error code %s, got: %s", code, aerr.Code)
	}
}

func TestCreate(t *testing.T) {
	m := New()
	id := "2D24607A-38DD-4E11-8A83-5F317ADA24F1"

	out, err := m.Create(context.TODO(), id, &star.Repo{URL: "https://github.com/gorilla/mux", Name: "mux"})
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	if out.ID != id {
		t.Errorf("expected id %s, got %s", id, out.ID)
	}

	if out.CreatedAt == nil || out.ModifiedAt == nil {
		t.Error("expected created_at and modified_at to be set")
	}

	// test duplicate id
	_, err = m.Create(context.TODO(), id, &star.Repo{URL: "https://github.com/gorilla/mux"})
	assertErrorCode(t, err, apierror.ErrConflict)

	// test empty id
	_, err = m.Create(context.TODO(), "", &star.Repo{URL: "https://github.com/gorilla/mux"})
	assertErrorCode(t, err, apierror.ErrBadRequest)

	// test nil repo
	_, err = m.Create(context.TODO(), id, nil)
	assertErrorCode(t, err, apierror.ErrBadRequest)
}

func TestGet(t *testing.T) {
	m := seededRepository(t)

	got, err := m.Get(context.TODO(), "2D24607A-38DD-4E11-8A83-5F317ADA24F1")
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	if got.Name != "mux" {
		t.Errorf("expected name 'mux', got '%s'", got.Name)
	}

	// mutating the returned repo must not change the stored one
	got.Tags[0] = "mangled"
	again, err := m.Get(context.TODO(), "2D24607A-38DD-4E11-8A83-5F317ADA24F1")
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}
	if again.Tags[0] != "http" {
		t.Errorf("expected stored tags to be unchanged, got %+v", again.Tags)
	}

	// test missing id
	_, err = m.Get(context.TODO(), "are-you-there")
	assertErrorCode(t, err, apierror.ErrNotFound)

	// test empty id
	_, err = m.Get(context.TODO(), "")
	assertErrorCode(t, err, apierror.ErrBadRequest)
}

func TestList(t *testing.T) {
	m := seededRepository(t)

	type test struct {
		filter star.Filter
		count  int
	}

	tests := []test{
		{star.Filter{}, 3},
		{star.Filter{Language: "go"}, 1},
		{star.Filter{Language: "Python"}, 1},
		{star.Filter{Language: "rust"}, 0},
		{star.Filter{Tag: "HTTP"}, 2},
		{star.Filter{Tag: "router"}, 1},
		{star.Filter{Status: "using"}, 1},
		{star.Filter{Language: "python", Tag: "framework", Status: "to-try"}, 1},
		{star.Filter{Language: "python", Status: "using"}, 0},
	}

	for _, tst := range tests {
		repos, err := m.List(context.TODO(), tst.filter)
		if err != nil {
			t.Errorf("expected nil error, got: %s", err)
		}
		if len(repos) != tst.count {
			t.Errorf("expected %d repos for filter %+v, got %d", tst.count, tst.filter, len(repos))
		}
	}
}

func TestSearch(t *testing.T) {
	m := seededRepository(t)

	type test struct {
		query string
		count int
	}

	tests := []test{
		{"mux", 1},
		{"fast", 1},
		{"http", 2},
		{"HTTP", 2},
		{"linux", 1},
		{"nothing-here", 0},
	}

	for _, tst := range tests {
		repos, err := m.Search(context.TODO(), tst.query)
		if err != nil {
			t.Errorf("expected nil error, got: %s", err)
		}
		if len(repos) != tst.count {
			t.Errorf("expected %d repos for query '%s', got %d", tst.count, tst.query, len(repos))
		}
	}

	// test empty query
	_, err := m.Search(context.TODO(), "")
	assertErrorCode(t, err, apierror.ErrBadRequest)
}

func TestUpdate(t *testing.T) {
	m := seededRepository(t)
	id := "2D24607A-38DD-4E11-8A83-5F317ADA24F1"

	update := &star.RepoUpdate{
		Notes:  strPtr("rock solid"),
		Status: strPtr("tried"),
		Tags:   []string{"http"},
	}

	got, err := m.Update(context.TODO(), id, update)
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	if got.Notes != "rock solid" {
		t.Errorf("expected notes 'rock solid', got '%s'", got.Notes)
	}

	if got.Status != "tried" {
		t.Errorf("expected status 'tried', got '%s'", got.Status)
	}

	if !reflect.DeepEqual(got.Tags, []string{"http"}) {
		t.Errorf("expected tags to be replaced, got %+v", got.Tags)
	}

	// untouched fields survive
	if got.Name != "mux" {
		t.Errorf("expected name 'mux', got '%s'", got.Name)
	}

	// test missing id
	_, err = m.Update(context.TODO(), "are-you-there", update)
	assertErrorCode(t, err, apierror.ErrNotFound)

	// test empty id
	_, err = m.Update(context.TODO(), "", update)
	assertErrorCode(t, err, apierror.ErrBadRequest)

	// test nil update
	_, err = m.Update(context.TODO(), id, nil)
	assertErrorCode(t, err, apierror.ErrBadRequest)
}

func TestDelete(t *testing.T) {
	m := seededRepository(t)
	id := "2D24607A-38DD-4E11-8A83-5F317ADA24F1"

	if err := m.Delete(context.TODO(), id); err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	_, err := m.Get(context.TODO(), id)
	assertErrorCode(t, err, apierror.ErrNotFound)

	// test deleting again
	err = m.Delete(context.TODO(), id)
	assertErrorCode(t, err, apierror.ErrNotFound)

	// test empty id
	err = m.Delete(context.TODO(), "")
	assertErrorCode(t, err, apierror.ErrBadRequest)
}

func TestStats(t *testing.T) {
	m := seededRepository(t)

	stats, err := m.Stats(context.TODO())
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	expected := &star.Stats{
		TotalRepos: 3,
		ByLanguage: map[string]int{"Go": 1, "Python": 1, "Unknown": 1},
		ByStatus:   map[string]int{"using": 1, "to-try": 1, "unknown": 1},
	}

	if !reflect.DeepEqual(stats, expected) {
		t.Errorf("expected: %+v, got: %+v", expected, stats)
	}
}

func TestTags(t *testing.T) {
	m := seededRepository(t)

	tags, err := m.Tags(context.TODO())
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	expected := []string{"framework", "http", "router"}
	if !reflect.DeepEqual(tags, expected) {
		t.Errorf("expected: %+v, got: %+v", expected, tags)
	}
}

func TestEvents(t *testing.T) {
	m := New()
	repoID := "2D24607A-38DD-4E11-8A83-5F317ADA24F1"

	err := m.CreateEvent(context.TODO(), &star.Event{RepoID: repoID, Action: star.ActionCreated, Message: "repo created"})
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	err = m.CreateEvent(context.TODO(), &star.Event{RepoID: repoID, Action: star.ActionUpdated, Message: "repo updated"})
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	events, err := m.ListEvents(context.TODO(), repoID)
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].Action != star.ActionCreated || events[1].Action != star.ActionUpdated {
		t.Errorf("expected events in insertion order, got %+v", events)
	}

	if events[0].ID == events[1].ID {
		t.Error("expected unique event ids")
	}

	if events[0].CreatedAt == nil {
		t.Error("expected event created_at to be set")
	}

	// events for an unknown repo are an empty list
	events, err = m.ListEvents(context.TODO(), "are-you-there")
	if err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}

	// test bad input
	err = m.CreateEvent(context.TODO(), nil)
	assertErrorCode(t, err, apierror.ErrBadRequest)

	err = m.CreateEvent(context.TODO(), &star.Event{Action: star.ActionCreated})
	assertErrorCode(t, err, apierror.ErrBadRequest)

	_, err = m.ListEvents(context.TODO(), "")
	assertErrorCode(t, err, apierror.ErrBadRequest)
}
