package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"login":"octocat","name":"The Octocat","public_repos":8,"followers":100}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "waterfall-test")
	user, err := client.GetUser(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Login != "octocat" || user.PublicRepos != 8 {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestGetRepositoryNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "waterfall-test")
	_, err := client.GetRepository(context.Background(), "nobody", "nothing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
