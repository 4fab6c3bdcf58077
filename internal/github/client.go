// Package github looks up public users and repositories for the
// /github command.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrNotFound = errors.New("github: not found")

type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"created_at"`
}

type Repository struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	OpenIssues  int    `json:"open_issues_count"`
	License     *struct {
		Name string `json:"name"`
	} `json:"license"`
	UpdatedAt string `json:"updated_at"`
}

func (c *Client) GetUser(ctx context.Context, login string) (User, error) {
	var user User
	err := c.get(ctx, "/users/"+url.PathEscape(login), &user)
	return user, err
}

func (c *Client) GetRepository(ctx context.Context, owner, name string) (Repository, error) {
	var repo Repository
	err := c.get(ctx, "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(name), &repo)
	return repo, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("github: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
