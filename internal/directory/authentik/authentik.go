// Package authentik implements directory.Provider on the Authentik core API.
package authentik

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory"
)

const defaultPageSize = 100

var apiSegment = regexp.MustCompile(`/api(/|$)`)

// Provider talks to one Authentik instance.
type Provider struct {
	base     string
	client   *http.Client
	pageSize int
}

var _ directory.Provider = (*Provider)(nil)

// New authenticates with the static API token, or with the OAuth2 client
// credentials grant when no token is configured.
func New(ctx context.Context, cfg config.Authentik) *Provider {
	base := APIBase(cfg.URL)

	var client *http.Client

	if cfg.Token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	} else {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = strings.TrimSuffix(apiSegment.Split(base, 2)[0], "/") + "/application/o/token/"
		}

		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{"goauthentik.io/api"},
		}
		client = cc.Client(ctx)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Provider{base: base, client: client, pageSize: pageSize}
}

// APIBase appends /api/v3 unless the url already points into the API.
func APIBase(raw string) string {
	u := strings.TrimSuffix(raw, "/")
	if apiSegment.MatchString(u) {
		return u
	}

	return u + "/api/v3"
}

type (
	pagination struct {
		Next float64 `json:"next"`
	}

	user struct {
		PK       int    `json:"pk"`
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		IsActive bool   `json:"is_active"`
	}

	group struct {
		PK       string `json:"pk"`
		Name     string `json:"name"`
		Users    []int  `json:"users"`
		UsersObj []struct {
			PK int `json:"pk"`
		} `json:"users_obj"`
	}

	userPage struct {
		Pagination pagination `json:"pagination"`
		Results    []user     `json:"results"`
	}

	groupPage struct {
		Results []group `json:"results"`
	}

	userAccountRequest struct {
		PK int `json:"pk"`
	}
)

// Users lists all accounts, following pagination.
func (p *Provider) Users(ctx context.Context) ([]directory.User, error) {
	var out []directory.User

	for page := 1; page > 0; {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(p.pageSize))

		var resp userPage
		if err := p.do(ctx, "list users", http.MethodGet, "/core/users/?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}

		for _, u := range resp.Results {
			out = append(out, directory.User{
				ID:       strconv.Itoa(u.PK),
				Username: u.Username,
				Name:     u.Name,
				Email:    u.Email,
				Active:   u.IsActive,
			})
		}

		page = int(resp.Pagination.Next)
	}

	return out, nil
}

// GroupByName looks the group up by exact name.
func (p *Provider) GroupByName(ctx context.Context, name string) (directory.Group, error) {
	q := url.Values{}
	q.Set("name", name)

	var resp groupPage
	if err := p.do(ctx, "get group", http.MethodGet, "/core/groups/?"+q.Encode(), nil, &resp); err != nil {
		return directory.Group{}, err
	}

	for _, g := range resp.Results {
		if g.Name == name {
			return directory.Group{ID: g.PK, Name: g.Name}, nil
		}
	}

	return directory.Group{}, fmt.Errorf("%w: %s", directory.ErrGroupNotFound, name)
}

// CreateGroup creates a group without members.
func (p *Provider) CreateGroup(ctx context.Context, name string) (directory.Group, error) {
	var g group
	if err := p.do(ctx, "create group", http.MethodPost, "/core/groups/", map[string]string{"name": name}, &g); err != nil {
		return directory.Group{}, err
	}

	return directory.Group{ID: g.PK, Name: g.Name}, nil
}

// GroupMembers returns the user pks of all members.
func (p *Provider) GroupMembers(ctx context.Context, g directory.Group) ([]string, error) {
	var full group

	path := "/core/groups/" + url.PathEscape(g.ID) + "/?include_users=true"
	if err := p.do(ctx, "list members", http.MethodGet, path, nil, &full); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(full.Users))

	if len(full.Users) > 0 {
		for _, pk := range full.Users {
			ids = append(ids, strconv.Itoa(pk))
		}

		return ids, nil
	}

	for _, u := range full.UsersObj {
		ids = append(ids, strconv.Itoa(u.PK))
	}

	return ids, nil
}

// AddUser adds the user with pk studentID.
func (p *Provider) AddUser(ctx context.Context, g directory.Group, studentID string) error {
	return p.membership(ctx, "add user", "add_user", g, studentID)
}

// RemoveUser removes the user with pk studentID.
func (p *Provider) RemoveUser(ctx context.Context, g directory.Group, studentID string) error {
	return p.membership(ctx, "remove user", "remove_user", g, studentID)
}

func (p *Provider) membership(ctx context.Context, op, action string, g directory.Group, studentID string) error {
	pk, err := strconv.Atoi(studentID)
	if err != nil {
		return fmt.Errorf("%w: %q is not an authentik user pk", directory.ErrInvalidStudentID, studentID)
	}

	path := "/core/groups/" + url.PathEscape(g.ID) + "/" + action + "/"

	return p.do(ctx, op, http.MethodPost, path, userAccountRequest{PK: pk}, nil)
}

// do sends one request. Non 2xx answers become *directory.APIError.
func (p *Provider) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.base+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, directory.ErrUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return directory.NewAPIError(op, resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}
