// Package identity wraps the GitHub identity provider. It yields the identity
// facts the intake flow needs (numeric user id, username, verified emails)
// and the repository signals behind judge eligibility and submission-repo
// provisioning.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Identity is the set of facts the provider asserts about an authenticated
// account.
type Identity struct {
	GitHubID int64    `json:"githubId"`
	Username string   `json:"username"`
	Emails   []string `json:"emails"` // verified addresses, primary first
}

// Config carries the OAuth app credentials plus the app-level token used for
// repository provisioning.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	APIToken     string // app-level token for provisioning calls
	Owner        string // account owning the submission repositories
}

// Client performs the OAuth code exchange and the GitHub REST calls the core
// depends on. Repository counts are cached briefly: a form redisplay after a
// validation failure should not re-pay the API call.
type Client struct {
	oauth   *oauth2.Config
	api     *http.Client // authenticated with the app-level token
	apiBase string
	owner   string
	cache   *gocache.Cache
}

const repoCountTTL = 5 * time.Minute

func NewClient(cfg Config) *Client {
	api := http.DefaultClient
	if cfg.APIToken != "" {
		api = oauth2.NewClient(context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken}))
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		api:     api,
		apiBase: "https://api.github.com",
		owner:   cfg.Owner,
		cache:   gocache.New(repoCountTTL, 10*time.Minute),
	}
}

// AuthURL returns the GitHub authorization URL for the given CSRF state.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the applicant's identity facts.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("identity: exchanging OAuth code: %w", err)
	}

	client := c.oauth.Client(ctx, token)

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	if err := c.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, fmt.Errorf("identity: provider returned an invalid user (id = 0)")
	}

	emails, err := c.verifiedEmails(ctx, client)
	if err != nil {
		return nil, err
	}

	return &Identity{
		GitHubID: profile.ID,
		Username: profile.Login,
		Emails:   emails,
	}, nil
}

// verifiedEmails returns the account's verified addresses, primary first.
func (c *Client) verifiedEmails(ctx context.Context, client *http.Client) ([]string, error) {
	var entries []struct {
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
		Primary  bool   `json:"primary"`
	}
	if err := c.getJSON(ctx, client, "/user/emails", &entries); err != nil {
		return nil, err
	}

	var emails []string
	for _, e := range entries {
		if !e.Verified {
			continue
		}
		if e.Primary {
			emails = append([]string{e.Email}, emails...)
		} else {
			emails = append(emails, e.Email)
		}
	}
	return emails, nil
}

// RepositoryCount returns how many repositories the account owns. This is
// the eligibility signal for judge applications (count > 0).
func (c *Client) RepositoryCount(ctx context.Context, username string) (int, error) {
	if cached, ok := c.cache.Get(username); ok {
		return cached.(int), nil
	}

	var repos []struct {
		Name string `json:"name"`
	}
	path := fmt.Sprintf("/users/%s/repos?per_page=100&type=owner", username)
	if err := c.getJSON(ctx, c.api, path, &repos); err != nil {
		return 0, err
	}

	c.cache.Set(username, len(repos), gocache.DefaultExpiration)
	return len(repos), nil
}

// CreateRepo creates a submission repository under the configured owner.
func (c *Client) CreateRepo(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]any{
		"name":        name,
		"private":     true,
		"auto_init":   true,
		"description": "Submission repository",
	})
	if err != nil {
		return fmt.Errorf("identity: encoding repo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/user/repos", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("identity: building repo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("identity: creating repo %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("identity: creating repo %s: status %d", name, resp.StatusCode)
	}
	return nil
}

// AddCollaborator grants the user push access to a submission repository.
func (c *Client) AddCollaborator(ctx context.Context, repo, username string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/collaborators/%s", c.apiBase, c.owner, repo, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return fmt.Errorf("identity: building collaborator request: %w", err)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("identity: adding collaborator %s to %s: %w", username, repo, err)
	}
	defer resp.Body.Close()

	// 201 = invitation created, 204 = already a collaborator.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("identity: adding collaborator %s to %s: status %d", username, repo, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("identity: building request for %s: %w", path, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("identity: calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("identity: decoding %s response: %w", path, err)
	}
	return nil
}
