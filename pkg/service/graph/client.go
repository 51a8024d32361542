package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/utils/safe"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// Defaults for the Meta endpoints
const (
	DefaultAPIVersion   = "v23.0"
	DefaultGraphURL     = "https://graph.facebook.com"
	DefaultInstagramURL = "https://graph.instagram.com"
	DefaultDialogURL    = "https://www.facebook.com"
	DefaultTimeout      = 10 * time.Second

	maxResponseSize     = 1 << 20
	maxListPages        = 50
	discoveryConcurrent = 4
)

// DefaultScopes returns the consent scopes requested per interactive platform
func DefaultScopes(platform types.Platform) []string {
	switch platform {
	case types.PlatformFacebook:
		return []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts", "business_management"}
	case types.PlatformInstagramBusiness:
		return []string{"instagram_basic", "instagram_content_publish", "pages_show_list", "pages_read_engagement", "business_management"}
	default:
		return nil
	}
}

var (
	// ErrMissingToken is returned when the provider answers without an access token
	ErrMissingToken = goerr.New("provider returned no access token")

	// ErrTooManyPages is returned when a paged listing does not end within the page limit
	ErrTooManyPages = goerr.New("paged listing exceeded page limit")
)

type client struct {
	appID        string
	appSecret    string
	redirectBase string
	apiVersion   string
	graphURL     string
	instagramURL string
	dialogURL    string
	timeout      time.Duration
	httpClient   *http.Client
	scopes       map[types.Platform][]string
}

type Option func(*client)

func WithAPIVersion(v string) Option {
	return func(c *client) { c.apiVersion = v }
}

func WithGraphURL(u string) Option {
	return func(c *client) { c.graphURL = strings.TrimRight(u, "/") }
}

func WithInstagramURL(u string) Option {
	return func(c *client) { c.instagramURL = strings.TrimRight(u, "/") }
}

func WithDialogURL(u string) Option {
	return func(c *client) { c.dialogURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithScopes overrides the consent scopes of a platform
func WithScopes(platform types.Platform, scopes []string) Option {
	return func(c *client) { c.scopes[platform] = scopes }
}

// New creates a Graph API service. redirectBase is the public base URL the
// provider redirects back to, e.g. https://app.example.com
func New(appID, appSecret, redirectBase string, opts ...Option) (Service, error) {
	if appID == "" || appSecret == "" {
		return nil, goerr.New("Meta app ID and secret are required")
	}

	c := &client{
		appID:        appID,
		appSecret:    appSecret,
		redirectBase: strings.TrimRight(redirectBase, "/"),
		apiVersion:   DefaultAPIVersion,
		graphURL:     DefaultGraphURL,
		instagramURL: DefaultInstagramURL,
		dialogURL:    DefaultDialogURL,
		timeout:      DefaultTimeout,
		httpClient:   http.DefaultClient,
		scopes: map[types.Platform][]string{
			types.PlatformFacebook:          DefaultScopes(types.PlatformFacebook),
			types.PlatformInstagramBusiness: DefaultScopes(types.PlatformInstagramBusiness),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) oauthConfig(platform types.Platform) (*oauth2.Config, error) {
	if !platform.IsInteractive() {
		return nil, goerr.New("platform has no consent flow", goerr.V("platform", platform))
	}
	return &oauth2.Config{
		ClientID:     c.appID,
		ClientSecret: c.appSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.dialogURL + "/" + c.apiVersion + "/dialog/oauth",
			TokenURL:  c.graphURL + "/" + c.apiVersion + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: c.redirectBase + "/api/connect/" + platform.String() + "/callback",
		Scopes:      c.scopes[platform],
	}, nil
}

func (c *client) AuthCodeURL(platform types.Platform, state string) (string, error) {
	cfg, err := c.oauthConfig(platform)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

func (c *client) Exchange(ctx context.Context, platform types.Platform, code string) (*Token, error) {
	cfg, err := c.oauthConfig(platform)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange authorization code", goerr.V("platform", platform))
	}
	if tok.AccessToken == "" {
		return nil, goerr.Wrap(ErrMissingToken, "empty access token", goerr.V("platform", platform))
	}
	return &Token{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

type pageNode struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	AccessToken              string `json:"access_token"`
	InstagramBusinessAccount *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"instagram_business_account"`
}

type pagedResponse struct {
	Data   []pageNode `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func (c *client) ListPages(ctx context.Context, userToken string) ([]*Page, error) {
	q := url.Values{}
	q.Set("fields", "id,name,access_token")
	q.Set("limit", "100")
	q.Set("access_token", userToken)

	next := c.graphURL + "/" + c.apiVersion + "/me/accounts?" + q.Encode()
	seen := map[string]bool{}
	var pages []*Page
	for next != "" {
		if len(seen) >= maxListPages || seen[next] {
			return nil, goerr.Wrap(ErrTooManyPages, "failed to list pages", goerr.V("requests", len(seen)))
		}
		seen[next] = true

		var resp pagedResponse
		if err := c.do(ctx, http.MethodGet, next, nil, &resp); err != nil {
			return nil, goerr.Wrap(err, "failed to list pages")
		}
		for _, node := range resp.Data {
			pages = append(pages, &Page{ID: node.ID, Name: node.Name, AccessToken: node.AccessToken})
		}
		next = resp.Paging.Next
	}
	return pages, nil
}

// ListInstagramAccounts lists pages first and then resolves each page's
// linked Instagram business account concurrently
func (c *client) ListInstagramAccounts(ctx context.Context, userToken string) ([]*InstagramAccount, error) {
	pages, err := c.ListPages(ctx, userToken)
	if err != nil {
		return nil, err
	}

	results := make([]*InstagramAccount, len(pages))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(discoveryConcurrent)
	for i, page := range pages {
		eg.Go(func() error {
			q := url.Values{}
			q.Set("fields", "instagram_business_account{id,username}")
			q.Set("access_token", page.AccessToken)

			var node pageNode
			endpoint := c.graphURL + "/" + c.apiVersion + "/" + url.PathEscape(page.ID) + "?" + q.Encode()
			if err := c.do(egCtx, http.MethodGet, endpoint, nil, &node); err != nil {
				return goerr.Wrap(err, "failed to get instagram business account", goerr.V("page_id", page.ID))
			}
			if node.InstagramBusinessAccount == nil || node.InstagramBusinessAccount.ID == "" {
				return nil
			}
			results[i] = &InstagramAccount{
				ID:          node.InstagramBusinessAccount.ID,
				Username:    node.InstagramBusinessAccount.Username,
				PageID:      page.ID,
				AccessToken: page.AccessToken,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var accounts []*InstagramAccount
	for _, acct := range results {
		if acct != nil {
			accounts = append(accounts, acct)
		}
	}
	return accounts, nil
}

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (c *client) CreatePost(ctx context.Context, pageID, pageToken string, content PostContent) (string, error) {
	form := url.Values{}
	form.Set("access_token", pageToken)
	edge := "feed"
	if content.ImageURL != "" {
		edge = "photos"
		form.Set("url", content.ImageURL)
	}
	if content.Caption != "" {
		form.Set("message", content.Caption)
	}

	var resp idResponse
	endpoint := c.graphURL + "/" + c.apiVersion + "/" + url.PathEscape(pageID) + "/" + edge
	if err := c.do(ctx, http.MethodPost, endpoint, form, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to create page post", goerr.V("page_id", pageID), goerr.V("edge", edge))
	}
	if resp.PostID != "" {
		return resp.PostID, nil
	}
	return resp.ID, nil
}

func (c *client) baseURL(platform types.Platform) string {
	if platform == types.PlatformInstagram {
		return c.instagramURL + "/" + c.apiVersion
	}
	return c.graphURL + "/" + c.apiVersion
}

func (c *client) CreateContainer(ctx context.Context, platform types.Platform, accountID, token string, content PostContent) (string, error) {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("image_url", content.ImageURL)
	if content.Caption != "" {
		form.Set("caption", content.Caption)
	}

	var resp idResponse
	endpoint := c.baseURL(platform) + "/" + url.PathEscape(accountID) + "/media"
	if err := c.do(ctx, http.MethodPost, endpoint, form, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to create media container",
			goerr.V("platform", platform), goerr.V("account_id", accountID))
	}
	if resp.ID == "" {
		return "", goerr.New("media container response has no id", goerr.V("account_id", accountID))
	}
	return resp.ID, nil
}

func (c *client) PublishContainer(ctx context.Context, platform types.Platform, accountID, token, containerID string) (string, error) {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("creation_id", containerID)

	var resp idResponse
	endpoint := c.baseURL(platform) + "/" + url.PathEscape(accountID) + "/media_publish"
	if err := c.do(ctx, http.MethodPost, endpoint, form, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to publish media container",
			goerr.V("platform", platform), goerr.V("account_id", accountID), goerr.V("container_id", containerID))
	}
	if resp.ID == "" {
		return "", goerr.New("media publish response has no id", goerr.V("container_id", containerID))
	}
	return resp.ID, nil
}

func (c *client) GetInstagramMe(ctx context.Context, token string) (*InstagramAccount, error) {
	q := url.Values{}
	q.Set("fields", "user_id,username")
	q.Set("access_token", token)

	var resp struct {
		ID       string `json:"id"`
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	endpoint := c.instagramURL + "/" + c.apiVersion + "/me?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to resolve instagram account")
	}

	id := resp.UserID
	if id == "" {
		id = resp.ID
	}
	if id == "" {
		return nil, goerr.New("instagram account response has no id")
	}
	return &InstagramAccount{ID: id, Username: resp.Username, AccessToken: token}, nil
}

func (c *client) RefreshInstagramToken(ctx context.Context, token string) (*Token, error) {
	q := url.Values{}
	q.Set("grant_type", "ig_refresh_token")
	q.Set("access_token", token)

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.do(ctx, http.MethodGet, c.instagramURL+"/refresh_access_token?"+q.Encode(), nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to refresh instagram token")
	}
	if resp.AccessToken == "" {
		return nil, goerr.Wrap(ErrMissingToken, "empty refreshed token")
	}

	tok := &Token{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// do performs one bounded request. The endpoint is never logged as it may carry a token.
func (c *client) do(ctx context.Context, method, endpoint string, form url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("method", method))
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return goerr.Wrap(ctxErr, "graph api request aborted", goerr.V("method", method))
		}
		return goerr.Wrap(err, "graph api request failed", goerr.V("method", method))
	}
	defer safe.Close(ctx, resp.Body)

	data, err := safe.ReadLimited(resp.Body, maxResponseSize)
	if err != nil {
		return goerr.Wrap(err, "failed to read graph api response", goerr.V("status", resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil {
			return goerr.Wrap(&APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)},
				"graph api returned error status", goerr.V("status", resp.StatusCode))
		}
		envelope.Error.StatusCode = resp.StatusCode
		return goerr.Wrap(envelope.Error, "graph api returned error",
			goerr.V("status", resp.StatusCode), goerr.V("code", envelope.Error.Code), goerr.V("trace_id", envelope.Error.TraceID))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return goerr.Wrap(err, "failed to decode graph api response", goerr.V("status", resp.StatusCode))
	}
	return nil
}
