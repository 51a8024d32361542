package graph

import (
	"context"
	"time"

	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// Service provides access to the Meta Graph API family (Facebook Login,
// Facebook Pages, Instagram business and Instagram Graph).
type Service interface {
	// AuthCodeURL returns the consent dialog URL for an interactive platform
	AuthCodeURL(platform types.Platform, state string) (string, error)

	// Exchange trades an authorization code for a user access token
	Exchange(ctx context.Context, platform types.Platform, code string) (*Token, error)

	// ListPages returns the Facebook Pages the user manages, each with its page token
	ListPages(ctx context.Context, userToken string) ([]*Page, error)

	// ListInstagramAccounts returns Instagram business accounts attached to the user's pages
	ListInstagramAccounts(ctx context.Context, userToken string) ([]*InstagramAccount, error)

	// CreatePost publishes to a Facebook Page in a single call
	CreatePost(ctx context.Context, pageID, pageToken string, content PostContent) (string, error)

	// CreateContainer creates an unpublished media container (two-phase step one)
	CreateContainer(ctx context.Context, platform types.Platform, accountID, token string, content PostContent) (string, error)

	// PublishContainer publishes a previously created container (two-phase step two)
	PublishContainer(ctx context.Context, platform types.Platform, accountID, token, containerID string) (string, error)

	// GetInstagramMe resolves the account owning a long-lived Instagram token
	GetInstagramMe(ctx context.Context, token string) (*InstagramAccount, error)

	// RefreshInstagramToken extends a long-lived Instagram token
	RefreshInstagramToken(ctx context.Context, token string) (*Token, error)
}

// Token is an access token issued by the provider
type Token struct {
	AccessToken string `masq:"secret"`
	ExpiresAt   time.Time
}

// Page is a Facebook Page the user can act on
type Page struct {
	ID          string
	Name        string
	AccessToken string `masq:"secret"`
}

// InstagramAccount is an Instagram account and, for business accounts, the page it is attached to
type InstagramAccount struct {
	ID          string
	Username    string
	PageID      string
	AccessToken string `masq:"secret"`
}

// PostContent is the payload of a publish call
type PostContent struct {
	ImageURL string
	Caption  string
}

// APIError is the error object returned by the Graph API
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	TraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return "graph api error: " + e.Message
}
