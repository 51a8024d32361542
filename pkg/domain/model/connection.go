package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// ConnectionID is the storage key of a Connection. It is derived from
// (UserID, Platform, ExternalAccountID) so re-linking the same account replaces the record.
type ConnectionID string

var connectionNamespace = uuid.MustParse("6f1d3c52-8a0e-4c3a-9f5e-1b7a2d4e9c10")

// NewConnectionID returns the deterministic ConnectionID for the unique key
func NewConnectionID(userID string, platform types.Platform, externalAccountID string) ConnectionID {
	key := strings.Join([]string{userID, platform.String(), externalAccountID}, "\x00")
	return ConnectionID(uuid.NewSHA1(connectionNamespace, []byte(key)).String())
}

func (id ConnectionID) String() string {
	return string(id)
}

// Connection represents one linked external account and its access credential
type Connection struct {
	ID                  ConnectionID
	UserID              string
	Platform            types.Platform
	ExternalAccountID   string
	ExternalAccountName string
	AccessToken         string `masq:"secret"`
	LinkedAccountID     string // e.g. the Facebook Page an Instagram business account is attached to
	TokenExpiresAt      time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewConnection builds a Connection with its key-derived ID
func NewConnection(userID string, platform types.Platform, externalAccountID, name, accessToken string, now time.Time) *Connection {
	return &Connection{
		ID:                  NewConnectionID(userID, platform, externalAccountID),
		UserID:              userID,
		Platform:            platform,
		ExternalAccountID:   externalAccountID,
		ExternalAccountName: name,
		AccessToken:         accessToken,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Validate checks required fields and that ID matches the unique key
func (c *Connection) Validate() error {
	if c.UserID == "" {
		return goerr.Wrap(ErrMissingRequired, "user ID is required")
	}
	if !c.Platform.IsValid() {
		return goerr.New("invalid platform", goerr.V("platform", c.Platform))
	}
	if c.ExternalAccountID == "" {
		return goerr.Wrap(ErrMissingRequired, "external account ID is required", goerr.V("user_id", c.UserID))
	}
	if c.AccessToken == "" {
		return goerr.Wrap(ErrMissingRequired, "access token is required",
			goerr.V("user_id", c.UserID), goerr.V("external_account_id", c.ExternalAccountID))
	}
	if c.ID != NewConnectionID(c.UserID, c.Platform, c.ExternalAccountID) {
		return goerr.New("connection ID does not match its key", goerr.V("id", c.ID))
	}
	return nil
}

// ConnectionSummary is the client-facing view of a Connection. It never carries the credential.
type ConnectionSummary struct {
	Platform            types.Platform `json:"platform"`
	ExternalAccountID   string         `json:"account_id"`
	ExternalAccountName string         `json:"name"`
	Connected           bool           `json:"connected"`
}

// Summary returns the client-facing view
func (c *Connection) Summary() ConnectionSummary {
	return ConnectionSummary{
		Platform:            c.Platform,
		ExternalAccountID:   c.ExternalAccountID,
		ExternalAccountName: c.ExternalAccountName,
		Connected:           c.AccessToken != "",
	}
}

// PendingToken is a user-scoped token retained after a successful code exchange whose
// account discovery has not completed yet
type PendingToken struct {
	UserID      string
	Platform    types.Platform
	AccessToken string `masq:"secret"`
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// ConnectResult is the outcome of an authorization callback
type ConnectResult struct {
	UserID      string
	Platform    types.Platform
	Connections []*Connection
}

// TokenRotation replaces the credential of an existing connection. It applies
// only while the stored token still equals Previous.
type TokenRotation struct {
	ID          ConnectionID
	Previous    string `masq:"secret"`
	AccessToken string `masq:"secret"`
	ExpiresAt   time.Time
	UpdatedAt   time.Time
}
