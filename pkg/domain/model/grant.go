package model

import "time"

// Claim names carried by signed session and impersonation tokens
const (
	ClaimRole         = "role"
	ClaimImpersonated = "impersonated"
	ClaimActor        = "act"
)

// RoleUser is the fixed role claim for end-user sessions, impersonated or not
const RoleUser = "user"

// Grant is a signed, time-bound credential letting an operator act as a user.
// It is returned once and never persisted.
type Grant struct {
	ID           string
	Token        string `masq:"secret"`
	UserID       string
	Role         string
	Impersonated bool
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Session is the verified identity attached to a request
type Session struct {
	UserID       string
	Role         string
	Impersonated bool
	ExpiresAt    time.Time
}
