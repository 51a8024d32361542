package types

import "fmt"

// Platform identifies an external social platform a user can link
type Platform string

const (
	// PlatformFacebook links Facebook Pages through Facebook Login
	PlatformFacebook Platform = "facebook"
	// PlatformInstagramBusiness links Instagram business accounts attached to Facebook Pages
	PlatformInstagramBusiness Platform = "instagram_business"
	// PlatformInstagram links an Instagram account through a long-lived token provisioned out-of-band
	PlatformInstagram Platform = "instagram"
)

// AllPlatforms returns all supported platforms
func AllPlatforms() []Platform {
	return []Platform{
		PlatformFacebook,
		PlatformInstagramBusiness,
		PlatformInstagram,
	}
}

// IsValid checks if the platform is supported
func (p Platform) IsValid() bool {
	switch p {
	case PlatformFacebook,
		PlatformInstagramBusiness,
		PlatformInstagram:
		return true
	default:
		return false
	}
}

// IsInteractive reports whether the platform is linked through an interactive OAuth consent screen
func (p Platform) IsInteractive() bool {
	return p == PlatformFacebook || p == PlatformInstagramBusiness
}

// IsTwoPhase reports whether publishing requires container creation followed by a confirmation call
func (p Platform) IsTwoPhase() bool {
	return p == PlatformInstagramBusiness || p == PlatformInstagram
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// ParsePlatform parses a string into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid platform: %s", s)
	}
	return p, nil
}
