package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/graph"
)

// PlatformFile is the optional TOML file that overrides Graph API defaults.
//
//	api_version = "v23.0"
//
//	[platforms.facebook]
//	scopes = ["pages_show_list", "pages_manage_posts"]
//
//	[platforms.instagram_business]
//	scopes = ["instagram_basic", "instagram_content_publish"]
type PlatformFile struct {
	APIVersion string                       `toml:"api_version"`
	GraphURL   string                       `toml:"graph_url"`
	Platforms  map[string]PlatformOverrides `toml:"platforms"`
}

// PlatformOverrides holds per-platform settings
type PlatformOverrides struct {
	Scopes []string `toml:"scopes"`
}

// LoadPlatformFile reads and validates a platform TOML file
func LoadPlatformFile(path string) (*PlatformFile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from an operator flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "platform config file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read platform config file", goerr.V(ConfigPathKey, path))
	}

	var file PlatformFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse platform config file",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid platform config file", goerr.V(ConfigPathKey, path))
	}
	return &file, nil
}

// Validate rejects unknown or non-interactive platforms and empty scope lists
func (f *PlatformFile) Validate() error {
	for name, p := range f.Platforms {
		platform := types.Platform(name)
		if !platform.IsInteractive() {
			return goerr.Wrap(ErrInvalidConfig, "platform does not accept scope overrides", goerr.V(PlatformKey, name))
		}
		if len(p.Scopes) == 0 {
			return goerr.Wrap(ErrInvalidConfig, "scopes must not be empty", goerr.V(PlatformKey, name))
		}
	}
	return nil
}

// GraphOptions converts the file into Graph service options
func (f *PlatformFile) GraphOptions() []graph.Option {
	var opts []graph.Option
	if f.APIVersion != "" {
		opts = append(opts, graph.WithAPIVersion(f.APIVersion))
	}
	if f.GraphURL != "" {
		opts = append(opts, graph.WithGraphURL(f.GraphURL))
	}
	for name, p := range f.Platforms {
		opts = append(opts, graph.WithScopes(types.Platform(name), p.Scopes))
	}
	return opts
}
