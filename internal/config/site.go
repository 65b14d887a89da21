package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds presentation settings that rarely change between deploys.
type SiteConfig struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Language    string           `yaml:"language"`
	LogoURL     string           `yaml:"logo_url"`
	Timezone    string           `yaml:"timezone"`
	Comments    CommentsConfig   `yaml:"comments"`
	Navigation  NavigationConfig `yaml:"navigation"`
	Feed        FeedConfig       `yaml:"feed"`
}

// CommentsConfig configures the utterances widget on post pages.
// An empty Repo disables the widget.
type CommentsConfig struct {
	Repo      string `yaml:"repo"`
	IssueTerm string `yaml:"issue_term"`
	Label     string `yaml:"label"`
	Theme     string `yaml:"theme"`
}

// NavigationConfig holds the orderings used to look up neighbouring posts.
type NavigationConfig struct {
	PreviousOrdering string `yaml:"previous_ordering"`
	NextOrdering     string `yaml:"next_ordering"`
}

type FeedConfig struct {
	MaxItems int `yaml:"max_items"`
}

// DefaultSite returns the settings used when no site file exists.
func DefaultSite() SiteConfig {
	site := SiteConfig{}
	site.setDefaults()
	return site
}

// LoadSite parses the YAML site file at path. A missing file yields defaults.
func LoadSite(path string) (SiteConfig, error) {
	site := SiteConfig{}
	path = strings.TrimSpace(path)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &site); err != nil {
				return SiteConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return SiteConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	site.setDefaults()
	return site, nil
}

func (s *SiteConfig) setDefaults() {
	if strings.TrimSpace(s.Name) == "" {
		s.Name = "spacetraveling"
	}
	if strings.TrimSpace(s.Language) == "" {
		s.Language = "pt-BR"
	}
	if strings.TrimSpace(s.LogoURL) == "" {
		s.LogoURL = "/static/images/logo.svg"
	}
	if s.Comments.IssueTerm == "" {
		s.Comments.IssueTerm = "pathname"
	}
	if s.Comments.Label == "" {
		s.Comments.Label = "blog-comment"
	}
	if s.Comments.Theme == "" {
		s.Comments.Theme = "github-light"
	}
	// Previous orders by first publication date, next by last publication
	// date. See DESIGN.md before changing either default.
	if s.Navigation.PreviousOrdering == "" {
		s.Navigation.PreviousOrdering = "[document.first_publication_date]"
	}
	if s.Navigation.NextOrdering == "" {
		s.Navigation.NextOrdering = "[document.last_publication_date desc]"
	}
	if s.Feed.MaxItems <= 0 {
		s.Feed.MaxItems = 50
	}
	if strings.TrimSpace(s.Timezone) == "" {
		s.Timezone = "UTC"
	}
}

// Location returns the zone publication dates are displayed in. Unknown
// zones fall back to UTC.
func (s SiteConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}
