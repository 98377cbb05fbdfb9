package portal

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CategoryAll = "all"

	StatusActive      = "active"
	StatusMaintenance = "maintenance"
)

var ErrUnknownCategory = errors.New("unknown category")

type App struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Status      string `yaml:"status" json:"status"`
	Color       string `yaml:"color" json:"color"`
	URL         string `yaml:"url" json:"url,omitempty"`
}

// Launchable apps open an external site, the rest are placeholders.
func (a App) Launchable() bool {
	return a.URL != ""
}

type CatalogStats struct {
	Active        int `json:"active"`
	InMaintenance int `json:"inMaintenance"`
	Total         int `json:"total"`
}

type Catalog struct {
	Categories []string `yaml:"categories"`
	Apps       []App    `yaml:"apps"`
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 || c.Categories[0] != CategoryAll {
		return fmt.Errorf("first category must be [%s]", CategoryAll)
	}

	seen := make(map[int]bool, len(c.Apps))
	for _, app := range c.Apps {
		if seen[app.ID] {
			return fmt.Errorf("duplicate app id [%d]", app.ID)
		}
		seen[app.ID] = true

		if app.Title == "" {
			return fmt.Errorf("app [%d]: empty title", app.ID)
		}
		if !c.hasCategory(app.Category) || app.Category == CategoryAll {
			return fmt.Errorf("app [%d]: %w [%s]", app.ID, ErrUnknownCategory, app.Category)
		}
		if app.Status != StatusActive && app.Status != StatusMaintenance {
			return fmt.Errorf("app [%d]: invalid status [%s]", app.ID, app.Status)
		}
	}
	return nil
}

func (c *Catalog) hasCategory(category string) bool {
	for _, known := range c.Categories {
		if known == category {
			return true
		}
	}
	return false
}

// Filter returns apps whose title or description contains search (case
// insensitive) within the category. Empty category means all.
func (c *Catalog) Filter(search, category string) ([]App, error) {
	if category == "" {
		category = CategoryAll
	}
	if !c.hasCategory(category) {
		return nil, fmt.Errorf("%w [%s]", ErrUnknownCategory, category)
	}

	search = strings.ToLower(strings.TrimSpace(search))
	filtered := make([]App, 0, len(c.Apps))
	for _, app := range c.Apps {
		if category != CategoryAll && app.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(app.Title), search) &&
			!strings.Contains(strings.ToLower(app.Description), search) {
			continue
		}
		filtered = append(filtered, app)
	}
	return filtered, nil
}

func (c *Catalog) Find(id int) (App, bool) {
	for _, app := range c.Apps {
		if app.ID == id {
			return app, true
		}
	}
	return App{}, false
}

func (c *Catalog) Stats() CatalogStats {
	stats := CatalogStats{Total: len(c.Apps)}
	for _, app := range c.Apps {
		switch app.Status {
		case StatusActive:
			stats.Active++
		case StatusMaintenance:
			stats.InMaintenance++
		}
	}
	return stats
}
