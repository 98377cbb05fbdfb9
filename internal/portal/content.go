package portal

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

//go:embed content/*.yaml
var contentFS embed.FS

// Content is every static page model of the portal, loaded once at startup.
type Content struct {
	Catalog    *Catalog
	Landing    Landing
	Dashboards Dashboards
	Analytics  *Analytics
	Features   Features
	Download   Download
	Profile    ProfileDefaults
	Settings   *SettingsContent
}

type Stat struct {
	Name       string `yaml:"name" json:"name"`
	Value      string `yaml:"value" json:"value"`
	Change     string `yaml:"change" json:"change"`
	ChangeType string `yaml:"changeType" json:"changeType"`
}

type TitledText struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type Features struct {
	Items    []TitledText `yaml:"items" json:"features"`
	Benefits []TitledText `yaml:"benefits" json:"benefits"`
}

type Platform struct {
	Name         string   `yaml:"name" json:"name"`
	Action       string   `yaml:"action" json:"action"`
	Description  string   `yaml:"description" json:"description"`
	Requirements string   `yaml:"requirements" json:"requirements"`
	Steps        []string `yaml:"steps" json:"steps"`
}

type InstallTip struct {
	Platform string `yaml:"platform" json:"platform"`
	Hint     string `yaml:"hint" json:"hint"`
}

type NamedValue struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

type Download struct {
	Title     string     `yaml:"title" json:"title"`
	Subtitle  string     `yaml:"subtitle" json:"subtitle"`
	Platforms []Platform `yaml:"platforms" json:"platforms"`
	PWA       struct {
		Title       string       `yaml:"title" json:"title"`
		Description string       `yaml:"description" json:"description"`
		Tips        []InstallTip `yaml:"tips" json:"tips"`
	} `yaml:"pwa" json:"pwa"`
	Technical []NamedValue `yaml:"technical" json:"technical"`
}

type ProfileDefaults struct {
	Phone       string            `yaml:"phone"`
	Location    string            `yaml:"location"`
	JoinDate    string            `yaml:"joinDate"`
	Departments map[string]string `yaml:"departments"`
}

type pagesDocument struct {
	Features Features         `yaml:"features"`
	Download Download         `yaml:"download"`
	Profile  ProfileDefaults  `yaml:"profile"`
	Settings *SettingsContent `yaml:"settings"`
}

// LoadContent parses the embedded content documents.
func LoadContent() (*Content, error) {
	return loadContent(contentFS)
}

func loadContent(fsys fs.FS) (*Content, error) {
	c := &Content{}

	catalog := &Catalog{}
	if err := decode(fsys, "content/apps.yaml", catalog); err != nil {
		return nil, err
	}
	if err := catalog.validate(); err != nil {
		return nil, fmt.Errorf("apps: %w", err)
	}
	c.Catalog = catalog

	if err := decode(fsys, "content/landing.yaml", &c.Landing); err != nil {
		return nil, err
	}
	for _, service := range c.Landing.Services {
		if _, ok := catalog.Find(service.AppID); !ok {
			return nil, fmt.Errorf("landing: service refers to unknown app [%d]", service.AppID)
		}
	}

	if err := decode(fsys, "content/dashboard.yaml", &c.Dashboards); err != nil {
		return nil, err
	}

	analytics := &Analytics{}
	if err := decode(fsys, "content/analytics.yaml", analytics); err != nil {
		return nil, err
	}
	if err := analytics.validate(); err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	c.Analytics = analytics

	pages := &pagesDocument{}
	if err := decode(fsys, "content/pages.yaml", pages); err != nil {
		return nil, err
	}
	if pages.Settings == nil {
		return nil, fmt.Errorf("pages: settings missing")
	}
	if err := pages.Settings.Defaults.System.Validate(pages.Settings.SystemOptions); err != nil {
		return nil, fmt.Errorf("pages: default system settings: %w", err)
	}
	c.Features = pages.Features
	c.Download = pages.Download
	c.Profile = pages.Profile
	c.Settings = pages.Settings

	return c, nil
}

func decode(fsys fs.FS, name string, out any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
