package portal

type LandingService struct {
	AppID    int      `yaml:"appId"`
	Features []string `yaml:"features"`
}

type Ad struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	CTAText     string `yaml:"ctaText" json:"ctaText"`
}

type Landing struct {
	Title       string           `yaml:"title"`
	Headline    string           `yaml:"headline"`
	Summary     string           `yaml:"summary"`
	ActiveUsers string           `yaml:"activeUsers"`
	Services    []LandingService `yaml:"services"`
	Highlights  []TitledText     `yaml:"highlights"`
	Ads         []Ad             `yaml:"ads"`
}

type ServiceCard struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	Features    []string `json:"features"`
}

type LandingStats struct {
	TotalServices  int    `json:"totalServices"`
	ActiveServices int    `json:"activeServices"`
	Categories     int    `json:"categories"`
	Users          string `json:"users"`
}

type LandingView struct {
	Title         string            `json:"title"`
	Headline      string            `json:"headline"`
	Summary       string            `json:"summary"`
	Categories    []string          `json:"categories"`
	Category      string            `json:"category"`
	Services      []ServiceCard     `json:"services"`
	Stats         LandingStats      `json:"stats"`
	Highlights    []TitledText      `json:"highlights"`
	Ads           []Ad              `json:"ads"`
	Authenticated bool              `json:"authenticated"`
	Links         map[string]string `json:"links"`
}

// LandingFor builds the public page, its services optionally narrowed to a category.
func (c *Content) LandingFor(category string, authenticated bool) (*LandingView, error) {
	if category == "" {
		category = CategoryAll
	}
	if !c.Catalog.hasCategory(category) {
		return nil, ErrUnknownCategory
	}

	view := &LandingView{
		Title:         c.Landing.Title,
		Headline:      c.Landing.Headline,
		Summary:       c.Landing.Summary,
		Categories:    c.Catalog.Categories,
		Category:      category,
		Services:      make([]ServiceCard, 0, len(c.Landing.Services)),
		Highlights:    c.Landing.Highlights,
		Ads:           c.Landing.Ads,
		Authenticated: authenticated,
		Links: map[string]string{
			"login":    "/login",
			"download": "/download",
		},
	}
	if authenticated {
		view.Links["dashboard"] = "/dashboard"
	}

	for _, service := range c.Landing.Services {
		app, _ := c.Catalog.Find(service.AppID)
		if app.Status == StatusActive {
			view.Stats.ActiveServices++
		}
		if category != CategoryAll && app.Category != category {
			continue
		}
		status := "Available"
		if app.Status != StatusActive {
			status = "Maintenance"
		}
		view.Services = append(view.Services, ServiceCard{
			ID:          app.ID,
			Title:       app.Title,
			Description: app.Description,
			Category:    app.Category,
			Status:      status,
			Features:    service.Features,
		})
	}
	view.Stats.TotalServices = len(c.Landing.Services)
	view.Stats.Categories = len(c.Catalog.Categories) - 1
	view.Stats.Users = c.Landing.ActiveUsers

	return view, nil
}
