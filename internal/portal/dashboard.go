package portal

import (
	"strings"
	"time"

	"github.com/2beens/clientportal/internal/activity"
	"github.com/2beens/clientportal/internal/auth"
)

const (
	ActivitySourceLive   = "live"
	ActivitySourceSample = "sample"
)

type ActivityItem struct {
	ID     int    `yaml:"id" json:"id"`
	Action string `yaml:"action" json:"action"`
	Time   string `yaml:"time" json:"time"`
	Type   string `yaml:"type" json:"type"`
	Status string `yaml:"status" json:"status,omitempty"`
	City   string `yaml:"-" json:"city,omitempty"`
}

type Notification struct {
	ID      int    `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Message string `yaml:"message" json:"message"`
	Type    string `yaml:"type" json:"type"`
	Time    string `yaml:"time" json:"time"`
}

type AppUsage struct {
	Name        string `yaml:"name" json:"name"`
	Usage       string `yaml:"usage" json:"usage"`
	Users       int    `yaml:"users" json:"users,omitempty"`
	LastUsed    string `yaml:"lastUsed" json:"lastUsed,omitempty"`
	Color       string `yaml:"color" json:"-"`
	BorderColor string `yaml:"borderColor" json:"-"`
}

type QuickAction struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Color       string `yaml:"color" json:"color"`
	URL         string `yaml:"url" json:"url,omitempty"`
	Action      string `yaml:"action" json:"action,omitempty"`
}

type AdminDashboardContent struct {
	Subtitle       string         `yaml:"subtitle"`
	Stats          []Stat         `yaml:"stats"`
	RecentActivity []ActivityItem `yaml:"recentActivity"`
	Notifications  []Notification `yaml:"notifications"`
	TopApps        []AppUsage     `yaml:"topApps"`
	QuickActions   []QuickAction  `yaml:"quickActions"`
}

type UserDashboardContent struct {
	Subtitle       string         `yaml:"subtitle"`
	Stats          []Stat         `yaml:"stats"`
	RecentActivity []ActivityItem `yaml:"recentActivity"`
	QuickActions   []QuickAction  `yaml:"quickActions"`
	Favorites      []AppUsage     `yaml:"favorites"`
}

type Dashboards struct {
	Admin AdminDashboardContent `yaml:"admin"`
	User  UserDashboardContent  `yaml:"user"`
}

// DashboardView is the dashboard of either role, the variant tells which
// fields are set.
type DashboardView struct {
	Variant        string             `json:"variant"`
	Welcome        string             `json:"welcome"`
	Subtitle       string             `json:"subtitle"`
	Stats          []Stat             `json:"stats"`
	RecentActivity []ActivityItem     `json:"recentActivity"`
	ActivitySource string             `json:"activitySource"`
	QuickActions   []QuickAction      `json:"quickActions"`
	Notifications  []Notification     `json:"notifications,omitempty"`
	TopApps        []AppUsage         `json:"topApps,omitempty"`
	Charts         map[string]Chart   `json:"charts,omitempty"`
	Favorites      []AppUsage         `json:"favorites,omitempty"`
	Permissions    auth.PermissionSet `json:"permissions"`
}

// DashboardFor picks the dashboard by role. Live activity entries replace
// the sample ones when there are any.
func (c *Content) DashboardFor(session *auth.Session, live []activity.Entry, now time.Time) *DashboardView {
	view := &DashboardView{
		Permissions: session.Permissions,
	}

	if session.Role == auth.RoleAdministrator {
		admin := c.Dashboards.Admin
		view.Variant = auth.RoleAdministrator.String()
		view.Welcome = "Welcome back, " + displayName(session.Name, false) + "!"
		view.Subtitle = admin.Subtitle
		view.Stats = admin.Stats
		view.RecentActivity = admin.RecentActivity
		view.QuickActions = admin.QuickActions
		view.Notifications = admin.Notifications
		view.TopApps = admin.TopApps
		view.Charts = topAppsCharts(admin.TopApps)
	} else {
		user := c.Dashboards.User
		view.Variant = auth.RoleStandardUser.String()
		view.Welcome = "Welcome back, " + displayName(session.Name, true) + "!"
		view.Subtitle = user.Subtitle
		view.Stats = user.Stats
		view.RecentActivity = user.RecentActivity
		view.QuickActions = user.QuickActions
		view.Favorites = user.Favorites
	}

	view.ActivitySource = ActivitySourceSample
	if len(live) > 0 {
		view.ActivitySource = ActivitySourceLive
		view.RecentActivity = make([]ActivityItem, 0, len(live))
		for _, e := range live {
			view.RecentActivity = append(view.RecentActivity, ActivityItem{
				ID:     e.ID,
				Action: e.Action,
				Time:   activity.TimeAgo(now, e.CreatedAt),
				Type:   e.Type,
				City:   e.City,
			})
		}
	}

	return view
}

func topAppsCharts(topApps []AppUsage) map[string]Chart {
	labels := make([]string, 0, len(topApps))
	ds := Dataset{
		Label:       "Daily Active Users",
		BorderWidth: 2,
	}
	for _, app := range topApps {
		labels = append(labels, app.Name)
		ds.Data = append(ds.Data, float64(app.Users))
		ds.BackgroundColor = append(ds.BackgroundColor, app.Color)
		ds.BorderColor = append(ds.BorderColor, app.BorderColor)
	}

	doughnut := ds
	doughnut.Label = ""
	return map[string]Chart{
		"topAppsBar": {
			Type:     "bar",
			Title:    "Top Applications",
			Labels:   labels,
			Datasets: []Dataset{ds},
		},
		"topAppsDoughnut": {
			Type:     "doughnut",
			Title:    "Usage Distribution",
			Labels:   labels,
			Datasets: []Dataset{doughnut},
		},
	}
}

func displayName(name string, firstOnly bool) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "User"
	}
	if firstOnly {
		return strings.Fields(name)[0]
	}
	return name
}
