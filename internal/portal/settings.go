package portal

import (
	"errors"
	"fmt"

	"github.com/2beens/clientportal/internal/auth"
)

var ErrInvalidSetting = errors.New("invalid setting")

type SettingsTab struct {
	ID       string          `yaml:"id" json:"id"`
	Name     string          `yaml:"name" json:"name"`
	Icon     string          `yaml:"icon" json:"icon"`
	Requires auth.Capability `yaml:"requires" json:"-"`
}

type ProfileSettings struct {
	Name       string `yaml:"name" json:"name"`
	Email      string `yaml:"email" json:"email"`
	Phone      string `yaml:"phone" json:"phone"`
	Department string `yaml:"department" json:"department"`
	Role       string `yaml:"role" json:"role"`
	Avatar     string `yaml:"avatar" json:"avatar"`
}

type NotificationSettings struct {
	EmailNotifications bool `yaml:"emailNotifications" json:"emailNotifications"`
	SMSNotifications   bool `yaml:"smsNotifications" json:"smsNotifications"`
	PushNotifications  bool `yaml:"pushNotifications" json:"pushNotifications"`
	OrderUpdates       bool `yaml:"orderUpdates" json:"orderUpdates"`
	DeliveryAlerts     bool `yaml:"deliveryAlerts" json:"deliveryAlerts"`
	SystemMaintenance  bool `yaml:"systemMaintenance" json:"systemMaintenance"`
	WeeklyReports      bool `yaml:"weeklyReports" json:"weeklyReports"`
}

type ApplicationSettings struct {
	DefaultDashboard string `yaml:"defaultDashboard" json:"defaultDashboard"`
	Theme            string `yaml:"theme" json:"theme"`
	Language         string `yaml:"language" json:"language"`
	Timezone         string `yaml:"timezone" json:"timezone"`
	DateFormat       string `yaml:"dateFormat" json:"dateFormat"`
	AutoRefresh      bool   `yaml:"autoRefresh" json:"autoRefresh"`
	RefreshInterval  string `yaml:"refreshInterval" json:"refreshInterval"`
}

type SecuritySettings struct {
	TwoFactorAuth    bool   `yaml:"twoFactorAuth" json:"twoFactorAuth"`
	SessionTimeout   string `yaml:"sessionTimeout" json:"sessionTimeout"`
	PasswordExpiry   string `yaml:"passwordExpiry" json:"passwordExpiry"`
	LoginAlerts      bool   `yaml:"loginAlerts" json:"loginAlerts"`
	DeviceManagement bool   `yaml:"deviceManagement" json:"deviceManagement"`
}

type SystemSettings struct {
	DataRetention   string `yaml:"dataRetention" json:"dataRetention"`
	BackupFrequency string `yaml:"backupFrequency" json:"backupFrequency"`
	LogLevel        string `yaml:"logLevel" json:"logLevel"`
	APIVersion      string `yaml:"apiVersion" json:"apiVersion"`
	DebugMode       bool   `yaml:"debugMode" json:"debugMode"`
}

type SystemOptions struct {
	DataRetention   []string `yaml:"dataRetention" json:"dataRetention"`
	BackupFrequency []string `yaml:"backupFrequency" json:"backupFrequency"`
	LogLevel        []string `yaml:"logLevel" json:"logLevel"`
	APIVersion      []string `yaml:"apiVersion" json:"apiVersion"`
}

func (s SystemSettings) Validate(options SystemOptions) error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"dataRetention", s.DataRetention, options.DataRetention},
		{"backupFrequency", s.BackupFrequency, options.BackupFrequency},
		{"logLevel", s.LogLevel, options.LogLevel},
		{"apiVersion", s.APIVersion, options.APIVersion},
	}
	for _, check := range checks {
		if !contains(check.allowed, check.value) {
			return fmt.Errorf("%w: %s [%s]", ErrInvalidSetting, check.field, check.value)
		}
	}
	return nil
}

type Settings struct {
	Profile       ProfileSettings      `yaml:"profile" json:"profile"`
	Notifications NotificationSettings `yaml:"notifications" json:"notifications"`
	Applications  ApplicationSettings  `yaml:"applications" json:"applications"`
	Security      SecuritySettings     `yaml:"security" json:"security"`
	System        *SystemSettings      `yaml:"system" json:"system,omitempty"`
}

type SettingsContent struct {
	Tabs          []SettingsTab  `yaml:"tabs"`
	Defaults      SettingsLoaded `yaml:"defaults"`
	SystemOptions SystemOptions  `yaml:"systemOptions"`
}

// SettingsLoaded keeps the system defaults by value, views copy them.
type SettingsLoaded struct {
	Profile       ProfileSettings      `yaml:"profile"`
	Notifications NotificationSettings `yaml:"notifications"`
	Applications  ApplicationSettings  `yaml:"applications"`
	Security      SecuritySettings     `yaml:"security"`
	System        SystemSettings       `yaml:"system"`
}

type SettingsView struct {
	Tabs          []SettingsTab  `json:"tabs"`
	Settings      Settings       `json:"settings"`
	SystemOptions *SystemOptions `json:"systemOptions,omitempty"`
}

// For returns the settings page of the signed in user. Tabs and sections
// guarded by a capability are left out when the session lacks it.
func (sc *SettingsContent) For(session *auth.Session) SettingsView {
	view := SettingsView{
		Tabs: make([]SettingsTab, 0, len(sc.Tabs)),
		Settings: Settings{
			Profile:       sc.Defaults.Profile,
			Notifications: sc.Defaults.Notifications,
			Applications:  sc.Defaults.Applications,
			Security:      sc.Defaults.Security,
		},
	}
	view.Settings.Profile.Name = session.Name
	view.Settings.Profile.Email = session.Email

	for _, tab := range sc.Tabs {
		if tab.Requires != "" && !session.Permissions.Has(tab.Requires) {
			continue
		}
		view.Tabs = append(view.Tabs, tab)
	}

	if session.Permissions.Has(auth.CanManageSystem) {
		system := sc.Defaults.System
		options := sc.SystemOptions
		view.Settings.System = &system
		view.SystemOptions = &options
	}

	return view
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
