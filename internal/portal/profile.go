package portal

import (
	"time"

	"github.com/2beens/clientportal/internal/auth"
)

type ProfileView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Role        auth.Role          `json:"role"`
	RoleLabel   string             `json:"roleLabel"`
	Phone       string             `json:"phone"`
	Department  string             `json:"department"`
	Location    string             `json:"location"`
	JoinDate    string             `json:"joinDate"`
	LastLogin   string             `json:"lastLogin"`
	Avatar      *string            `json:"avatar"`
	Permissions auth.PermissionSet `json:"permissions"`
}

func (c *Content) ProfileFor(session *auth.Session, now time.Time) *ProfileView {
	lastLogin := "Today"
	if !session.LastLogin.IsZero() && !sameDay(session.LastLogin, now) {
		lastLogin = session.LastLogin.Format("2006-01-02")
	}

	return &ProfileView{
		ID:          session.ID,
		Name:        session.Name,
		Email:       session.Email,
		Role:        session.Role,
		RoleLabel:   session.Role.Label(),
		Phone:       c.Profile.Phone,
		Department:  c.Profile.Departments[session.Role.String()],
		Location:    c.Profile.Location,
		JoinDate:    c.Profile.JoinDate,
		LastLogin:   lastLogin,
		Avatar:      session.Avatar,
		Permissions: session.Permissions,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
