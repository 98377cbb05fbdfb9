package portal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/clientportal/internal/activity"
	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/middleware"
	"github.com/2beens/clientportal/internal/telemetry/tracing"
	"github.com/2beens/clientportal/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const recentActivityLimit = 5

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	resp := errorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	pkg.WriteJSON(w, statusCode, resp)
}

type Handler struct {
	content      *Content
	activityRepo activity.Repo
	now          func() time.Time
}

// NewHandler creates the pages handler. activityRepo may be nil, the
// dashboards then show their sample activity.
func NewHandler(content *Content, activityRepo activity.Repo) *Handler {
	return &Handler{
		content:      content,
		activityRepo: activityRepo,
		now:          time.Now,
	}
}

func (handler *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if controller, ok := middleware.ControllerFromContext(r.Context()); ok {
		authenticated = controller.IsAuthenticated()
	}

	category := r.URL.Query().Get("category")
	view, err := handler.content.LandingFor(category, authenticated)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_category", "Unknown category: "+category)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, view)
}

func (handler *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "portal.dashboard")
	defer span.End()

	session, ok := sessionFromRequest(w, r)
	if !ok {
		span.SetStatus(codes.Error, "no-session")
		return
	}
	span.SetAttributes(attribute.String("user.role", session.Role.String()))

	var live []activity.Entry
	if handler.activityRepo != nil {
		entries, err := handler.activityRepo.ListRecent(ctx, session.Email, recentActivityLimit)
		if err != nil {
			// sample entries are shown instead
			log.Errorf("dashboard: list recent activity of [%s]: %s", session.Email, err)
			span.RecordError(err)
		} else {
			live = entries
		}
	}

	pkg.WriteJSON(w, http.StatusOK, handler.content.DashboardFor(session, live, handler.now()))
}

func (handler *Handler) HandleApps(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	search := r.URL.Query().Get("search")
	category := r.URL.Query().Get("category")
	apps, err := handler.content.Catalog.Filter(search, category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_category", "Unknown category: "+category)
		return
	}
	if category == "" {
		category = CategoryAll
	}

	resp := map[string]any{
		"categories": handler.content.Catalog.Categories,
		"category":   category,
		"search":     search,
		"apps":       apps,
	}
	if session.Role == auth.RoleAdministrator {
		resp["stats"] = handler.content.Catalog.Stats()
	}

	pkg.WriteJSON(w, http.StatusOK, resp)
}

func (handler *Handler) HandleAppLaunch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_app_id", "Invalid application id.")
		return
	}

	app, ok := handler.content.Catalog.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_app", "Application not found.")
		return
	}
	if !app.Launchable() {
		log.Debugf("launch of app [%d] %s requested, it has no url", app.ID, app.Title)
		writeError(w, http.StatusNotFound, "not_launchable", app.Title+" is not available online yet.")
		return
	}

	http.Redirect(w, r, app.URL, http.StatusFound)
}

func (handler *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	app := r.URL.Query().Get("app")

	view, err := handler.content.Analytics.Select(period, app)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownPeriod):
		writeError(w, http.StatusBadRequest, "unknown_period", "Unknown period: "+period)
		return
	case errors.Is(err, ErrUnknownApp):
		writeError(w, http.StatusBadRequest, "unknown_app", "Unknown application: "+app)
		return
	default:
		log.Errorf("analytics: select [%s] [%s]: %s", period, app, err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong.")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, view)
}

func (handler *Handler) HandleFeatures(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, http.StatusOK, handler.content.Features)
}

func (handler *Handler) HandleDownload(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, http.StatusOK, handler.content.Download)
}

func (handler *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	pkg.WriteJSON(w, http.StatusOK, handler.content.ProfileFor(session, handler.now()))
}

func (handler *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	pkg.WriteJSON(w, http.StatusOK, handler.content.Settings.For(session))
}

// HandleUpdateSystemSettings validates and echoes the system settings, they
// are not persisted.
func (handler *Handler) HandleUpdateSystemSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	var system SystemSettings
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&system); err != nil {
		log.Debugf("update system settings: decode: %s", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid system settings.")
		return
	}

	if err := system.Validate(handler.content.Settings.SystemOptions); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_setting", err.Error())
		return
	}

	log.Printf("system settings saved by [%s]: %+v", session.Email, system)
	pkg.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "System settings saved!",
		"system":  system,
	})
}

type sessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	State         string             `json:"state"`
	Role          *string            `json:"role"`
	RoleLabel     string             `json:"roleLabel,omitempty"`
	Permissions   auth.PermissionSet `json:"permissions"`
	User          *auth.Session      `json:"user"`
}

// HandleSession exposes the session query surface.
func (handler *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return
	}

	resp := sessionResponse{
		Authenticated: controller.IsAuthenticated(),
		State:         controller.State().String(),
		Permissions:   controller.Permissions(),
		User:          controller.Session(),
	}
	if role, ok := controller.CurrentRole(); ok {
		roleName := role.String()
		resp.Role = &roleName
		resp.RoleLabel = role.Label()
	}

	w.Header().Set("Cache-Control", "no-store")
	pkg.WriteJSON(w, http.StatusOK, resp)
}

func sessionFromRequest(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return nil, false
	}
	session := controller.Session()
	if session == nil {
		log.Errorf("no session behind protected route => %s", r.URL.Path)
		http.Error(w, "no session", http.StatusInternalServerError)
		return nil, false
	}
	return session, true
}
