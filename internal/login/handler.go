package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/middleware"
	"github.com/2beens/clientportal/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	StepCredentials = "credentials"
	StepOTP         = "otp"
)

type DemoCredential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type Page struct {
	Step            string           `json:"step"`
	Email           string           `json:"email,omitempty"`
	Name            string           `json:"name,omitempty"`
	DemoOTPHint     string           `json:"demoOtpHint,omitempty"`
	DemoCredentials []DemoCredential `json:"demoCredentials,omitempty"`
}

type Handler struct {
	demoOTP         string
	demoCredentials []DemoCredential
}

// NewHandler creates the login flow handler. The demo OTP and demo
// credentials are shown on the login page when set.
func NewHandler(demoOTP string, demoCredentials []DemoCredential) *Handler {
	return &Handler{
		demoOTP:         demoOTP,
		demoCredentials: demoCredentials,
	}
}

func (handler *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return
	}

	page := Page{
		Step:            StepCredentials,
		DemoCredentials: handler.demoCredentials,
	}
	if pending := controller.Pending(); controller.State() == auth.StateAwaitingOTP && pending != nil {
		page.Step = StepOTP
		page.Email = pending.Email
		page.Name = pending.Name
		page.DemoOTPHint = handler.demoOTP
	}

	pkg.WriteJSON(w, http.StatusOK, page)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return
	}

	fields, err := readFields(r)
	if err != nil {
		log.Errorf("login failed, parse request error: %s", err)
		http.Error(w, "parse request error", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(fields["email"])
	password := fields["password"]
	if email == "" || password == "" {
		writeBanner(w, http.StatusBadRequest, "missing_fields", MsgMissingFields)
		return
	}

	identity, err := controller.Login(r.Context(), email, password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUnknownEmail):
		log.Printf("login failed, unknown email [%s]", email)
		writeBanner(w, http.StatusUnauthorized, "unknown_email", MsgUnknownEmail)
		return
	case errors.Is(err, auth.ErrWrongPassword):
		log.Printf("login failed, wrong password for [%s]", email)
		writeBanner(w, http.StatusUnauthorized, "wrong_password", MsgWrongPassword)
		return
	case errors.Is(err, auth.ErrAlreadyAuthenticated):
		pkg.WriteJSON(w, http.StatusConflict, map[string]string{"redirect": middleware.LandingPath})
		return
	default:
		handler.writeInternal(w, "login", err)
		return
	}

	log.Debugf("credentials ok for [%s], awaiting otp", identity.Email)
	pkg.WriteJSON(w, http.StatusOK, Page{
		Step:        StepOTP,
		Email:       identity.Email,
		Name:        identity.Name,
		DemoOTPHint: handler.demoOTP,
	})
}

func (handler *Handler) HandleOTP(w http.ResponseWriter, r *http.Request) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return
	}

	fields, err := readFields(r)
	if err != nil {
		log.Errorf("otp failed, parse request error: %s", err)
		http.Error(w, "parse request error", http.StatusBadRequest)
		return
	}

	code := strings.TrimSpace(fields["otp"])
	if code == "" {
		writeBanner(w, http.StatusBadRequest, "missing_otp", MsgMissingOTP)
		return
	}

	session, err := controller.VerifyOTP(r.Context(), code)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidOTP):
		writeBanner(w, http.StatusUnauthorized, "invalid_otp", MsgInvalidOTP)
		return
	case errors.Is(err, auth.ErrNoPendingLogin):
		writeBanner(w, http.StatusConflict, "no_pending_login", MsgNoPendingLogin)
		return
	default:
		handler.writeInternal(w, "verify otp", err)
		return
	}

	log.Printf("signed in: [%s] as [%s]", session.Email, session.Role)
	pkg.WriteJSON(w, http.StatusOK, map[string]any{
		"redirect": middleware.LandingPath,
		"user":     session,
	})
}

func (handler *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return
	}

	if err := controller.BackToLogin(r.Context()); err != nil {
		handler.writeInternal(w, "back to login", err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, Page{
		Step:            StepCredentials,
		DemoCredentials: handler.demoCredentials,
	})
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	controller, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		http.Error(w, "no session controller", http.StatusInternalServerError)
		return
	}

	email := ""
	if s := controller.Session(); s != nil {
		email = s.Email
	}

	if err := controller.SignOut(r.Context()); err != nil {
		handler.writeInternal(w, "logout", err)
		return
	}

	log.Printf("signed out: [%s]", email)
	pkg.WriteJSON(w, http.StatusOK, map[string]string{"redirect": middleware.LoginPath})
}

func (handler *Handler) writeInternal(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debugf("%s aborted: %s", op, err)
		writeBanner(w, http.StatusServiceUnavailable, "unavailable", MsgUnavailable)
		return
	}
	log.Errorf("%s failed: %s", op, err)
	writeBanner(w, http.StatusInternalServerError, "internal", MsgUnavailable)
}

// readFields accepts both a JSON object and a url encoded form.
func readFields(r *http.Request) (map[string]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		fields := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return nil, err
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}
	return fields, nil
}
