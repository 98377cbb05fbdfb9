package pwa

import (
	"net/http"
	"time"

	"github.com/2beens/clientportal/internal/middleware"
	"github.com/2beens/clientportal/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type promptResponse struct {
	Show        bool   `json:"show"`
	DismissedAt *int64 `json:"dismissedAt,omitempty"`
}

type Handler struct {
	store  DismissalStore
	window time.Duration
	now    func() time.Time
}

func NewHandler(store DismissalStore, window time.Duration) *Handler {
	return &Handler{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	pwaRouter := mainRouter.PathPrefix("/pwa").Subrouter()
	pwaRouter.HandleFunc("/prompt", handler.HandlePrompt).Methods("GET").Name("pwa-prompt")
	pwaRouter.HandleFunc("/dismiss", handler.HandleDismiss).Methods("POST").Name("pwa-dismiss")
}

// HandlePrompt tells whether the install prompt may be shown. The prompt
// is cosmetic: a failing store only hides it.
func (handler *Handler) HandlePrompt(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, "missing profile", http.StatusInternalServerError)
		return
	}

	dismissedAt, dismissed, err := handler.store.DismissedAt(r.Context(), profile)
	if err != nil {
		log.Errorf("pwa prompt: get dismissal of profile [%s]: %s", profile, err)
		pkg.WriteJSON(w, http.StatusOK, promptResponse{Show: false})
		return
	}

	resp := promptResponse{Show: true}
	if dismissed {
		ms := dismissedAt.UnixMilli()
		resp.DismissedAt = &ms
		resp.Show = handler.now().Sub(dismissedAt) >= handler.window
	}

	pkg.WriteJSON(w, http.StatusOK, resp)
}

func (handler *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, "missing profile", http.StatusInternalServerError)
		return
	}

	now := handler.now()
	if err := handler.store.Dismiss(r.Context(), profile, now); err != nil {
		log.Errorf("pwa dismiss: profile [%s]: %s", profile, err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ms := now.UnixMilli()
	pkg.WriteJSON(w, http.StatusOK, promptResponse{Show: false, DismissedAt: &ms})
}
