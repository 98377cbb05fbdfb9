package portal

import (
	"net/http"

	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/middleware"

	"github.com/gorilla/mux"
)

func (handler *Handler) SetupRoutes(mainRouter *mux.Router, guard *middleware.Guard) {
	openRouter := mainRouter.NewRoute().Subrouter()
	openRouter.Use(guard.Optional())
	openRouter.HandleFunc("/", handler.HandleLanding).Methods("GET").Name("landing")
	openRouter.HandleFunc("/session", handler.HandleSession).Methods("GET").Name("session")

	protectedRouter := mainRouter.NewRoute().Subrouter()
	protectedRouter.Use(guard.Protected())
	protectedRouter.HandleFunc("/dashboard", handler.HandleDashboard).Methods("GET").Name("dashboard")
	protectedRouter.HandleFunc("/apps", handler.HandleApps).Methods("GET").Name("apps")
	protectedRouter.HandleFunc("/apps/{id:[0-9]+}/launch", handler.HandleAppLaunch).Methods("GET").Name("app-launch")
	protectedRouter.HandleFunc("/features", handler.HandleFeatures).Methods("GET").Name("features")
	protectedRouter.HandleFunc("/download", handler.HandleDownload).Methods("GET").Name("download")
	protectedRouter.HandleFunc("/profile", handler.HandleProfile).Methods("GET").Name("profile")
	protectedRouter.HandleFunc("/settings", handler.HandleSettings).Methods("GET").Name("settings")
	protectedRouter.Handle(
		"/analytics",
		middleware.RequirePermission(auth.CanViewAnalytics)(http.HandlerFunc(handler.HandleAnalytics)),
	).Methods("GET").Name("analytics")
	protectedRouter.Handle(
		"/settings/system",
		middleware.RequirePermission(auth.CanManageSystem)(http.HandlerFunc(handler.HandleUpdateSystemSettings)),
	).Methods("PUT").Name("settings-system")
}
