// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	appointmentsfeature "github.com/edusuite/tutordesk/internal/app/features/appointments"
	familiesfeature "github.com/edusuite/tutordesk/internal/app/features/families"
	healthfeature "github.com/edusuite/tutordesk/internal/app/features/health"
	professorsfeature "github.com/edusuite/tutordesk/internal/app/features/professors"
	settlementnotesfeature "github.com/edusuite/tutordesk/internal/app/features/settlementnotes"
	subjectsfeature "github.com/edusuite/tutordesk/internal/app/features/subjects"
	apptservice "github.com/edusuite/tutordesk/internal/app/service/appointments"
	familyservice "github.com/edusuite/tutordesk/internal/app/service/families"
	noteservice "github.com/edusuite/tutordesk/internal/app/service/settlementnotes"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// TutorDesk builds the domain services around the database and the shared
// cache created in Startup, then mounts a feature router for each part of
// the back office: families, settlement notes, appointments, professors,
// and subjects.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.TutorDeskMongoDatabase

	familySvc := familyservice.New(db, appCache, logger)
	noteSvc := noteservice.New(db, appCache, logger)
	apptSvc := apptservice.New(db, appCache, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.TutorDeskMongoClient, appCache, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	familiesHandler := familiesfeature.NewHandler(familySvc, logger)
	r.Mount("/families", familiesfeature.Routes(familiesHandler))

	notesHandler := settlementnotesfeature.NewHandler(noteSvc, logger)
	r.Mount("/settlement-notes", settlementnotesfeature.Routes(notesHandler))

	apptsHandler := appointmentsfeature.NewHandler(apptSvc, logger)
	r.Mount("/appointments", appointmentsfeature.Routes(apptsHandler))

	professorsHandler := professorsfeature.NewHandler(db, logger)
	r.Mount("/professors", professorsfeature.Routes(professorsHandler))

	subjectsHandler := subjectsfeature.NewHandler(db, appCache, logger)
	r.Mount("/subjects", subjectsfeature.Routes(subjectsHandler))

	return r, nil
}
