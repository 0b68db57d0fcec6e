package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/freewill-survey/app"
	"github.com/mbolis/freewill-survey/httpx"
	"github.com/mbolis/freewill-survey/log"
	"github.com/mbolis/freewill-survey/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middlewares.Logger, middlewares.Recoverer)

	root.Mount("/api/survey", surveyRouter(app))

	if app.StaticDir != "" {
		root.Mount("/", servePublicFiles(app.StaticDir))
	}

	return root
}

func surveyRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/submit", SubmitSurvey(app))
	api.Get("/stats", GetSurveyStats(app))
	api.Get("/responses", ListResponses(app))
	api.Get("/response/{id}", GetResponseById(app))

	api.Post("/backup", CreateBackup(app))
	api.Post("/export", RefreshExport(app))
	api.Get("/export", DownloadExport(app))

	api.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "request.route", "Not Found")
	})
	api.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogStatusMsg(w, r, http.StatusMethodNotAllowed, log.DebugLevel, "request.method", "Method Not Allowed")
	})

	return api
}

func servePublicFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}
