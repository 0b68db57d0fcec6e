package routes

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/mbolis/freewill-survey/app"
	"github.com/mbolis/freewill-survey/httpx"
	"github.com/mbolis/freewill-survey/log"
	"github.com/mbolis/freewill-survey/model"
)

func SubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submission := model.Submission{}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		err := dec.Decode(&submission)
		if err != nil {
			httpx.LogError(w, r, "request.parse_body", model.Validation("request.parse_body", err))
			return
		}
		if err = validateSubmission(submission); err != nil {
			httpx.LogError(w, r, "request.validate", err)
			return
		}

		id, err := app.Insert(r.Context(), submission)
		if err != nil {
			httpx.LogError(w, r, "db.insert_response", err)
			return
		}

		// the response is committed: a failed export is only logged
		if app.ExportOnSubmit {
			ctx := context.WithoutCancel(r.Context())
			if _, err := app.Exporter.Refresh(ctx); err != nil {
				log.Errorf("export.refresh: response %d stored but export not updated: %s", id, err)
			}
		}

		render.JSON(w, r, map[string]any{
			"status":      "success",
			"message":     "Survey response recorded",
			"response_id": id,
		})
	}
}

func validateSubmission(s model.Submission) error {
	switch {
	case s.Responses == nil:
		return model.Validation("request.validate", errors.New("field required: responses"))
	case s.Scores == nil:
		return model.Validation("request.validate", errors.New("field required: scores"))
	case s.Metadata == nil:
		return model.Validation("request.validate", errors.New("field required: metadata"))
	}
	return nil
}

func GetSurveyStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := app.Stats.Compute(r.Context())
		if err != nil {
			httpx.LogError(w, r, "stats.compute", err)
			return
		}
		render.JSON(w, r, stats)
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses, err := app.GetAll(r.Context())
		if err != nil {
			httpx.LogError(w, r, "db.get_responses", err)
			return
		}
		render.JSON(w, r, responses)
	}
}

func GetResponseById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogError(w, r, "request.get_url_param.id", model.Validation("request.get_url_param.id", err))
			return
		}

		response, err := app.GetByID(r.Context(), responseId)
		if err != nil {
			httpx.LogError(w, r, "db.get_response", err)
			return
		}
		render.JSON(w, r, response)
	}
}

func CreateBackup(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := app.Backup(r.Context(), app.BackupDir)
		if err != nil {
			httpx.LogError(w, r, "backup.create", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"status":      "success",
			"message":     "Backup created successfully",
			"backup_path": path,
		})
	}
}

func RefreshExport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		written, err := app.Exporter.Refresh(r.Context())
		if err != nil {
			httpx.LogError(w, r, "export.refresh", err)
			return
		}
		message := "CSV export updated"
		if !written {
			message = "No responses to export"
		}
		render.JSON(w, r, map[string]any{
			"status":      "success",
			"message":     message,
			"export_path": app.Exporter.Path(),
			"written":     written,
		})
	}
}

func DownloadExport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := app.Exporter.Path()
		// the open handle stays valid if a refresh rotates the file meanwhile
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			httpx.LogNotFound(w, r, "export.download", path, "Export not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "export.download.open", err)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			httpx.LogInternalError(w, r, "export.download.stat", err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
		http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
	}
}
