package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/freewill-survey/log"
	"github.com/mbolis/freewill-survey/model"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Will log an error, and send an HTTP response with status 500 and the error as detail
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	writeDetail(w, r, http.StatusInternalServerError, err.Error())
}

// Will log a debug message, and send an HTTP response with status 404 and the given detail
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any, detail string) {
	log.Debugf("%s: not found (%v)", code, id)
	writeDetail(w, r, http.StatusNotFound, detail)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message as detail
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	writeDetail(w, r, status, errMsg)
}

// LogError picks the status for a core error from its kind.
func LogError(w http.ResponseWriter, r *http.Request, code string, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		LogNotFound(w, r, code, err, "Response not found")
	case errors.Is(err, model.ErrValidation):
		LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code, "%s", err)
	default:
		LogInternalError(w, r, code, err)
	}
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Detail: detail})
}
