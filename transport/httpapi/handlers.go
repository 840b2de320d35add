package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stylusfm/stylus/application/usecase"
	"github.com/stylusfm/stylus/domain/model"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
	"github.com/stylusfm/stylus/pkg/logger"
)

// maxFormMemory caps how much of a multipart body is held in memory
// while parsing; larger parts spill to temp files.
const maxFormMemory = 1 << 20

// App bundles the handlers' dependencies.
type App struct {
	service *usecase.TaskService
	log     *logger.Logger
}

// NewApp creates the handler set around a task service.
func NewApp(service *usecase.TaskService, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{service: service, log: log}
}

type processResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TaskID  string `json:"taskId"`
}

type statusResponse struct {
	Status   string `json:"status"`
	TaskID   string `json:"taskId"`
	AudioURL string `json:"audioUrl,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// ProcessAudio accepts a multipart upload and schedules it for
// background processing.
func (a *App) ProcessAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		a.error(w, r, pkgerrors.NewValidationError("body", "", "request must be multipart form data"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, r, pkgerrors.NewValidationError("file", "", "file field is required"))
		return
	}
	defer file.Close()

	task, err := a.service.Submit(r.Context(), usecase.Submission{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Style:       r.FormValue("style"),
		Data:        file,
	})
	if err != nil {
		a.error(w, r, err)
		return
	}

	a.json(w, http.StatusOK, processResponse{
		Status:  "success",
		Message: "Audio processing started",
		TaskID:  task.ID,
	})
}

// Status reports a task's lifecycle state, with a download URL once the
// task is complete.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, err := a.service.Status(r.Context(), taskID)
	if err != nil {
		a.error(w, r, err)
		return
	}

	resp := statusResponse{
		Status: string(task.Status),
		TaskID: task.ID,
	}
	if task.Status == model.StatusComplete {
		resp.AudioURL = "/audio/" + task.ID
	}
	a.json(w, http.StatusOK, resp)
}

// Audio streams a processed artifact as an attachment.
func (a *App) Audio(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	name, rc, size, err := a.service.Fetch(r.Context(), fileID)
	if err != nil {
		a.error(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		a.log.Warn("audio stream interrupted",
			zap.String("file_id", fileID),
			zap.Error(err),
		)
	}
}

// Health is the liveness probe.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	a.json(w, code, errorResponse{Detail: publicMessage(err, code)})
}

func statusFor(err error) int {
	if _, ok := pkgerrors.As[*pkgerrors.ValidationError](err); ok {
		return http.StatusBadRequest
	}
	if _, ok := pkgerrors.As[*pkgerrors.NotFoundError](err); ok {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// publicMessage keeps response bodies free of internal error detail:
// client-caused failures surface their message, everything else is
// generic.
func publicMessage(err error, code int) string {
	switch code {
	case http.StatusBadRequest:
		if v, ok := pkgerrors.As[*pkgerrors.ValidationError](err); ok {
			return v.Message
		}
		return "bad request"
	case http.StatusNotFound:
		if v, ok := pkgerrors.As[*pkgerrors.NotFoundError](err); ok {
			return v.Message
		}
		return "not found"
	default:
		return "internal server error"
	}
}
