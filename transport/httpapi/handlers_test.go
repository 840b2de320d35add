package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stylusfm/stylus/application/usecase"
	"github.com/stylusfm/stylus/domain/model"
	"github.com/stylusfm/stylus/dsp/wav"
	"github.com/stylusfm/stylus/infrastructure/registry"
	"github.com/stylusfm/stylus/infrastructure/storage"
	"github.com/stylusfm/stylus/internal/mocks"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
	"github.com/stylusfm/stylus/pkg/logger"
)

type testApp struct {
	handler http.Handler
	service *usecase.TaskService
	decoder *mocks.MockAudioDecoder
}

// newTestApp wires the full router around a real service, store, and
// registry; only the ffmpeg decoder is a double.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewLocalStore(filepath.Join(dir, "uploads"), filepath.Join(dir, "processed"))
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	decoder := &mocks.MockAudioDecoder{
		DecodeFunc: func(ctx context.Context, path string) (*model.Buffer, error) {
			return model.NewBuffer(make([]float64, 8000), 8000), nil
		},
	}

	svc, err := usecase.NewTaskService(usecase.Config{
		Decoder:   decoder,
		Storage:   store,
		Tasks:     registry.NewRegistry(),
		Logger:    logger.Nop(),
		Workers:   2,
		QueueSize: 8,
	})
	if err != nil {
		t.Fatalf("NewTaskService: %v", err)
	}
	t.Cleanup(svc.Close)

	return &testApp{
		handler: NewRouter(NewApp(svc, logger.Nop()), logger.Nop()),
		service: svc,
		decoder: decoder,
	}
}

// mp3Form builds a multipart body with one file part. CreateFormFile
// would stamp application/octet-stream on the part, so the header is
// built by hand.
func mp3Form(t *testing.T, fileContentType, style string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="song.mp3"`)
	h.Set("Content-Type", fileContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write([]byte("mp3 bytes")); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if style != "" {
		if err := w.WriteField("style", style); err != nil {
			t.Fatalf("write style field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t)

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf(`status = %q, want "ok"`, resp["status"])
	}
}

func TestProcessAudio_FullFlow(t *testing.T) {
	ta := newTestApp(t)

	body, contentType := mp3Form(t, "audio/mpeg", "dilla")
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("process status = %d, want %d; body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var accepted processResponse
	if err := json.NewDecoder(rr.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode process response: %v", err)
	}
	if accepted.Status != "success" {
		t.Errorf("status = %q, want %q", accepted.Status, "success")
	}
	if accepted.Message != "Audio processing started" {
		t.Errorf("message = %q, want %q", accepted.Message, "Audio processing started")
	}
	if accepted.TaskID == "" {
		t.Fatal("expected a task id")
	}

	// Close drains the queue, so the background run has finished before
	// the status lookup.
	ta.service.Close()

	rr = httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/"+accepted.TaskID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status lookup = %d, want %d; body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var st statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if st.Status != string(model.StatusComplete) {
		t.Fatalf("task status = %q, want %q", st.Status, model.StatusComplete)
	}
	if st.TaskID != accepted.TaskID {
		t.Errorf("status task id = %q, want %q", st.TaskID, accepted.TaskID)
	}
	if want := "/audio/" + accepted.TaskID; st.AudioURL != want {
		t.Errorf("audioUrl = %q, want %q", st.AudioURL, want)
	}

	rr = httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, st.AudioURL, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("download = %d, want %d; body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	wantDisposition := fmt.Sprintf("attachment; filename=%q", accepted.TaskID+"_dilla.mp3")
	if got := rr.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisposition)
	}
	if got := rr.Header().Get("Content-Length"); got != strconv.Itoa(rr.Body.Len()) {
		t.Errorf("Content-Length = %q, body is %d bytes", got, rr.Body.Len())
	}

	samples, rate, err := wav.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("downloaded artifact is not a wav stream: %v", err)
	}
	if rate != 8000 {
		t.Errorf("artifact rate = %d, want 8000", rate)
	}
	if len(samples) != 8163 {
		t.Errorf("artifact samples = %d, want 8163", len(samples))
	}
}

func TestStatus_WhileProcessing(t *testing.T) {
	ta := newTestApp(t)

	release := make(chan struct{})
	ta.decoder.DecodeFunc = func(ctx context.Context, path string) (*model.Buffer, error) {
		<-release
		return model.NewBuffer(make([]float64, 8000), 8000), nil
	}

	body, contentType := mp3Form(t, "audio/mpeg", "")
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("process status = %d, want %d; body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var accepted processResponse
	if err := json.NewDecoder(rr.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode process response: %v", err)
	}

	rr = httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/"+accepted.TaskID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status lookup = %d, want %d; body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "audioUrl") {
		t.Errorf("processing status should not advertise a download url: %s", rr.Body.String())
	}
	var st statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if st.Status != string(model.StatusProcessing) {
		t.Errorf("task status = %q, want %q", st.Status, model.StatusProcessing)
	}

	close(release)
	ta.service.Close()

	rr = httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/"+accepted.TaskID, nil))
	var done statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&done); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if done.Status != string(model.StatusComplete) {
		t.Errorf("task status after drain = %q, want %q", done.Status, model.StatusComplete)
	}
}

func TestProcessAudio_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       func(t *testing.T) (io.Reader, string)
		wantDetail string
	}{
		{
			name: "not multipart",
			body: func(t *testing.T) (io.Reader, string) {
				return strings.NewReader("raw bytes"), "text/plain"
			},
			wantDetail: "request must be multipart form data",
		},
		{
			name: "missing file field",
			body: func(t *testing.T) (io.Reader, string) {
				var buf bytes.Buffer
				w := multipart.NewWriter(&buf)
				if err := w.WriteField("style", "dilla"); err != nil {
					t.Fatalf("write style field: %v", err)
				}
				if err := w.Close(); err != nil {
					t.Fatalf("close form: %v", err)
				}
				return &buf, w.FormDataContentType()
			},
			wantDetail: "file field is required",
		},
		{
			name: "file part is not mpeg",
			body: func(t *testing.T) (io.Reader, string) {
				return mp3Form(t, "text/plain", "")
			},
			wantDetail: "file must be an MP3 audio file",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t)

			body, contentType := tc.body(t)
			req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			ta.handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d; body=%s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
			var resp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Detail != tc.wantDetail {
				t.Errorf("detail = %q, want %q", resp.Detail, tc.wantDetail)
			}
		})
	}
}

func TestLookups_UnknownTask(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		name       string
		path       string
		wantDetail string
	}{
		{"status", "/status/no-such-task", "task not found"},
		{"audio", "/audio/no-such-task", "audio not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if rr.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want %d; body=%s", rr.Code, http.StatusNotFound, rr.Body.String())
			}
			var resp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Detail != tc.wantDetail {
				t.Errorf("detail = %q, want %q", resp.Detail, tc.wantDetail)
			}
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	ta := newTestApp(t)

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/process-audio", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	h := RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusCreated)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		detail string
	}{
		{"validation", pkgerrors.NewValidationError("style", "x", "unknown style"), http.StatusBadRequest, "unknown style"},
		{"not found", pkgerrors.NewNotFoundError("task", "abc"), http.StatusNotFound, "task not found"},
		{"wrapped not found", fmt.Errorf("lookup: %w", pkgerrors.NewNotFoundError("task", "abc")), http.StatusNotFound, "task not found"},
		{"internal detail stays private", errors.New("disk exploded"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.code {
				t.Errorf("statusFor = %d, want %d", got, tc.code)
			}
			if got := publicMessage(tc.err, tc.code); got != tc.detail {
				t.Errorf("publicMessage = %q, want %q", got, tc.detail)
			}
		})
	}
}
