package api

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"leaf-backend/internal/archive"
	"leaf-backend/internal/core"
	"leaf-backend/internal/history"
	"leaf-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	imageField            = "image"
	DefaultMaxUploadBytes = 10 << 20
)

type LeafService struct {
	store           *history.Store
	classifier      *core.Classifier
	recommendations *core.Recommendations
	stager          *core.UploadStager
	sessions        *SessionCodec
	archiver        *archive.Archiver
	maxUploadBytes  int64
	templates       *template.Template
}

// NewLeafService wires the page and json handlers. archiver may be nil, in
// which case uploads are not archived.
func NewLeafService(
	store *history.Store,
	classifier *core.Classifier,
	recommendations *core.Recommendations,
	stager *core.UploadStager,
	sessions *SessionCodec,
	archiver *archive.Archiver,
	maxUploadBytes int64,
) *LeafService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	templates := template.Must(template.New("").Funcs(template.FuncMap{
		"percent": func(v float32) float32 { return v * 100 },
	}).ParseFS(templateFS, "templates/*.html"))

	return &LeafService{
		store:           store,
		classifier:      classifier,
		recommendations: recommendations,
		stager:          stager,
		sessions:        sessions,
		archiver:        archiver,
		maxUploadBytes:  maxUploadBytes,
		templates:       templates,
	}
}

func (s *LeafService) AddRoutes(r chi.Router) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", PageHandler(s.Index))
	r.Post("/", PageHandler(s.Upload))
	r.Get("/reset", NoContentHandler(s.Reset))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return struct{}{}, nil }))
		r.Get("/labels", RestHandler(s.Labels))
		r.Post("/predict", RestHandler(s.Predict))
		r.Get("/history", RestHandler(s.History))
		r.Delete("/history", NoContentHandler(s.Reset))
	})
}

type historyItem struct {
	api.Record
	Preview template.URL
}

type pageData struct {
	Prediction      *api.Prediction
	Preview         template.URL
	Recommendations []string
	History         []historyItem
	Quality         api.Quality
	Pesticides      []string
}

// sniffLen base64 characters cover the 512 bytes content sniffing reads.
const sniffLen = 684

// previewURL builds an inline data uri for an uploaded image.
func previewURL(imageBase64 string) template.URL {
	mime := "image/jpeg"
	head := imageBase64
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if raw, err := base64.StdEncoding.DecodeString(head); err == nil {
		if detected := http.DetectContentType(raw); strings.HasPrefix(detected, "image/") {
			mime = detected
		}
	}
	return template.URL("data:" + mime + ";base64," + imageBase64)
}

func (s *LeafService) session(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	current := s.sessions.Read(r)

	id, err := s.store.EnsureSession(r.Context(), current)
	if err != nil {
		return uuid.Nil, CodedError(http.StatusInternalServerError, err)
	}

	if id != current {
		if err := s.sessions.Write(w, id); err != nil {
			return uuid.Nil, CodedErrorf(http.StatusInternalServerError, "error encoding session cookie: %w", err)
		}
	}
	return id, nil
}

func (s *LeafService) render(w http.ResponseWriter, r *http.Request, sessionId uuid.UUID, latest *history.Record) error {
	records, err := s.store.History(r.Context(), sessionId)
	if err != nil {
		return CodedError(http.StatusInternalServerError, err)
	}

	data := pageData{
		Quality:    convertQuality(core.QualityTrend(history.Predictions(records))),
		Pesticides: core.Pesticides,
	}

	if latest == nil && len(records) > 0 {
		latest = &records[len(records)-1]
	}
	if latest != nil {
		prediction := api.Prediction{
			Filename:        latest.Filename,
			Label:           string(latest.Prediction),
			Confidence:      latest.Confidence,
			Recommendations: s.recommendations.For(latest.Prediction),
		}
		data.Prediction = &prediction
		data.Preview = previewURL(latest.ImageBase64)
		data.Recommendations = prediction.Recommendations
	}

	for _, record := range history.Display(records, history.DisplayLimit) {
		data.History = append(data.History, historyItem{
			Record:  convertRecord(record, false),
			Preview: previewURL(record.ImageBase64),
		})
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return CodedErrorf(http.StatusInternalServerError, "error rendering page: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("error writing page", "error", err)
	}
	return nil
}

func (s *LeafService) Index(w http.ResponseWriter, r *http.Request) error {
	sessionId, err := s.session(w, r)
	if err != nil {
		return err
	}
	return s.render(w, r, sessionId, nil)
}

// readUpload returns the bytes and client filename of the multipart image field.
func (s *LeafService) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", CodedErrorf(http.StatusRequestEntityTooLarge, "image exceeds %d bytes", s.maxUploadBytes)
		}
		return nil, "", CodedErrorf(http.StatusBadRequest, "expected a multipart form with an '%s' field", imageField)
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		return nil, "", CodedErrorf(http.StatusBadRequest, "no image uploaded in field '%s'", imageField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", CodedErrorf(http.StatusBadRequest, "error reading uploaded image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", CodedErrorf(http.StatusBadRequest, "uploaded image is empty")
	}

	return data, header.Filename, nil
}

// classifyUpload stages the upload in the uploads directory, classifies it
// from disk and removes the staged copy.
func (s *LeafService) classifyUpload(filename string, data []byte) (core.Prediction, error) {
	path, err := s.stager.Stage(filename, data)
	if err != nil {
		if errors.Is(err, core.ErrInvalidFilename) {
			return core.Prediction{}, CodedError(http.StatusBadRequest, err)
		}
		return core.Prediction{}, CodedError(http.StatusInternalServerError, err)
	}
	defer func() {
		if err := s.stager.Remove(path); err != nil {
			slog.Error("error removing staged upload", "path", path, "error", err)
		}
	}()

	prediction, err := s.classifier.ClassifyFile(path)
	if err != nil {
		if errors.Is(err, core.ErrInvalidImage) {
			return core.Prediction{}, CodedErrorf(http.StatusBadRequest, "uploaded file is not a supported image")
		}
		return core.Prediction{}, CodedError(http.StatusInternalServerError, err)
	}

	return prediction, nil
}

func (s *LeafService) Upload(w http.ResponseWriter, r *http.Request) error {
	data, filename, err := s.readUpload(w, r)
	if err != nil {
		return err
	}

	sessionId, err := s.session(w, r)
	if err != nil {
		return err
	}

	prediction, err := s.classifyUpload(filename, data)
	if err != nil {
		return err
	}

	record, err := s.store.Append(r.Context(), sessionId, filename, data, prediction)
	if err != nil {
		return CodedError(http.StatusInternalServerError, err)
	}

	slog.Info("classified upload", "session_id", sessionId, "record_id", record.ID, "label", prediction.Label, "confidence", prediction.Confidence)

	if s.archiver != nil {
		if err := s.archiver.Enqueue(r.Context(), record); err != nil {
			slog.Error("error queueing upload for archive", "record_id", record.ID, "error", err)
		}
	}

	return s.render(w, r, sessionId, &record)
}

func (s *LeafService) Reset(w http.ResponseWriter, r *http.Request) error {
	sessionId := s.sessions.Read(r)
	if sessionId == uuid.Nil {
		return nil
	}

	if err := s.store.Clear(r.Context(), sessionId); err != nil {
		return CodedError(http.StatusInternalServerError, err)
	}

	if s.archiver != nil {
		if err := s.archiver.DeleteSession(r.Context(), sessionId); err != nil {
			return CodedError(http.StatusInternalServerError, err)
		}
	}

	slog.Info("cleared history", "session_id", sessionId)
	return nil
}

func (s *LeafService) Labels(r *http.Request) (any, error) {
	return api.LabelsResponse{
		Labels:     convertLabels(s.recommendations),
		Pesticides: core.Pesticides,
	}, nil
}

func (s *LeafService) Predict(r *http.Request) (any, error) {
	data, filename, err := s.readUpload(nil, r)
	if err != nil {
		return nil, err
	}

	prediction, err := s.classifyUpload(filename, data)
	if err != nil {
		return nil, err
	}

	return convertPrediction(filename, prediction, s.recommendations), nil
}

func (s *LeafService) History(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.HistoryParams](r)
	if err != nil {
		return nil, err
	}

	limit := history.DisplayLimit
	if params.Limit != nil {
		if *params.Limit < 0 {
			return nil, CodedErrorf(http.StatusBadRequest, "limit must not be negative")
		}
		limit = *params.Limit
	}

	records := []history.Record{}
	if sessionId := s.sessions.Read(r); sessionId != uuid.Nil {
		records, err = s.store.History(r.Context(), sessionId)
		if err != nil {
			return nil, CodedError(http.StatusInternalServerError, err)
		}
	}

	return api.HistoryResponse{
		Records: convertRecords(history.Display(records, limit), params.Images),
		Total:   len(records),
		Quality: convertQuality(core.QualityTrend(history.Predictions(records))),
	}, nil
}
