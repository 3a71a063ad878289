//go:build integration

package integrationtests

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	backend "leaf-backend/internal/api"
	"leaf-backend/internal/archive"
	"leaf-backend/internal/core"
	"leaf-backend/internal/history"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadArchiveWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := createDB(t)
	objects := setupObjectStore(t, ctx)
	publisher, receiver := setupRabbitMQ(t, ctx)

	const bucket = "leaf-uploads"
	require.NoError(t, objects.CreateBucket(ctx, bucket))

	store, err := history.NewStore(db, 8)
	require.NoError(t, err)

	archiver := archive.NewArchiver(store, objects, bucket, publisher, receiver)
	archiver.Start()
	defer archiver.Stop()

	stager, err := core.NewUploadStager(t.TempDir())
	require.NoError(t, err)

	service := backend.NewLeafService(
		store,
		core.NewClassifier(&constantModel{label: core.LateBlight}),
		core.DefaultRecommendations(),
		stager,
		backend.NewSessionCodec([]byte("integration-secret"), time.Hour),
		archiver,
		0,
	)
	router := chi.NewRouter()
	service.AddRoutes(router)

	image := leafPNG(t)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "field-7.png")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), string(core.LateBlight))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	assert.Eventually(t, func() bool {
		listed, err := objects.ListObjects(ctx, bucket, "")
		if err != nil || len(listed) != 1 {
			return false
		}
		data, err := objects.GetObject(ctx, bucket, listed[0].Name)
		return err == nil && bytes.Equal(image, data)
	}, 30*time.Second, 200*time.Millisecond)

	req = httptest.NewRequest(http.MethodGet, "/reset", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	listed, err := objects.ListObjects(ctx, bucket, "")
	require.NoError(t, err)
	assert.Empty(t, listed)
}
