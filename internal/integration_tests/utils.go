//go:build integration

package integrationtests

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"leaf-backend/internal/core"
	"leaf-backend/internal/database"
	"leaf-backend/internal/messaging"
	"leaf-backend/internal/storage"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// constantModel always predicts label.
type constantModel struct {
	label core.Label
}

func (m *constantModel) Predict(input []float32) ([]float32, error) {
	scores := make([]float32, len(core.ClassNames))
	for i, label := range core.ClassNames {
		if label == m.label {
			scores[i] = 1
		}
	}
	return scores, nil
}

func (m *constantModel) Release() {}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 160, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func createDB(t *testing.T) *gorm.DB {
	uri := setupPostgresContainer(t, context.Background())
	db, err := database.NewDatabase(uri)
	require.NoError(t, err)

	return db
}

const (
	minioUsername = "admin"
	minioPassword = "password"
)

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	minioContainer, err := minio.Run(
		ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")

	t.Cleanup(func() {
		err := minioContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate MinIO container")
	})

	connStr, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO connection string")

	return "http://" + connStr
}

func setupObjectStore(t *testing.T, ctx context.Context) *storage.S3ObjectStore {
	t.Helper()

	endpoint := setupMinioContainer(t, ctx)

	objectStore, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)
	return objectStore
}

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	dbName, dbUser, dbPassword := "test_db", "test_user", "test_password"

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		err := postgresContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate PostgreSQL container")
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get PostgreSQL connection string")

	return connStr
}

func setupRabbitMQ(t *testing.T, ctx context.Context) (*messaging.RabbitMQPublisher, *messaging.RabbitMQReceiver) {
	rabbitmqContainer, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine")
	require.NoError(t, err, "Failed to start RabbitMQ container")

	t.Cleanup(func() {
		err := rabbitmqContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate RabbitMQ container")
	})

	connStr, err := rabbitmqContainer.AmqpURL(ctx)
	require.NoError(t, err, "Failed to get RabbitMQ AMQP URL")

	publisher, err := messaging.NewRabbitMQPublisher(connStr)
	require.NoError(t, err)

	receiver, err := messaging.NewRabbitMQReceiver(connStr)
	require.NoError(t, err)

	return publisher, receiver
}
