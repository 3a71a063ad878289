//go:build integration

package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func TestRabbitMQArchiveTask(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rabbitmqContainer, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine")
	require.NoError(t, err, "Failed to start RabbitMQ container")
	t.Cleanup(func() {
		if err := rabbitmqContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate RabbitMQ container: %v", err)
		}
	})

	connStr, err := rabbitmqContainer.AmqpURL(ctx)
	require.NoError(t, err, "Failed to get RabbitMQ AMQP URL")

	publisher, err := NewRabbitMQPublisher(connStr)
	require.NoError(t, err)
	defer publisher.Close()

	receiver, err := NewRabbitMQReceiver(connStr)
	require.NoError(t, err)
	defer receiver.Close()

	payload := ArchiveTaskPayload{SessionId: uuid.New(), RecordId: 3, Filename: "leaf.jpg"}
	require.NoError(t, publisher.PublishArchiveTask(ctx, payload))

	select {
	case task := <-receiver.Tasks():
		assert.Equal(t, ArchiveQueue, task.Type())

		var received ArchiveTaskPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &received))
		assert.Equal(t, payload, received)

		require.NoError(t, task.Ack())
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for task")
	}
}
