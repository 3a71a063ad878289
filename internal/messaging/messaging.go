package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ArchiveQueue    = "archive_queue"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// ArchiveTaskPayload asks for a classified upload to be copied to object storage.
type ArchiveTaskPayload struct {
	SessionId uuid.UUID
	RecordId  uint
	Filename  string
}

type Publisher interface {
	PublishArchiveTask(ctx context.Context, payload ArchiveTaskPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
