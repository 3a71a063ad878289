package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"leaf-backend/internal/history"
	"leaf-backend/internal/messaging"
	"leaf-backend/internal/storage"

	"github.com/google/uuid"
)

// ObjectKey is where an archived upload lives inside the bucket.
func ObjectKey(sessionId uuid.UUID, recordId uint, filename string) string {
	return path.Join(sessionId.String(), fmt.Sprint(recordId), path.Base("/"+filename))
}

func sessionPrefix(sessionId uuid.UUID) string {
	return sessionId.String() + "/"
}

// Archiver copies classified uploads into object storage. It consumes archive
// tasks from a queue so the request path only pays for a publish.
type Archiver struct {
	store     *history.Store
	objects   storage.ObjectStore
	bucket    string
	publisher messaging.Publisher
	reciever  messaging.Reciever

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewArchiver(store *history.Store, objects storage.ObjectStore, bucket string, publisher messaging.Publisher, reciever messaging.Reciever) *Archiver {
	return &Archiver{
		store:     store,
		objects:   objects,
		bucket:    bucket,
		publisher: publisher,
		reciever:  reciever,
		stop:      make(chan struct{}),
	}
}

func (a *Archiver) Bucket() string {
	return a.bucket
}

// Enqueue schedules the record for archiving.
func (a *Archiver) Enqueue(ctx context.Context, record history.Record) error {
	payload := messaging.ArchiveTaskPayload{
		SessionId: record.SessionID,
		RecordId:  record.ID,
		Filename:  record.Filename,
	}
	if err := a.publisher.PublishArchiveTask(ctx, payload); err != nil {
		return fmt.Errorf("error publishing archive task: %w", err)
	}
	return nil
}

// Start consumes tasks in the background until Stop is called or the
// queue is closed.
func (a *Archiver) Start() {
	slog.Info("starting archiver", "bucket", a.bucket)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		for {
			select {
			case <-a.stop:
				return
			case task, ok := <-a.reciever.Tasks():
				if !ok {
					return
				}
				a.ProcessTask(task)
			}
		}
	}()
}

func (a *Archiver) Stop() {
	slog.Info("stopping archiver")

	a.stopOnce.Do(func() {
		close(a.stop)
		a.publisher.Close()
		a.reciever.Close()
	})
	a.wg.Wait()
}

func (a *Archiver) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {
	case messaging.ArchiveQueue:
		var payload messaging.ArchiveTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling archive task", "error", err)
			if err := task.Reject(); err != nil {
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = a.archiveRecord(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (a *Archiver) archiveRecord(ctx context.Context, payload messaging.ArchiveTaskPayload) error {
	record, err := a.store.Get(ctx, payload.RecordId)
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			// Cleared or expired before the task ran.
			slog.Info("record no longer exists, skipping archive", "session_id", payload.SessionId, "record_id", payload.RecordId)
			return nil
		}
		return err
	}

	data, err := record.Image()
	if err != nil {
		return fmt.Errorf("error decoding stored image for record %d: %w", record.ID, err)
	}

	key := ObjectKey(record.SessionID, record.ID, record.Filename)
	if err := a.objects.PutObject(ctx, a.bucket, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error archiving record %d: %w", record.ID, err)
	}

	// A reset that ran during the put has already deleted the session prefix.
	if _, err := a.store.Get(ctx, record.ID); err != nil {
		if !errors.Is(err, history.ErrRecordNotFound) {
			return err
		}
		slog.Info("record removed while archiving, deleting object", "session_id", record.SessionID, "record_id", record.ID, "key", key)
		if err := a.objects.DeleteObjects(ctx, a.bucket, key); err != nil {
			return fmt.Errorf("error deleting orphaned archive %s: %w", key, err)
		}
		return nil
	}

	slog.Info("archived upload", "session_id", record.SessionID, "record_id", record.ID, "key", key)
	return nil
}

// DeleteSession removes every archived upload of the session.
func (a *Archiver) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	if err := a.objects.DeleteObjects(ctx, a.bucket, sessionPrefix(sessionId)); err != nil {
		return fmt.Errorf("error deleting archived uploads for session %s: %w", sessionId, err)
	}
	return nil
}
