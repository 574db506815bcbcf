// Package natsflow dispatches task status workflows as messages on a NATS
// JetStream stream. A consumer of the stream runs the workflow; the execution
// handle is the stream sequence of the published message.
package natsflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/phrazzld/taskr/internal/workflow"
)

// StreamName is the JetStream stream holding workflow requests.
const StreamName = "TASK_STATUS"

// Publisher is the subset of jetstream.JetStream used by Starter.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Starter implements workflow.Starter by publishing to JetStream.
type Starter struct {
	js      Publisher
	subject string
	logger  *slog.Logger
}

// NewStarter creates a Starter publishing on subject.
func NewStarter(js Publisher, subject string, logger *slog.Logger) *Starter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Starter{
		js:      js,
		subject: subject,
		logger:  logger.With(slog.String("component", "natsflow")),
	}
}

var _ workflow.Starter = (*Starter)(nil)

// StartExecution implements workflow.Starter. Each message carries a unique
// message ID so JetStream drops duplicates from client retries.
func (s *Starter) StartExecution(ctx context.Context, in workflow.Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow input: %w", err)
	}

	ack, err := s.js.Publish(ctx, s.subject, data, jetstream.WithMsgID(uuid.NewString()))
	if err != nil {
		return "", fmt.Errorf("failed to publish workflow request: %w", err)
	}

	handle := fmt.Sprintf("nats:%s:%d", ack.Stream, ack.Sequence)
	s.logger.DebugContext(ctx, "workflow request published",
		slog.String("task_id", in.TaskID),
		slog.String("handle", handle))
	return handle, nil
}

// Connect dials NATS and makes sure the workflow stream exists.
// The caller owns the returned connection.
func Connect(ctx context.Context, url, subject string, logger *slog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name("taskr"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Task status workflow requests",
		Subjects:    []string{subject},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  2 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create stream: %w", err)
	}

	logger.Info("connected to NATS", slog.String("stream", StreamName), slog.String("subject", subject))
	return nc, js, nil
}
