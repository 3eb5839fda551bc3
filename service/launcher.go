package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"slidecast/dto"
)

type LaunchInput struct {
	JobID      uuid.UUID
	StagedPath string
	Filename   string
	Payload    dto.WorkerPayload
}

// WorkerLauncher hands a job to the external worker. The worker's lifetime
// is independent of the request that launched it; progress comes back through
// the PATCH callback, never through this interface.
type WorkerLauncher interface {
	Launch(ctx context.Context, input LaunchInput) error
}

// ExecLauncher starts the worker as a detached OS process, the same way the
// transcoder shells out to ffmpeg, except the process is released instead of
// waited on.
type ExecLauncher struct {
	Command     string
	Script      string
	CallbackURL string
}

func (l *ExecLauncher) Launch(ctx context.Context, input LaunchInput) error {
	payload := input.Payload
	payload.CallbackURL = fmt.Sprintf("%s/api/jobs/%s", l.CallbackURL, input.JobID)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	cmd := exec.Command(l.Command, l.Script, input.StagedPath, input.JobID.String(), string(body))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker process: %w", err)
	}
	// Detach. The process reports back over HTTP; reaping it is the OS's
	// problem, not ours.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release worker process: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", input.JobID.String()).
		Str("command", l.Command).
		Msg("worker process launched")
	return nil
}

const (
	launchExchange   = "narration_exchange"
	launchRoutingKey = "narration.request"
)

// QueueLauncher publishes the launch request to RabbitMQ for deployments
// where a worker fleet consumes jobs instead of being spawned per request.
type QueueLauncher struct {
	conn        *amqp.Connection
	kind        string
	callbackURL string
}

func NewQueueLauncher(conn *amqp.Connection, kind, callbackURL string) *QueueLauncher {
	if kind == "" {
		kind = "topic"
	}
	return &QueueLauncher{
		conn:        conn,
		kind:        kind,
		callbackURL: callbackURL,
	}
}

func (l *QueueLauncher) Launch(ctx context.Context, input LaunchInput) error {
	ch, err := l.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(launchExchange, l.kind, true, false, false, false, nil); err != nil {
		return err
	}

	msg := dto.JobMessage{
		JobId:      input.JobID,
		StagedPath: input.StagedPath,
		FileName:   input.Filename,
		Payload:    input.Payload,
	}
	msg.Payload.CallbackURL = fmt.Sprintf("%s/api/jobs/%s", l.callbackURL, input.JobID)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		launchExchange,
		launchRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", input.JobID.String()).
		Str("routing_key", launchRoutingKey).
		Msg("launch request published")
	return nil
}
