package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
)

const queueGroup = "study-workers"

type Queue struct {
	conn       *nats.Conn
	subject    string
	executor   *resilience.Executor
	logger     *slog.Logger
	jobTimeout time.Duration
	onLag      func(time.Duration)
	now        func() time.Time
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
	// JobTimeout bounds each handler invocation. Zero means no limit.
	JobTimeout time.Duration
	// OnQueueLag receives the delay between publish and delivery.
	OnQueueLag func(time.Duration)
}

// guideRequested is the message body published for every upload.
type guideRequested struct {
	GuideID     string    `json:"guide_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("study-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		executor:   options.ResilienceExecutor,
		logger:     logger,
		jobTimeout: options.JobTimeout,
		onLag:      options.OnQueueLag,
		now:        time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishGuideRequested(ctx context.Context, guideID string) error {
	payload, err := encodeMessage(guideID, q.now())
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, "nats.publish", func(context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded(err)
}

// SubscribeGuideRequested blocks until ctx is cancelled, then drains the
// subscription so in-flight jobs finish.
func (q *Queue) SubscribeGuideRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		q.handle(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, data []byte, handler func(context.Context, string) error) {
	msg, err := decodeMessage(data)
	if err != nil {
		q.logger.Error("nats_message_rejected", "error", err)
		return
	}
	if q.onLag != nil && !msg.RequestedAt.IsZero() {
		q.onLag(q.now().Sub(msg.RequestedAt))
	}

	handlerCtx, cancel := ctx, context.CancelFunc(func() {})
	if q.jobTimeout > 0 {
		handlerCtx, cancel = context.WithTimeout(ctx, q.jobTimeout)
	}
	defer cancel()

	if err := handler(handlerCtx, msg.GuideID); err != nil {
		q.logger.Error("guide_job_failed", "guide_id", msg.GuideID, "error", err)
	}
}

func encodeMessage(guideID string, at time.Time) ([]byte, error) {
	if strings.TrimSpace(guideID) == "" {
		return nil, fmt.Errorf("nats publish: empty guide id")
	}
	payload, err := json.Marshal(guideRequested{GuideID: guideID, RequestedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal guide request: %w", err)
	}
	return payload, nil
}

// decodeMessage also accepts a bare guide id so messages can be published by
// hand with `nats pub`.
func decodeMessage(data []byte) (guideRequested, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return guideRequested{}, fmt.Errorf("empty message")
	}
	if !strings.HasPrefix(raw, "{") {
		return guideRequested{GuideID: raw}, nil
	}

	var msg guideRequested
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return guideRequested{}, fmt.Errorf("decode guide request: %w", err)
	}
	if strings.TrimSpace(msg.GuideID) == "" {
		return guideRequested{}, fmt.Errorf("guide request without guide_id")
	}
	return msg, nil
}
