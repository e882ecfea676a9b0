// Package kafka feeds session submissions published on a Kafka topic into the
// ingestion pipeline.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/pkg/logger"
	"github.com/okian/artemis/pkg/metrics"
	kafkago "github.com/segmentio/kafka-go"
)

// Config holds the reader settings.
type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// Submitter accepts decoded submissions. It reports duplicates separately
// from failures so retries of the same submission are not errors.
type Submitter interface {
	Submit(ctx context.Context, e model.SessionEvent) (duplicate bool, err error)
}

// reader is the subset of *kafka.Reader the consumer needs.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SessionConsumer reads submissions from a topic and hands them to a Submitter.
type SessionConsumer struct {
	cfg       Config
	reader    reader
	submitter Submitter
	logger    logger.Logger
	now       func() time.Time
	backoff   time.Duration
	retryIf   func(error) bool
}

// Option configures a SessionConsumer.
type Option func(*SessionConsumer)

// WithLogger sets the consumer logger.
func WithLogger(l logger.Logger) Option {
	return func(c *SessionConsumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBackoff sets how long the consumer waits before resubmitting a message
// the pipeline had no room for.
func WithBackoff(d time.Duration) Option {
	return func(c *SessionConsumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithRetryIf marks Submit failures that are transient, such as a full
// ingestion queue. Those messages are resubmitted instead of dropped.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *SessionConsumer) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

func withReader(r reader) Option {
	return func(c *SessionConsumer) { c.reader = r }
}

func withClock(now func() time.Time) Option {
	return func(c *SessionConsumer) { c.now = now }
}

// NewSessionConsumer validates cfg and opens a group reader on the topic.
func NewSessionConsumer(cfg Config, submitter Submitter, opts ...Option) (*SessionConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, ErrNoGroup
	}
	if submitter == nil {
		return nil, ErrNoSubmitter
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}

	c := &SessionConsumer{
		cfg:       cfg,
		submitter: submitter,
		logger:    logger.Nop(),
		now:       time.Now,
		backoff:   200 * time.Millisecond,
		retryIf:   func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reader == nil {
		c.reader = kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       cfg.Topic,
			StartOffset: kafkago.FirstOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
		})
	}
	c.logger = c.logger.Named("kafka-consumer")
	return c, nil
}

// Close shuts down the underlying reader.
func (c *SessionConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run consumes until ctx is cancelled or the reader is closed. Messages that
// cannot be decoded are logged and committed past.
func (c *SessionConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "session consumer started",
		logger.String("topic", c.cfg.Topic),
		logger.String("group", c.cfg.GroupID),
		logger.String("brokers", strings.Join(c.cfg.Brokers, ",")),
	)
	defer c.logger.Info(context.Background(), "session consumer stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafkago.ErrGroupClosed):
				return nil
			}
			c.logger.Error(ctx, "fetch failed", logger.Error(err))
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			return err
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !errors.Is(err, context.Canceled) || ctx.Err() == nil {
				c.logger.Error(ctx, "commit failed", logger.Error(err), logger.Int64("offset", msg.Offset))
			}
		}
		commitCancel()
	}
}

// handle decodes and submits one message. It only returns an error when ctx
// ends while the pipeline is saturated; the message is then left uncommitted.
func (c *SessionConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	sub, err := decodeSubmission(msg.Value)
	if err != nil {
		metrics.RecordSessionRejected("decode")
		c.logger.Warn(ctx, "dropping undecodable submission",
			logger.Error(err),
			logger.Int64("offset", msg.Offset),
			logger.Int("partition", msg.Partition),
		)
		return nil
	}

	ev := sub.Event(c.now())
	for {
		duplicate, err := c.submitter.Submit(ctx, ev)
		if err == nil {
			if duplicate {
				c.logger.Debug(ctx, "duplicate submission", logger.String("submission_id", ev.SubmissionID))
			}
			return nil
		}
		if !c.retryIf(err) {
			c.logger.Warn(ctx, "submission rejected",
				logger.Error(err),
				logger.String("submission_id", ev.SubmissionID),
			)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
}

// decodeSubmission parses and validates a message value.
func decodeSubmission(raw []byte) (model.Submission, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var sub model.Submission
	if err := dec.Decode(&sub); err != nil {
		return model.Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	if err := sub.Validate(); err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}
