// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/metrics"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"github.com/google/uuid"
)

const sendTimeout = 30 * time.Second

// ErrStopped is returned when scheduling after Stop.
var ErrStopped = errors.New("email dispatcher stopped")

// TokenIssuer mints single-use tokens for email links.
type TokenIssuer interface {
	Issue(ctx context.Context, accountID *uuid.UUID, typ models.TokenType, ttl time.Duration) (string, error)
}

// Options configures a Dispatcher.
type Options struct {
	FrontendURL     string
	Workers         int
	QueueSize       int
	VerificationTTL time.Duration
	Logger          *slog.Logger
}

type job struct {
	msg      *Message
	template string
}

// Dispatcher renders notification emails and delivers them on a pool of
// workers. Delivery failures are logged and counted, never returned.
type Dispatcher struct {
	mailer  Mailer
	tokens  TokenIssuer
	logger  *slog.Logger
	jobs    chan job
	opts    Options
	wg      sync.WaitGroup
	mu      sync.RWMutex
	start   sync.Once
	stopped bool
}

// NewDispatcher creates a Dispatcher. Call Start before scheduling.
func NewDispatcher(mailer Mailer, tokens TokenIssuer, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 24 * time.Hour
	}
	opts.FrontendURL = strings.TrimSuffix(opts.FrontendURL, "/")
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		mailer: mailer,
		tokens: tokens,
		logger: logger,
		jobs:   make(chan job, opts.QueueSize),
		opts:   opts,
	}
}

// Start launches the delivery workers. Deliveries outlive ctx cancellation
// so that Stop can drain the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.start.Do(func() {
		sendCtx := context.WithoutCancel(ctx)
		for range d.opts.Workers {
			d.wg.Add(1)
			go d.work(sendCtx)
		}
	})
}

// Stop closes the queue and waits for queued jobs to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

// SendVerificationEmail issues a verification token for the account and
// schedules the verification email.
func (d *Dispatcher) SendVerificationEmail(ctx context.Context, accountID uuid.UUID, to, username string) error {
	token, err := d.tokens.Issue(ctx, &accountID, models.TokenEmailVerification, d.opts.VerificationTTL)
	if err != nil {
		return fmt.Errorf("issuing verification token: %w", err)
	}

	msg, err := Render(ctx, TemplateVerification, map[string]string{
		"username":         username,
		"verification_url": d.opts.FrontendURL + "/auth/verify-email/" + token,
	})
	if err != nil {
		return err
	}
	msg.To = to

	return d.enqueue(ctx, job{msg: msg, template: TemplateVerification})
}

// SendPasswordResetEmail schedules a password reset email carrying token.
func (d *Dispatcher) SendPasswordResetEmail(ctx context.Context, to, username, token string) error {
	msg, err := Render(ctx, TemplatePasswordReset, map[string]string{
		"username":  username,
		"reset_url": d.opts.FrontendURL + "/auth/reset-password/" + token,
	})
	if err != nil {
		return err
	}
	msg.To = to

	return d.enqueue(ctx, job{msg: msg, template: TemplatePasswordReset})
}

// enqueue waits for queue capacity until ctx ends.
func (d *Dispatcher) enqueue(ctx context.Context, j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.jobs <- j:
		metrics.EmailQueueDepth.Inc()
		return nil
	case <-ctx.Done():
		metrics.EmailsSent.WithLabelValues(j.template, "dropped").Inc()
		d.logger.Error("email_dropped",
			"template", j.template,
			"to", j.msg.To,
			"error", ctx.Err(),
		)
		return fmt.Errorf("email queue full: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for j := range d.jobs {
		metrics.EmailQueueDepth.Dec()
		d.deliver(ctx, j)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.mailer.Send(ctx, j.msg); err != nil {
		metrics.EmailsSent.WithLabelValues(j.template, "failed").Inc()
		d.logger.Error("email_send_failed",
			"template", j.template,
			"to", j.msg.To,
			"error", err,
		)
		return
	}

	metrics.EmailsSent.WithLabelValues(j.template, "sent").Inc()
	d.logger.Info("email_sent", "template", j.template, "to", j.msg.To)
}
