package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/config"
	"github.com/jmehdipour/visa-crm/internal/gateway"
	"github.com/jmehdipour/visa-crm/internal/message"
	"github.com/jmehdipour/visa-crm/internal/metrics"
	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/util"
)

type CustomerSource interface {
	ListExpiringOn(ctx context.Context, date string) ([]model.Customer, error)
}

type LogWriter interface {
	Append(ctx context.Context, e model.SendLog) (int64, error)
}

type Sender interface {
	SendText(ctx context.Context, phone, text string) gateway.Result
}

// EventPublisher mirrors appended log rows to a downstream stream.
type EventPublisher interface {
	Publish(ctx context.Context, e model.SendLog) error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Summary reports what one run did.
type Summary struct {
	RunID      string
	Date       string
	Candidates int
	Sent       int
	Failed     int
	Skipped    int
}

// Job sends the expiry-day reminder to every customer whose visa expires
// today in Location. Candidates are handled one at a time; a pause in
// [PauseMin, PauseMax] separates consecutive candidates.
type Job struct {
	// Dependencies
	Customers CustomerSource
	Logs      LogWriter
	Gateway   Sender
	Events    EventPublisher // optional
	Log       *zap.Logger

	// Behavior
	Location *time.Location
	Template string
	PauseMin time.Duration
	PauseMax time.Duration

	Now    func() time.Time
	Sleep  Sleeper
	Jitter func(n int64) int64 // uniform in [0, n)
}

func NewJob(
	customers CustomerSource,
	logs LogWriter,
	gw Sender,
	loc *time.Location,
	cfg config.NotifyConfig,
	log *zap.Logger,
) *Job {
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{
		Customers: customers,
		Logs:      logs,
		Gateway:   gw,
		Log:       log,
		Location:  loc,
		Template:  cfg.Template,
		PauseMin:  cfg.PauseMin,
		PauseMax:  cfg.PauseMax,
		Now:       time.Now,
		Sleep:     sleepCtx,
		Jitter:    rand.Int64N,
	}
}

// Run executes one notification run. Per-customer failures are recorded in the
// send log and do not stop the run; an error is returned only when candidates
// cannot be loaded, a log row cannot be written, or ctx is cancelled.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	if j.Location == nil {
		return Summary{}, errors.New("notify: location is not set")
	}
	tmpl := j.Template
	if tmpl == "" {
		tmpl = message.DefaultTemplate
	}

	started := j.Now()
	sum := Summary{
		RunID: util.NewID(started),
		Date:  util.Today(started, j.Location),
	}
	log := j.Log.With(zap.String("run_id", sum.RunID), zap.String("date", sum.Date))
	log.Info("notification run started", zap.String("timezone", j.Location.String()))

	candidates, err := j.Customers.ListExpiringOn(ctx, sum.Date)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return sum, fmt.Errorf("load candidates: %w", err)
	}
	sum.Candidates = len(candidates)
	log.Info("candidates loaded", zap.Int("count", len(candidates)))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			metrics.RunsTotal.WithLabelValues("aborted").Inc()
			return sum, err
		}

		entry := j.evaluate(ctx, log, c, tmpl, sum.Date)
		entry.RunID = sum.RunID
		entry.SentAt = j.Now().UTC()

		// the row for an in-flight candidate is written even if ctx was cancelled meanwhile
		if _, err := j.Logs.Append(context.WithoutCancel(ctx), entry); err != nil {
			metrics.RunsTotal.WithLabelValues("error").Inc()
			return sum, fmt.Errorf("append send log for %q: %w", c.CustomerName, err)
		}

		switch entry.Outcome {
		case model.OutcomeSent:
			sum.Sent++
		case model.OutcomeSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
		metrics.NotificationsTotal.WithLabelValues(entry.Outcome.String()).Inc()

		if j.Events != nil {
			if err := j.Events.Publish(ctx, entry); err != nil {
				log.Warn("publish notification event", zap.String("customer", c.CustomerName), zap.Error(err))
			}
		}

		if i < len(candidates)-1 {
			d := j.pause()
			log.Debug("waiting before next message", zap.Duration("delay", d))
			if err := j.Sleep(ctx, d); err != nil {
				metrics.RunsTotal.WithLabelValues("aborted").Inc()
				return sum, err
			}
		}
	}

	metrics.RunsTotal.WithLabelValues("completed").Inc()
	log.Info("notification run completed",
		zap.Int("sent", sum.Sent),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

// evaluate decides and performs the action for one candidate. Panics are
// recovered here so one bad record cannot end the run.
func (j *Job) evaluate(ctx context.Context, log *zap.Logger, c model.Customer, tmpl, today string) (entry model.SendLog) {
	entry = model.SendLog{
		CustomerName: c.CustomerName,
		Phone:        c.Destination(),
	}

	defer func() {
		if r := recover(); r != nil {
			entry.Outcome = model.OutcomeFailed
			entry.Status = fmt.Sprintf("error: unexpected failure: %v", r)
			log.Error("candidate processing panicked", zap.String("customer", c.CustomerName), zap.Any("panic", r))
		}
	}()

	text, renderErr := message.Render(tmpl, message.Fields{
		CustomerName:   c.CustomerName,
		VisaType:       c.VisaType,
		VisaExpiryDate: c.ExpiryDate(),
		TodayDate:      today,
	})
	entry.Message = text

	if entry.Phone == "" {
		log.Warn("skipping customer without phone number", zap.String("customer", c.CustomerName))
		entry.Outcome = model.OutcomeSkipped
		entry.Status = model.StatusNoPhone
		return entry
	}
	if renderErr != nil {
		log.Warn("skipping customer with incomplete record", zap.String("customer", c.CustomerName), zap.Error(renderErr))
		entry.Outcome = model.OutcomeSkipped
		entry.Status = "skipped: " + renderErr.Error()
		return entry
	}

	log.Info("processing", zap.String("customer", c.CustomerName), zap.String("phone", entry.Phone))

	res := j.Gateway.SendText(ctx, entry.Phone, text)
	entry.Status = res.Status
	entry.Outcome = res.Outcome
	if !entry.Outcome.Valid() || entry.Outcome == model.OutcomeSkipped {
		entry.Outcome = model.OutcomeFailed
	}
	return entry
}

func (j *Job) pause() time.Duration {
	span := j.PauseMax - j.PauseMin
	if span <= 0 {
		return j.PauseMin
	}
	return j.PauseMin + time.Duration(j.Jitter(int64(span)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
