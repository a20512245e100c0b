package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/logging"
)

var (
	// ErrFireTimeInPast is returned by ScheduleAt for instants that are not in the future.
	ErrFireTimeInPast = errors.New("fire time is not in the future")
	// ErrNotScheduled is returned by Cancel for unknown identifiers.
	ErrNotScheduled = errors.New("notification not scheduled")
)

// Notification is what reaches the user. TaskID is the correlation data.
type Notification struct {
	UserID uint   `json:"userId"`
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Scheduled is a pending notification.
type Scheduled struct {
	ID     string    `json:"id"`
	FireAt time.Time `json:"fireAt"`
	Notification
}

// Sink delivers fired notifications over one channel.
type Sink interface {
	Name() string
	// Reachable reports whether the sink has an address for the user.
	Reachable(ctx context.Context, userID uint) (bool, error)
	Deliver(ctx context.Context, n Notification) error
}

type entry struct {
	cronID cron.EntryID
	item   Scheduled
}

// Scheduler is an in-process local notification service on top of cron one-shot entries.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	metrics *Metrics
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	sinks   []Sink
	entries map[string]entry
}

func NewScheduler(loc *time.Location, log *zap.SugaredLogger, metrics *Metrics, sinks ...Sink) *Scheduler {
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	cronLogger := cron.VerbosePrintfLogger(logging.StdLogger(log, "cron"))
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger))),
		log:     log.With("component", "notify"),
		metrics: metrics,
		now:     time.Now,
		timeout: 30 * time.Second,
		sinks:   sinks,
		entries: make(map[string]entry),
	}
}

// AddSink registers another delivery channel.
func (s *Scheduler) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RequestPermission is granted when at least one sink can reach the user.
func (s *Scheduler) RequestPermission(ctx context.Context, userID uint) (bool, error) {
	var errs []error
	for _, sink := range s.sinkList() {
		ok, err := sink.Reachable(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// ScheduleAt registers n to fire once at fireAt and returns its identifier.
func (s *Scheduler) ScheduleAt(fireAt time.Time, n Notification) (string, error) {
	if !fireAt.After(s.now()) {
		return "", ErrFireTimeInPast
	}

	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	cronID := s.cron.Schedule(once(fireAt), cron.FuncJob(func() { s.fire(id) }))
	s.entries[id] = entry{cronID: cronID, item: Scheduled{ID: id, FireAt: fireAt, Notification: n}}
	s.metrics.Scheduled.Inc()
	s.metrics.Pending.Set(float64(len(s.entries)))
	return id, nil
}

// ListScheduled returns pending notifications ordered by fire time.
func (s *Scheduler) ListScheduled() []Scheduled {
	s.mu.Lock()
	items := make([]Scheduled, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, e.item)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].FireAt.Before(items[j].FireAt)
	})
	return items
}

func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrNotScheduled
	}
	s.cron.Remove(e.cronID)
	delete(s.entries, id)
	s.metrics.Cancelled.Inc()
	s.metrics.Pending.Set(float64(len(s.entries)))
	return nil
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		s.cron.Remove(e.cronID)
		delete(s.entries, id)
		s.metrics.Pending.Set(float64(len(s.entries)))
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.deliver(ctx, e.item.Notification)
}

func (s *Scheduler) deliver(ctx context.Context, n Notification) {
	for _, sink := range s.sinkList() {
		if ok, err := sink.Reachable(ctx, n.UserID); err == nil && !ok {
			continue
		}
		if err := sink.Deliver(ctx, n); err != nil {
			s.metrics.Failed.WithLabelValues(sink.Name()).Inc()
			s.log.Warnw("deliver notification", "sink", sink.Name(), "user_id", n.UserID, "task_id", n.TaskID, "error", err)
			continue
		}
		s.metrics.Delivered.WithLabelValues(sink.Name()).Inc()
	}
}

func (s *Scheduler) sinkList() []Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sink(nil), s.sinks...)
}

// once is a cron schedule that activates a single time.
type once time.Time

func (o once) Next(t time.Time) time.Time {
	at := time.Time(o)
	if t.Before(at) {
		return at
	}
	return time.Time{}
}
