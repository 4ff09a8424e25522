// Package reminders schedules one-shot task reminders and owns their
// cancellation discipline: cancellation is idempotent and cleanup paths
// never propagate its failure.
package reminders

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"taskcolab/pkg/logger"
)

// Payload travels with the scheduled reminder and reaches the delivery
// sink when it fires.
type Payload struct {
	TaskID string
	RoomID string
	Title  string
	Body   string
}

// DeliverFunc receives a reminder when it fires.
type DeliverFunc func(channelID string, p Payload)

type ChannelConfig struct {
	Name string
}

// Scheduler is the local-notification surface the task service depends on.
type Scheduler interface {
	EnsureChannel(channelID string, cfg ChannelConfig)
	ScheduleOneShot(at time.Time, channelID string, p Payload) (string, error)
	// Cancel is idempotent and tolerates handles that already fired or
	// were already cancelled.
	Cancel(handle string) error
}

// GocronScheduler backs Scheduler with a gocron one-time job per reminder.
// The job ID doubles as the opaque notification handle.
type GocronScheduler struct {
	sched    gocron.Scheduler
	deliver  DeliverFunc
	mu       sync.Mutex
	channels map[string]ChannelConfig
}

func NewGocronScheduler(deliver DeliverFunc) (*GocronScheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if deliver == nil {
		deliver = func(channelID string, p Payload) {
			logger.Info("Reminder fired (no sink): channel=%s task=%s", channelID, p.TaskID)
		}
	}
	return &GocronScheduler{
		sched:    sched,
		deliver:  deliver,
		channels: make(map[string]ChannelConfig),
	}, nil
}

func (s *GocronScheduler) Start() {
	s.sched.Start()
}

func (s *GocronScheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// EnsureChannel registers the named delivery channel. Idempotent;
// re-registering overwrites the config.
func (s *GocronScheduler) EnsureChannel(channelID string, cfg ChannelConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channelID] = cfg
}

func (s *GocronScheduler) ScheduleOneShot(at time.Time, channelID string, p Payload) (string, error) {
	job, err := s.sched.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(func() {
			s.deliver(channelID, p)
		}),
		gocron.WithTags("reminder", p.RoomID),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return job.ID().String(), nil
}

func (s *GocronScheduler) Cancel(handle string) error {
	id, err := uuid.Parse(handle)
	if err != nil {
		return fmt.Errorf("invalid notification handle %q: %w", handle, err)
	}
	if err := s.sched.RemoveJob(id); err != nil {
		// Already fired or already cancelled: nothing left to release.
		if errors.Is(err, gocron.ErrJobNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// CancelQuietly is the ignore-error form used on delete/mark-done paths:
// the failure is observed in the log and never propagated, so cleanup can
// never block the primary action.
func CancelQuietly(s Scheduler, handle *string) {
	if s == nil || handle == nil || *handle == "" {
		return
	}
	if err := s.Cancel(*handle); err != nil {
		logger.Error("Reminder cancellation failed for handle %s: %v", *handle, err)
	}
}
