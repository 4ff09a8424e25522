package reminders

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var remNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestOffsetFromMinutes(t *testing.T) {
	assert.Equal(t, OffsetNone, OffsetFromMinutes(0))
	assert.Equal(t, OffsetNone, OffsetFromMinutes(-5))
	assert.Equal(t, Offset10m, OffsetFromMinutes(10))
	assert.Equal(t, Offset30m, OffsetFromMinutes(30))
	assert.Equal(t, Offset1h, OffsetFromMinutes(60))
	assert.Equal(t, Offset2h, OffsetFromMinutes(120))
	assert.Equal(t, Offset1d, OffsetFromMinutes(1440))
}

func TestReminderAt(t *testing.T) {
	due := remNow.Add(time.Hour)

	at, ok := ReminderAt(due, Offset10m, remNow)
	assert.True(t, ok)
	assert.Equal(t, due.Add(-10*time.Minute), at)

	// No offset means no reminder.
	_, ok = ReminderAt(due, OffsetNone, remNow)
	assert.False(t, ok)

	// Offset larger than the lead time lands in the past: skipped.
	_, ok = ReminderAt(remNow.Add(10*time.Minute), Offset30m, remNow)
	assert.False(t, ok)

	// Exactly now is not strictly in the future.
	_, ok = ReminderAt(remNow.Add(30*time.Minute), Offset30m, remNow)
	assert.False(t, ok)
}

func TestScheduleOneShotReturnsParsableHandle(t *testing.T) {
	s, err := NewGocronScheduler(nil)
	require.NoError(t, err)
	defer s.Shutdown()

	handle, err := s.ScheduleOneShot(time.Now().Add(time.Hour), "due-reminders", Payload{TaskID: "t1"})
	require.NoError(t, err)
	_, err = uuid.Parse(handle)
	assert.NoError(t, err)
}

func TestCancelIdempotent(t *testing.T) {
	s, err := NewGocronScheduler(nil)
	require.NoError(t, err)
	defer s.Shutdown()

	handle, err := s.ScheduleOneShot(time.Now().Add(time.Hour), "due-reminders", Payload{TaskID: "t1"})
	require.NoError(t, err)

	assert.NoError(t, s.Cancel(handle))
	// Second cancel finds nothing to release and still succeeds.
	assert.NoError(t, s.Cancel(handle))
	// A handle that never existed behaves the same way.
	assert.NoError(t, s.Cancel(uuid.NewString()))

	assert.Error(t, s.Cancel("not-a-handle"))
}

func TestScheduledReminderFires(t *testing.T) {
	fired := make(chan Payload, 1)
	s, err := NewGocronScheduler(func(channelID string, p Payload) {
		assert.Equal(t, "due-reminders", channelID)
		fired <- p
	})
	require.NoError(t, err)
	defer s.Shutdown()
	s.Start()

	_, err = s.ScheduleOneShot(time.Now().Add(50*time.Millisecond), "due-reminders", Payload{
		TaskID: "t1",
		RoomID: "r1",
		Title:  "Buy milk",
	})
	require.NoError(t, err)

	select {
	case p := <-fired:
		assert.Equal(t, "t1", p.TaskID)
		assert.Equal(t, "r1", p.RoomID)
	case <-time.After(3 * time.Second):
		t.Fatal("reminder never fired")
	}
}

type fakeScheduler struct {
	cancelled []string
	cancelErr error
}

func (f *fakeScheduler) EnsureChannel(string, ChannelConfig) {}
func (f *fakeScheduler) ScheduleOneShot(time.Time, string, Payload) (string, error) {
	return "", nil
}
func (f *fakeScheduler) Cancel(handle string) error {
	f.cancelled = append(f.cancelled, handle)
	return f.cancelErr
}

func TestCancelQuietly(t *testing.T) {
	f := &fakeScheduler{cancelErr: errors.New("broker down")}
	handle := "abc"

	CancelQuietly(f, &handle)
	assert.Equal(t, []string{"abc"}, f.cancelled)

	// Nil and empty handles are a no-op.
	CancelQuietly(f, nil)
	empty := ""
	CancelQuietly(f, &empty)
	assert.Len(t, f.cancelled, 1)

	CancelQuietly(nil, &handle)
}
