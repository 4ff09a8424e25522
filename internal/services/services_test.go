package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcolab/internal/models"
	"taskcolab/internal/reminders"
	"taskcolab/internal/store"
)

// fakeStore is an in-memory store.Store for service tests.
type fakeStore struct {
	users  map[string]*models.User
	rooms  map[string]*models.Room
	tasks  map[string]*models.Task
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*models.User),
		rooms: make(map[string]*models.Room),
		tasks: make(map[string]*models.Task),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*models.User, error) {
	u := &models.User{UID: f.id("u"), Email: email, DisplayName: displayName, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[u.UID] = u
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	if u, ok := f.users[uid]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateRoom(ctx context.Context, name, code, createdBy string) (*models.Room, error) {
	now := time.Now()
	r := &models.Room{
		ID: f.id("r"), Name: name, Code: code, CreatedBy: createdBy,
		Members: []string{createdBy}, CreatedAt: now, UpdatedAt: now,
	}
	f.rooms[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	if r, ok := f.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	for _, r := range f.rooms {
		if r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) AddMember(ctx context.Context, roomID, uid string) error {
	r, ok := f.rooms[roomID]
	if !ok {
		return store.ErrNotFound
	}
	for _, m := range r.Members {
		if m == uid {
			return nil
		}
	}
	r.Members = append(r.Members, uid)
	r.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) ListRoomsForUser(ctx context.Context, uid string) ([]models.Room, error) {
	var out []models.Room
	for _, r := range f.rooms {
		for _, m := range r.Members {
			if m == uid {
				out = append(out, *r)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	cp := *task
	cp.ID = f.id("t")
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	f.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) GetTask(ctx context.Context, roomID, taskID string) (*models.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok || t.RoomID != roomID {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, roomID, taskID string, req *models.UpdateTaskRequest) error {
	t, ok := f.tasks[taskID]
	if !ok || t.RoomID != roomID {
		return store.ErrNotFound
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) MarkTaskDone(ctx context.Context, roomID, taskID string) error {
	t, ok := f.tasks[taskID]
	if !ok || t.RoomID != roomID {
		return store.ErrNotFound
	}
	t.Status = models.StatusDone
	hasFinished := false
	for _, tag := range t.Tags {
		if tag == models.TagFinished {
			hasFinished = true
		}
	}
	if !hasFinished {
		t.Tags = append(t.Tags, models.TagFinished)
	}
	t.NotificationID = nil
	t.ReminderAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, roomID, taskID string) error {
	t, ok := f.tasks[taskID]
	if !ok || t.RoomID != roomID {
		return store.ErrNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeStore) ListTasks(ctx context.Context, roomID string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.RoomID == roomID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) MaxTaskOrder(ctx context.Context, roomID string) (int, error) {
	max := 0
	for _, t := range f.tasks {
		if t.RoomID == roomID && t.Order > max {
			max = t.Order
		}
	}
	return max, nil
}

func (f *fakeStore) SetTaskOrder(ctx context.Context, roomID, taskID string, order int) error {
	t, ok := f.tasks[taskID]
	if !ok || t.RoomID != roomID {
		return store.ErrNotFound
	}
	t.Order = order
	t.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) SetTaskReminder(ctx context.Context, roomID, taskID string, reminderAt time.Time, notificationID string) error {
	t, ok := f.tasks[taskID]
	if !ok || t.RoomID != roomID {
		return store.ErrNotFound
	}
	t.ReminderAt = &reminderAt
	t.NotificationID = &notificationID
	return nil
}

func (f *fakeStore) Close() error { return nil }

// recordingScheduler captures scheduled and cancelled reminders.
type recordingScheduler struct {
	scheduled   []time.Time
	cancelled   []string
	nextHandle  int
	scheduleErr error
}

func (r *recordingScheduler) EnsureChannel(string, reminders.ChannelConfig) {}

func (r *recordingScheduler) ScheduleOneShot(at time.Time, channelID string, p reminders.Payload) (string, error) {
	if r.scheduleErr != nil {
		return "", r.scheduleErr
	}
	r.scheduled = append(r.scheduled, at)
	r.nextHandle++
	return fmt.Sprintf("h-%d", r.nextHandle), nil
}

func (r *recordingScheduler) Cancel(handle string) error {
	r.cancelled = append(r.cancelled, handle)
	return nil
}

func TestCreateRoomGeneratesCode(t *testing.T) {
	svc := NewRoomService(newFakeStore())

	room, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "  Groceries  "}, "alice")
	require.NoError(t, err)

	assert.Equal(t, "Groceries", room.Name)
	assert.Equal(t, []string{"alice"}, room.Members)
	assert.Len(t, room.Code, codeLength)
	for _, c := range room.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}
}

func TestCreateRoomRequiresName(t *testing.T) {
	svc := NewRoomService(newFakeStore())

	_, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "   "}, "alice")
	assert.Error(t, err)
}

func TestCreateRoomCodesAreDistinct(t *testing.T) {
	fs := newFakeStore()
	svc := NewRoomService(fs)

	a, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "A"}, "alice")
	require.NoError(t, err)
	b, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "B"}, "bob")
	require.NoError(t, err)

	assert.NotEqual(t, a.Code, b.Code)
}

func TestJoinRoomNormalizesCode(t *testing.T) {
	fs := newFakeStore()
	svc := NewRoomService(fs)

	room, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "A"}, "alice")
	require.NoError(t, err)

	joined, err := svc.JoinRoom(context.Background(), &models.JoinRoomRequest{Code: "  " + strings.ToLower(room.Code) + " "}, "bob")
	require.NoError(t, err)
	assert.Contains(t, joined.Members, "bob")
}

func TestJoinRoomAlreadyMemberIsNoOp(t *testing.T) {
	fs := newFakeStore()
	svc := NewRoomService(fs)

	room, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "A"}, "alice")
	require.NoError(t, err)

	joined, err := svc.JoinRoom(context.Background(), &models.JoinRoomRequest{Code: room.Code}, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, joined.Members)
}

func TestJoinRoomUnknownCode(t *testing.T) {
	svc := NewRoomService(newFakeStore())

	_, err := svc.JoinRoom(context.Background(), &models.JoinRoomRequest{Code: "ZZZZZZ"}, "bob")
	assert.ErrorContains(t, err, "not found")
}

func TestRoomDetailToleratesMissingUserDoc(t *testing.T) {
	fs := newFakeStore()
	svc := NewRoomService(fs)

	alice, err := fs.CreateUser(context.Background(), "alice@example.com", "Alice", "hash")
	require.NoError(t, err)
	room, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "A"}, alice.UID)
	require.NoError(t, err)
	require.NoError(t, fs.AddMember(context.Background(), room.ID, "ghost"))

	detail, err := svc.RoomDetail(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, detail.Members, 2)
	assert.Equal(t, "Alice", detail.Members[0].DisplayName)
	assert.Empty(t, detail.Members[0].PasswordHash)
	assert.Equal(t, "ghost", detail.Members[1].UID)
	assert.Empty(t, detail.Members[1].DisplayName)
}

func TestIsMember(t *testing.T) {
	fs := newFakeStore()
	svc := NewRoomService(fs)

	room, err := svc.CreateRoom(context.Background(), &models.CreateRoomRequest{Name: "A"}, "alice")
	require.NoError(t, err)

	ok, err := svc.IsMember(context.Background(), room.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsMember(context.Background(), room.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateTaskDefaults(t *testing.T) {
	fs := newFakeStore()
	svc := NewTaskService(fs, &recordingScheduler{})

	task, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{Title: " Buy milk "})
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, []string{"alice"}, task.Assignees)
	assert.Equal(t, []string{"todo"}, task.Tags)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.UrgencyMedium, task.Urgency)
	assert.Equal(t, 1, task.Order)
	assert.Nil(t, task.NotificationID)

	// Orders keep growing past the current maximum.
	next, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{Title: "Next"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.Order)
}

func TestCreateTaskFinishedTagMeansDone(t *testing.T) {
	svc := NewTaskService(newFakeStore(), &recordingScheduler{})

	task, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title: "Archived",
		Tags:  []string{models.TagFinished},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, task.Status)
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	svc := NewTaskService(newFakeStore(), &recordingScheduler{})

	_, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{Title: "  "})
	assert.Error(t, err)
}

func TestCreateTaskSchedulesFutureReminder(t *testing.T) {
	sched := &recordingScheduler{}
	svc := NewTaskService(newFakeStore(), sched)

	due := time.Now().Add(2 * time.Hour)
	offset := 30
	task, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title:             "Call dentist",
		DueAt:             &due,
		ReminderOffsetMin: &offset,
	})
	require.NoError(t, err)

	require.Len(t, sched.scheduled, 1)
	assert.WithinDuration(t, due.Add(-30*time.Minute), sched.scheduled[0], time.Second)
	require.NotNil(t, task.NotificationID)
	assert.Equal(t, "h-1", *task.NotificationID)
	require.NotNil(t, task.ReminderAt)
}

func TestCreateTaskSkipsPastReminder(t *testing.T) {
	sched := &recordingScheduler{}
	svc := NewTaskService(newFakeStore(), sched)

	// Due in ten minutes with a thirty-minute lead: the reminder time is
	// already behind us, so nothing is scheduled and the task still lands.
	due := time.Now().Add(10 * time.Minute)
	offset := 30
	task, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title:             "Too late for a heads-up",
		DueAt:             &due,
		ReminderOffsetMin: &offset,
	})
	require.NoError(t, err)
	assert.Empty(t, sched.scheduled)
	assert.Nil(t, task.NotificationID)
}

func TestCreateTaskSurfacesSchedulingFailure(t *testing.T) {
	sched := &recordingScheduler{scheduleErr: fmt.Errorf("scheduler unavailable")}
	svc := NewTaskService(newFakeStore(), sched)

	due := time.Now().Add(2 * time.Hour)
	offset := 30
	_, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title:             "Doomed",
		DueAt:             &due,
		ReminderOffsetMin: &offset,
	})
	assert.ErrorContains(t, err, "reminder scheduling failed")
}

func TestMarkDoneCancelsReminderAndIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	sched := &recordingScheduler{}
	svc := NewTaskService(fs, sched)

	due := time.Now().Add(2 * time.Hour)
	offset := 60
	task, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title:             "Water plants",
		DueAt:             &due,
		ReminderOffsetMin: &offset,
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkDone(context.Background(), "r1", task.ID))
	assert.Equal(t, []string{"h-1"}, sched.cancelled)

	got, err := fs.GetTask(context.Background(), "r1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Contains(t, got.Tags, models.TagFinished)
	assert.Nil(t, got.NotificationID)

	// Marking done again: no handle left to cancel, no duplicate tag,
	// still a success.
	require.NoError(t, svc.MarkDone(context.Background(), "r1", task.ID))
	assert.Len(t, sched.cancelled, 1)
	got, err = fs.GetTask(context.Background(), "r1", task.ID)
	require.NoError(t, err)
	count := 0
	for _, tag := range got.Tags {
		if tag == models.TagFinished {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDeleteTaskCancelsReminder(t *testing.T) {
	fs := newFakeStore()
	sched := &recordingScheduler{}
	svc := NewTaskService(fs, sched)

	due := time.Now().Add(2 * time.Hour)
	offset := 10
	task, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title:             "Throwaway",
		DueAt:             &due,
		ReminderOffsetMin: &offset,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(context.Background(), "r1", task.ID))
	assert.Equal(t, []string{"h-1"}, sched.cancelled)

	_, err = fs.GetTask(context.Background(), "r1", task.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestUpdateTaskRejectsEmptyTitle(t *testing.T) {
	svc := NewTaskService(newFakeStore(), &recordingScheduler{})

	empty := "  "
	err := svc.UpdateTask(context.Background(), "r1", "t1", &models.UpdateTaskRequest{Title: &empty})
	assert.Error(t, err)
}

func TestListTasksRanksAndFilters(t *testing.T) {
	fs := newFakeStore()
	svc := NewTaskService(fs, &recordingScheduler{})

	_, err := svc.CreateTask(context.Background(), "r1", "bob", &models.CreateTaskRequest{
		Title:   "Theirs urgent",
		Urgency: models.UrgencyHigh,
	})
	require.NoError(t, err)
	_, err = svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{
		Title:   "Mine low",
		Urgency: models.UrgencyLow,
	})
	require.NoError(t, err)

	all, err := svc.ListTasks(context.Background(), "r1", "alice", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Theirs urgent", all[0].Title)

	mine, err := svc.ListTasks(context.Background(), "r1", "alice", true)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Mine low", mine[0].Title)
}

func TestReorderWritesThroughPositions(t *testing.T) {
	fs := newFakeStore()
	svc := NewTaskService(fs, &recordingScheduler{})

	a, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{Title: "a"})
	require.NoError(t, err)
	b, err := svc.CreateTask(context.Background(), "r1", "alice", &models.CreateTaskRequest{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Reorder(context.Background(), "r1", []string{b.ID, a.ID}))

	gotA, err := fs.GetTask(context.Background(), "r1", a.ID)
	require.NoError(t, err)
	gotB, err := fs.GetTask(context.Background(), "r1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotB.Order)
	assert.Equal(t, 2, gotA.Order)
}
