package notification

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/boardlab/notify-api/pkg/errors"
	"github.com/boardlab/notify-api/pkg/logger"
	"github.com/boardlab/notify-api/pkg/metrics"

	"github.com/boardlab/notify-api/internal/hub"
	"github.com/boardlab/notify-api/internal/model"
)

type fakeNotifications struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*model.Notification
	seq   int
	clock time.Time
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{
		rows:  make(map[uuid.UUID]*model.Notification),
		clock: time.Now(),
	}
}

func (f *fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n.ID = uuid.New()
	n.Read = false
	f.seq++
	n.CreatedAt = f.clock.Add(time.Duration(f.seq) * time.Millisecond)

	stored := *n
	f.rows[n.ID] = &stored
	return nil
}

func (f *fakeNotifications) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NotFound("notification", nil)
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNotifications) ListByRecipient(_ context.Context, recipientID uuid.UUID, limit, offset int) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*model.Notification
	for _, n := range f.rows {
		if n.RecipientID == recipientID {
			copied := *n
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.rows[id]; ok {
		n.Read = true
	}
	return nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, recipientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.RecipientID == recipientID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotifications) UnreadCount(_ context.Context, recipientID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.rows {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	items []*model.DeliveryQueueItem
}

func (f *fakeQueue) Enqueue(_ context.Context, item *model.DeliveryQueueItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = uuid.New()
	item.Status = model.DeliveryStatusPending
	item.RequestedAt = time.Now()
	stored := *item
	f.items = append(f.items, &stored)
	return nil
}

func (f *fakeQueue) Get(_ context.Context, id uuid.UUID) (*model.DeliveryQueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id {
			copied := *item
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("delivery queue item", nil)
}

func (f *fakeQueue) SelectPending(context.Context, int) ([]*model.DeliveryQueueItem, error) {
	return nil, nil
}

func (f *fakeQueue) MarkSent(context.Context, *model.DeliveryQueueItem) error {
	return nil
}

func (f *fakeQueue) MarkFailed(context.Context, *model.DeliveryQueueItem, int) error {
	return nil
}

func (f *fakeQueue) all() []*model.DeliveryQueueItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.DeliveryQueueItem(nil), f.items...)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUsers) add(pref model.ChannelPreference) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &model.User{
		ID:                uuid.New(),
		Email:             "user@example.com",
		ChannelPreference: pref,
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) UpdateChannelPreference(_ context.Context, id uuid.UUID, pref model.ChannelPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	user.ChannelPreference = pref
	return nil
}

type fixture struct {
	service       Service
	notifications *fakeNotifications
	queue         *fakeQueue
	users         *fakeUsers
	hub           *hub.Hub
}

func newFixture() *fixture {
	notifications := newFakeNotifications()
	queue := &fakeQueue{}
	users := newFakeUsers()
	liveHub := hub.NewHub(hub.Config{}, metrics.New("test"))
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	return &fixture{
		service:       NewService(notifications, queue, users, liveHub, nil, log),
		notifications: notifications,
		queue:         queue,
		users:         users,
		hub:           liveHub,
	}
}

func (f *fixture) create(t *testing.T, recipient *model.User) *model.Notification {
	t.Helper()
	n, err := f.service.Create(context.Background(), CreateInput{
		RecipientID: recipient.ID,
		Type:        model.NotificationTypeComment,
		SourceType:  "post",
		SourceID:    "42",
		Message:     "someone commented on your post",
	})
	require.NoError(t, err)
	return n
}

func TestCreatePersistsAndAppearsFirstInList(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)

	before, err := f.service.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)

	f.create(t, recipient)
	latest := f.create(t, recipient)

	after, err := f.service.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	list, err := f.service.List(context.Background(), recipient.ID, 20, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, latest.ID, list[0].ID, "newest notification must come first")
}

func TestCreateUnknownRecipientFails(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), CreateInput{
		RecipientID: uuid.New(),
		Type:        model.NotificationTypeLike,
		SourceType:  "post",
		SourceID:    "1",
		Message:     "someone liked your post",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestCreateUnknownActorFails(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)
	actorID := uuid.New()

	_, err := f.service.Create(context.Background(), CreateInput{
		RecipientID: recipient.ID,
		ActorID:     &actorID,
		Type:        model.NotificationTypeLike,
		SourceType:  "post",
		SourceID:    "1",
		Message:     "someone liked your post",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestCreatePublishesToLiveSubscriber(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)

	handle, err := f.hub.Subscribe(recipient.ID)
	require.NoError(t, err)

	n := f.create(t, recipient)

	select {
	case got := <-handle.Events():
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("live subscriber never received the notification")
	}
}

func TestCreateEnqueuesPerChannelPreference(t *testing.T) {
	f := newFixture()

	emailUser := f.users.add(model.ChannelPreferenceEmail)
	inAppUser := f.users.add(model.ChannelPreferenceNone)

	f.create(t, emailUser)
	f.create(t, inAppUser)

	items := f.queue.all()
	require.Len(t, items, 1)
	assert.Equal(t, emailUser.ID, items[0].UserID)
	assert.Equal(t, model.DeliveryMethodEmail, items[0].Method)
	assert.Equal(t, model.DeliveryStatusPending, items[0].Status)
	assert.Equal(t, 0, items[0].RetryCount)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)
	n := f.create(t, recipient)

	require.NoError(t, f.service.MarkRead(context.Background(), recipient.ID, n.ID))
	require.NoError(t, f.service.MarkRead(context.Background(), recipient.ID, n.ID))

	got, err := f.notifications.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	count, err := f.service.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkReadByNonOwnerIsForbidden(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)
	other := f.users.add(model.ChannelPreferenceNone)
	n := f.create(t, recipient)

	err := f.service.MarkRead(context.Background(), other.ID, n.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	got, err := f.notifications.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, got.Read, "forbidden mark-read must not mutate state")
}

func TestMarkReadUnknownNotification(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)

	err := f.service.MarkRead(context.Background(), recipient.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)

	for i := 0; i < 3; i++ {
		f.create(t, recipient)
	}

	require.NoError(t, f.service.MarkAllRead(context.Background(), recipient.ID))
	require.NoError(t, f.service.MarkAllRead(context.Background(), recipient.ID))

	count, err := f.service.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUnreadCountCacheInvalidatedOnCreate(t *testing.T) {
	f := newFixture()
	recipient := f.users.add(model.ChannelPreferenceNone)

	count, err := f.service.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	f.create(t, recipient)

	count, err = f.service.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "create must invalidate the cached count")
}

func TestUpdatePreference(t *testing.T) {
	f := newFixture()
	user := f.users.add(model.ChannelPreferenceNone)

	require.NoError(t, f.service.UpdatePreference(context.Background(), user.ID, model.ChannelPreferenceEmail))

	pref, err := f.service.GetPreference(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelPreferenceEmail, pref)

	err = f.service.UpdatePreference(context.Background(), user.ID, model.ChannelPreference("CARRIER_PIGEON"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}
