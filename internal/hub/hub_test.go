package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/boardlab/notify-api/pkg/errors"
	"github.com/boardlab/notify-api/pkg/metrics"

	"github.com/boardlab/notify-api/internal/model"
)

func newTestHub(cfg Config) *Hub {
	return NewHub(cfg, metrics.New("test"))
}

func testNotification(recipientID uuid.UUID) *model.Notification {
	return &model.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        model.NotificationTypeComment,
		Message:     "someone commented on your post",
		CreatedAt:   time.Now(),
	}
}

func TestPublishWithoutSubscriberDoesNotBlock(t *testing.T) {
	h := newTestHub(Config{})
	userID := uuid.New()

	done := make(chan struct{})
	go func() {
		h.Publish(userID, testNotification(userID))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscriber")
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	h := newTestHub(Config{})
	userID := uuid.New()

	handle, err := h.Subscribe(userID)
	require.NoError(t, err)

	n := testNotification(userID)
	h.Publish(userID, n)

	select {
	case got := <-handle.Events():
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notification never reached the subscriber")
	}
}

func TestPublishToDifferentUserIsDropped(t *testing.T) {
	h := newTestHub(Config{})
	userID := uuid.New()

	handle, err := h.Subscribe(userID)
	require.NoError(t, err)

	other := uuid.New()
	h.Publish(other, testNotification(other))

	select {
	case <-handle.Events():
		t.Fatal("received a notification addressed to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResubscribeReplacesAndClosesPriorHandle(t *testing.T) {
	h := newTestHub(Config{})
	userID := uuid.New()

	first, err := h.Subscribe(userID)
	require.NoError(t, err)

	second, err := h.Subscribe(userID)
	require.NoError(t, err)

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first handle was not closed on resubscribe")
	}

	n := testNotification(userID)
	h.Publish(userID, n)

	select {
	case got := <-second.Events():
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("second handle never received the notification")
	}

	select {
	case <-first.Events():
		t.Fatal("replaced handle still received a notification")
	default:
	}

	assert.Equal(t, 1, h.Subscribers())
}

func TestUnsubscribeIsIdempotentAndHandleGuarded(t *testing.T) {
	h := newTestHub(Config{})
	userID := uuid.New()

	first, err := h.Subscribe(userID)
	require.NoError(t, err)

	second, err := h.Subscribe(userID)
	require.NoError(t, err)

	// Cleaning up the replaced handle must not evict the current one.
	h.Unsubscribe(userID, first)
	assert.Equal(t, 1, h.Subscribers())

	h.Unsubscribe(userID, second)
	assert.Equal(t, 0, h.Subscribers())

	// Repeating is a no-op.
	h.Unsubscribe(userID, second)
	assert.Equal(t, 0, h.Subscribers())
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := newTestHub(Config{BufferSize: 1})
	userID := uuid.New()

	_, err := h.Subscribe(userID)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		// Nothing drains the handle; the second publish must drop, not block.
		h.Publish(userID, testNotification(userID))
		h.Publish(userID, testNotification(userID))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full channel")
	}
}

func TestSubscribeRegistryCap(t *testing.T) {
	h := newTestHub(Config{MaxSubscribers: 2})

	userA := uuid.New()
	userB := uuid.New()

	_, err := h.Subscribe(userA)
	require.NoError(t, err)
	_, err = h.Subscribe(userB)
	require.NoError(t, err)

	_, err = h.Subscribe(uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrResourceExhausted))

	// Replacing an existing registration never counts against the cap.
	_, err = h.Subscribe(userA)
	assert.NoError(t, err)
}

func TestCloseShutsDownAllHandles(t *testing.T) {
	h := newTestHub(Config{})

	handles := make([]*Handle, 0, 5)
	for i := 0; i < 5; i++ {
		handle, err := h.Subscribe(uuid.New())
		require.NoError(t, err)
		handles = append(handles, handle)
	}

	h.Close()

	for _, handle := range handles {
		select {
		case <-handle.Done():
		case <-time.After(time.Second):
			t.Fatal("handle not closed on hub shutdown")
		}
	}
	assert.Equal(t, 0, h.Subscribers())
}

func TestConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	h := newTestHub(Config{BufferSize: 4})

	users := make([]uuid.UUID, 16)
	for i := range users {
		users[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				userID := users[(i+j)%len(users)]
				switch j % 3 {
				case 0:
					if handle, err := h.Subscribe(userID); err == nil && j%6 == 0 {
						h.Unsubscribe(userID, handle)
					}
				case 1:
					h.Publish(userID, testNotification(userID))
				case 2:
					h.Publish(userID, &model.Notification{
						ID:      uuid.New(),
						Message: fmt.Sprintf("message %d", j),
					})
				}
			}
		}(i)
	}
	wg.Wait()
}
