package sender

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardlab/notify-api/internal/model"
)

func TestMultiSenderRoutesByMethod(t *testing.T) {
	var emailCalls, smsCalls int32

	m := NewMultiSender()
	m.Register(model.DeliveryMethodEmail, Func(func(context.Context, model.DeliveryMethod, string, string) error {
		atomic.AddInt32(&emailCalls, 1)
		return nil
	}))
	m.Register(model.DeliveryMethodSMS, Func(func(context.Context, model.DeliveryMethod, string, string) error {
		atomic.AddInt32(&smsCalls, 1)
		return nil
	}))

	require.NoError(t, m.Send(context.Background(), model.DeliveryMethodEmail, "a@b.c", "hi"))
	require.NoError(t, m.Send(context.Background(), model.DeliveryMethodSMS, "+1555", "hi"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&emailCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&smsCalls))
}

func TestMultiSenderUnknownMethod(t *testing.T) {
	m := NewMultiSender()
	err := m.Send(context.Background(), model.DeliveryMethodPush, "token", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sender registered")
}

func TestBreakerSenderOpensAfterFailures(t *testing.T) {
	var calls int32
	failing := Func(func(context.Context, model.DeliveryMethod, string, string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("gateway down")
	})

	s := NewBreakerSender(failing, 2, time.Minute)

	require.Error(t, s.Send(context.Background(), model.DeliveryMethodSMS, "+1555", "hi"))
	require.Error(t, s.Send(context.Background(), model.DeliveryMethodSMS, "+1555", "hi"))

	// Breaker is open now, the underlying sender must not be reached.
	require.Error(t, s.Send(context.Background(), model.DeliveryMethodSMS, "+1555", "hi"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBreakerSenderIsolatesMethods(t *testing.T) {
	snd := Func(func(_ context.Context, method model.DeliveryMethod, _, _ string) error {
		if method == model.DeliveryMethodSMS {
			return errors.New("gateway down")
		}
		return nil
	})

	s := NewBreakerSender(snd, 1, time.Minute)
	require.Error(t, s.Send(context.Background(), model.DeliveryMethodSMS, "+1555", "hi"))

	// SMS breaker tripped; email still flows.
	assert.NoError(t, s.Send(context.Background(), model.DeliveryMethodEmail, "a@b.c", "hi"))
}

func TestWebhookSender(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), model.DeliveryMethodPush, "device-token", "hello"))
	assert.Contains(t, string(gotBody), "device-token")
}

func TestWebhookSenderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	err := s.Send(context.Background(), model.DeliveryMethodPush, "device-token", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookSenderHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := NewWebhookSender(srv.URL)
	err := s.Send(ctx, model.DeliveryMethodPush, "device-token", "hello")
	require.Error(t, err)
}
