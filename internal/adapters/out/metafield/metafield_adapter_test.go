package metafield

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/logger"
	"github.com/suchimauz/delivery-date-availability/internal/config"
)

func newAdapter(t *testing.T, server *httptest.Server) *MetafieldAdapter {
	t.Helper()
	cfg := &config.Config{}
	cfg.Metafield.URL = server.URL + "/"
	cfg.Metafield.Username = "shop"
	cfg.Metafield.Password = "secret"
	cfg.Metafield.Timeout = time.Second
	cfg.Metafield.RequestsPerSecond = 100
	return NewMetafieldAdapter(cfg, logger.NewNopLogger())
}

func TestMetafieldAdapter_GetAndSet(t *testing.T) {
	var mu sync.Mutex
	stored := map[string]string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "shop" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			value, ok := stored[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(Metafield{Value: value})
		case http.MethodPut:
			var metafield Metafield
			require.NoError(t, json.NewDecoder(r.Body).Decode(&metafield))
			stored[r.URL.Path] = metafield.Value
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	adapter := newAdapter(t, server)
	ctx := context.Background()

	_, found, err := adapter.Get(ctx, "delivery_date", "rules")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, adapter.Set(ctx, "delivery_date", "rules", `{"disabledDates":[],"disabledDays":[]}`))

	value, found, err := adapter.Get(ctx, "delivery_date", "rules")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"disabledDates":[],"disabledDays":[]}`, value)

	mu.Lock()
	_, ok := stored["/namespaces/delivery_date/metafields/rules"]
	mu.Unlock()
	assert.True(t, ok)
}

func TestMetafieldAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := newAdapter(t, server)

	_, _, err := adapter.Get(context.Background(), "delivery_date", "rules")
	assert.Error(t, err)
	assert.Error(t, adapter.Set(context.Background(), "delivery_date", "rules", "{}"))
}

func TestMetafieldAdapter_CollapsesConcurrentReads(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(Metafield{Value: "{}"})
	}))
	defer server.Close()

	adapter := newAdapter(t, server)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, found, err := adapter.Get(context.Background(), "delivery_date", "rules")
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "{}", value)
		}()
	}

	require.Eventually(t, func() bool { return requests.Load() == 1 }, time.Second, time.Millisecond)
	// даем остальным горутинам встать в очередь за первым запросом
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), requests.Load())
}

func TestMetafieldAdapter_CancelledCallerDoesNotFailSharedRead(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(Metafield{Value: `{"disabledDates":[],"disabledDays":[]}`})
	}))
	defer server.Close()

	adapter := newAdapter(t, server)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := adapter.Get(ctxA, "delivery_date", "rules")
		errA <- err
	}()
	require.Eventually(t, func() bool { return requests.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		value string
		found bool
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		value, found, err := adapter.Get(context.Background(), "delivery_date", "rules")
		resB <- result{value: value, found: found, err: err}
	}()
	// второй вызов присоединяется к уже идущему запросу
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.True(t, res.found)
		assert.Equal(t, `{"disabledDates":[],"disabledDays":[]}`, res.value)
	case <-time.After(time.Second):
		t.Fatal("shared read did not complete")
	}
	assert.Equal(t, int32(1), requests.Load())
}
