package http_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/adwatch"
	adhttp "github.com/fwojciec/adwatch/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoProxy(t *testing.T) {
	t.Parallel()

	p := adhttp.NoProxy{}
	assert.Nil(t, p.URL())
	p.Rotate(context.Background())
}

func TestStaticProxy(t *testing.T) {
	t.Parallel()

	addr := adwatch.ProxyAddr{HostPort: "10.0.0.1:8080"}
	p := adhttp.NewStaticProxy(addr)

	assert.Equal(t, "http://10.0.0.1:8080", p.URL().String())
	p.Rotate(context.Background())
	assert.Equal(t, "http://10.0.0.1:8080", p.URL().String())
}

func TestRotatingProxy_Rotate(t *testing.T) {
	t.Parallel()

	addr := adwatch.ProxyAddr{HostPort: "10.0.0.1:8080"}

	t.Run("calls rotation endpoint", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		p := adhttp.NewRotatingProxy(addr, srv.URL)
		p.Rotate(context.Background())

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, "http://10.0.0.1:8080", p.URL().String())
	})

	t.Run("swallows and logs endpoint failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		p := adhttp.NewRotatingProxy(addr, srv.URL, adhttp.WithRotateLogger(logger))

		p.Rotate(context.Background())

		assert.Contains(t, buf.String(), "proxy rotation failed")
		assert.Contains(t, buf.String(), "502")
	})

	t.Run("swallows timeout", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		p := adhttp.NewRotatingProxy(addr, srv.URL, adhttp.WithRotateTimeout(20*time.Millisecond))

		start := time.Now()
		p.Rotate(context.Background())

		assert.Less(t, time.Since(start), 200*time.Millisecond)
	})

	t.Run("collapses concurrent rotations", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			<-release
		}))
		defer srv.Close()

		p := adhttp.NewRotatingProxy(addr, srv.URL)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Rotate(context.Background())
			}()
		}
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestNewProxy(t *testing.T) {
	t.Parallel()

	t.Run("empty string selects no proxy", func(t *testing.T) {
		t.Parallel()
		assert.IsType(t, adhttp.NoProxy{}, adhttp.NewProxy("", "http://rotate", nil))
	})

	t.Run("no rotation URL selects static proxy", func(t *testing.T) {
		t.Parallel()
		assert.IsType(t, &adhttp.StaticProxy{}, adhttp.NewProxy("u:p@host:1000", "", nil))
	})

	t.Run("rotation URL selects rotating proxy", func(t *testing.T) {
		t.Parallel()
		assert.IsType(t, &adhttp.RotatingProxy{}, adhttp.NewProxy("host:1000", "http://rotate", nil))
	})

	t.Run("malformed string degrades to no proxy", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := adhttp.NewProxy("not a proxy", "", slog.New(slog.NewTextHandler(&buf, nil)))

		assert.IsType(t, adhttp.NoProxy{}, p)
		assert.Contains(t, buf.String(), "malformed proxy string")
	})
}
