package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbout22/ghdir/internal/logging"
)

func newGateway(ts *httptest.Server) *Gateway {
	return New(ts.Client(), logging.Discard())
}

func TestDo_InjectsHeaders(t *testing.T) {
	t.Parallel()
	var gotAuth, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	resp, err := newGateway(ts).Get(context.Background(), ts.URL, "secret")
	require.NoError(t, err)
	Close(resp)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, UserAgent, gotUA)
}

func TestDo_NoTokenNoAuthorization(t *testing.T) {
	t.Parallel()
	var hadAuth bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
	}))
	defer ts.Close()

	resp, err := newGateway(ts).Get(context.Background(), ts.URL, "")
	require.NoError(t, err)
	Close(resp)

	assert.False(t, hadAuth)
}

func TestDo_HeadMethod(t *testing.T) {
	t.Parallel()
	var method string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))
	defer ts.Close()

	resp, err := newGateway(ts).Head(context.Background(), ts.URL, "")
	require.NoError(t, err)
	Close(resp)

	assert.Equal(t, http.MethodHead, method)
}

func TestDo_Unauthorized(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := newGateway(ts).Get(context.Background(), ts.URL, "bad")

	var authErr AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid token", err.Error())
}

func TestDo_RateLimited(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	reset := now.Add(5 * time.Minute)

	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			w.WriteHeader(status)
		}))

		gw := newGateway(ts).WithClock(func() time.Time { return now })
		_, err := gw.Get(context.Background(), ts.URL, "")
		ts.Close()

		var rl RateLimitError
		require.ErrorAs(t, err, &rl, "status %d", status)
		assert.Equal(t, 5, rl.Minutes)
		assert.True(t, rl.Reset.Equal(reset))
		assert.Contains(t, err.Error(), "approximately 5 minutes")
	}
}

func TestDo_RateLimitedRealClock(t *testing.T) {
	t.Parallel()
	reset := time.Now().Add(5 * time.Minute).Unix()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := newGateway(ts).Get(context.Background(), ts.URL, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "approximately 5 minutes")
}

func TestDo_RateLimitedSingularMinute(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(now.Unix()+30, 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := newGateway(ts).WithClock(func() time.Time { return now }).Get(context.Background(), ts.URL, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "approximately 1 minute.")
}

func TestDo_Forbidden(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "Resource not accessible by integration")
	}))
	defer ts.Close()

	_, err := newGateway(ts).Get(context.Background(), ts.URL, "")

	var forbidden AccessForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "Resource not accessible by integration", forbidden.Body)
	assert.Contains(t, err.Error(), "Resource not accessible by integration")
}

func TestDo_TooManyRequestsWithoutQuotaHeader(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	resp, err := newGateway(ts).Get(context.Background(), ts.URL, "")
	require.NoError(t, err)
	defer Close(resp)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestDo_NotFoundReturnsResponse(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	resp, err := newGateway(ts).Get(context.Background(), ts.URL, "")
	require.NoError(t, err)
	defer Close(resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, OK(resp))
}

func TestDo_ServerErrorReturnsResponse(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	resp, err := newGateway(ts).Get(context.Background(), ts.URL, "")
	require.NoError(t, err)
	defer Close(resp)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestDo_TransportError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(nil, logging.Discard()).Get(context.Background(), url, "")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, url, fetchErr.URL)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestDo_CancelledIsNotFetchError(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newGateway(ts).Get(ctx, ts.URL, "")

	require.ErrorIs(t, err, context.Canceled)
	var fetchErr *FetchError
	assert.False(t, errors.As(err, &fetchErr))
}
