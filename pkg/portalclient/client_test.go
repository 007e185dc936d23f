package portalclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c, srv
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func sessionCookie(r *http.Request) bool {
	cookie, err := r.Cookie("access_token")
	return err == nil && cookie.Value == "fresh"
}

func setSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "fresh", Path: "/"})
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshCalls int64
	var firstWave sync.WaitGroup
	firstWave.Add(3)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		// Hold the flight open so late arrivals join it instead of
		// starting their own.
		time.Sleep(50 * time.Millisecond)
		setSessionCookie(w)
		writeEnvelope(w, http.StatusOK, `{"status":200,"message":"Session refreshed"}`)
	})
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
		if !sessionCookie(r) {
			// Make sure all three callers have hit the wall before any
			// of them starts refreshing.
			firstWave.Done()
			firstWave.Wait()
			writeEnvelope(w, http.StatusUnauthorized, `{"status":401,"error":"token expired"}`)
			return
		}
		writeEnvelope(w, http.StatusOK, `{"status":200,"message":"ok","data":[]}`)
	})

	c, _ := newTestClient(t, mux)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ListAppointments(context.Background(), ListOptions{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshCalls), "refresh must run once")
}

func TestRefreshSurvivesInitiatorCancellation(t *testing.T) {
	var refreshCalls int64
	refreshStarted := make(chan struct{})
	var startOnce sync.Once
	var firstWave sync.WaitGroup
	firstWave.Add(2)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		startOnce.Do(func() { close(refreshStarted) })
		time.Sleep(80 * time.Millisecond)
		setSessionCookie(w)
		writeEnvelope(w, http.StatusOK, `{"status":200,"message":"Session refreshed"}`)
	})
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
		if !sessionCookie(r) {
			firstWave.Done()
			firstWave.Wait()
			writeEnvelope(w, http.StatusUnauthorized, `{"status":401,"error":"token expired"}`)
			return
		}
		writeEnvelope(w, http.StatusOK, `{"status":200,"message":"ok","data":[]}`)
	})

	c, _ := newTestClient(t, mux)

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	// Kill the initiating caller's context while the refresh is in flight.
	go func() {
		<-refreshStarted
		cancel1()
	}()

	var wg sync.WaitGroup
	var err1, err2 error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err1 = c.ListAppointments(ctx1, ListOptions{})
	}()
	go func() {
		defer wg.Done()
		_, err2 = c.ListAppointments(context.Background(), ListOptions{})
	}()
	wg.Wait()

	// The canceled caller fails on its own replay, but the shared flight
	// must complete and serve the surviving caller.
	assert.NoError(t, err2, "a caller with a live context must get the refreshed session")
	_ = err1
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshCalls))
}

func TestReplayHappensExactlyOnce(t *testing.T) {
	var apptCalls, refreshCalls int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		setSessionCookie(w)
		writeEnvelope(w, http.StatusOK, `{"status":200,"message":"Session refreshed"}`)
	})
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&apptCalls, 1)
		// Still 401 after the refresh: the client must give up, not loop.
		writeEnvelope(w, http.StatusUnauthorized, `{"status":401,"error":"token expired"}`)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.ListAppointments(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int64(2), atomic.LoadInt64(&apptCalls), "original + one replay")
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshCalls))
}

func TestLogin401IsNotRetried(t *testing.T) {
	var refreshCalls int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		writeEnvelope(w, http.StatusOK, `{"status":200,"message":"Session refreshed"}`)
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, `{"status":401,"error":"Invalid email or password"}`)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "pat@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Zero(t, atomic.LoadInt64(&refreshCalls), "a login 401 is a real answer, not a stale session")
}

func TestRefreshFailureModes(t *testing.T) {
	tests := []struct {
		name           string
		refreshStatus  int
		wantExpired    bool
		wantCallback   bool
		wantStatusCode int
	}{
		{"refresh 401 means session is dead", http.StatusUnauthorized, true, false, 0},
		{"refresh 429 is surfaced without callback", http.StatusTooManyRequests, false, false, http.StatusTooManyRequests},
		{"refresh 500 triggers the invalid-session handler", http.StatusInternalServerError, false, true, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tc.refreshStatus, `{"status":0,"error":"refresh failed"}`)
			})
			mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusUnauthorized, `{"status":401,"error":"token expired"}`)
			})

			var callbackFired bool
			c, _ := newTestClient(t, mux, WithSessionInvalidHandler(func() {
				callbackFired = true
			}))

			_, err := c.ListAppointments(context.Background(), ListOptions{})
			require.Error(t, err)

			if tc.wantExpired {
				assert.ErrorIs(t, err, ErrSessionExpired)
			} else {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tc.wantStatusCode, apiErr.StatusCode)
			}
			assert.Equal(t, tc.wantCallback, callbackFired)
		})
	}
}

func TestBookingConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, `{"status":409,"error":"This slot is already booked, please pick another time"}`)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.BookAppointment(context.Background(), BookingParams{
		FirstName: "Ada", LastName: "Diallo", Email: "ada@example.com",
		Date: "2026-09-01", Time: "10:00", ConsultationType: "generale",
	})
	assert.True(t, IsConflict(err))
	assert.False(t, errors.Is(err, ErrSessionExpired))
}

func TestExtractErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field wins", `{"error":"top","detail":"second","date":["third"]}`, "top"},
		{"detail next", `{"detail":"second","date":["third"]}`, "second"},
		{"date list next", `{"date":["the appointment date cannot be in the past"],"time":["x"]}`, "the appointment date cannot be in the past"},
		{"time list next", `{"time":["outside opening hours"],"non_field_errors":["x"]}`, "outside opening hours"},
		{"non_field_errors last", `{"non_field_errors":["slot conflict"]}`, "slot conflict"},
		{"message fallback", `{"status":400,"message":"An error occurred"}`, "An error occurred"},
		{"unparseable body falls back", `not json`, "Bad Request"},
		{"empty fields are skipped", `{"error":"","detail":"usable"}`, "usable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractErrorMessage([]byte(tc.body), "Bad Request"))
		})
	}
}

func TestAuthPathMatching(t *testing.T) {
	assert.True(t, isAuthPath("/auth/login"))
	assert.True(t, isAuthPath("/auth/refresh"))
	assert.True(t, isAuthPath("/auth/register"))
	assert.False(t, isAuthPath("/auth/profile"))
	assert.False(t, isAuthPath("/appointments"))
}
