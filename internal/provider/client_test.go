package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanceledAppointmentsRequest(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotUser, gotPass, _ = r.BasicAuth()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "A123",
				"firstName": "Jane",
				"lastName": "Doe",
				"email": "jane@example.com",
				"date": "October 5, 2025",
				"time": "10:00",
				"datetime": "2025-10-05T10:00:00Z",
				"duration": "60",
				"appointmentTypeID": 77,
				"calendarID": "cal-9",
				"canceled": true
			},
			{
				"id": "A124",
				"firstName": "John",
				"lastName": "Roe",
				"email": "john@example.com",
				"datetime": "2025-10-05T14:00:00Z",
				"duration": "30",
				"calendarID": "cal-9",
				"canceled": false
			}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL: srv.URL,
		UserID:  "user-1",
		APIKey:  "key-secret",
	})

	day := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)
	appointments, err := c.CanceledAppointments(context.Background(), day, day, 100)
	require.NoError(t, err)

	assert.Equal(t, "/appointments", gotPath)
	assert.Equal(t, "2025-10-05", gotQuery["minDate"][0])
	assert.Equal(t, "2025-10-05", gotQuery["maxDate"][0])
	assert.Equal(t, "100", gotQuery["max"][0])
	assert.Equal(t, "true", gotQuery["canceled"][0])
	assert.Equal(t, "user-1", gotUser)
	assert.Equal(t, "key-secret", gotPass)

	require.Len(t, appointments, 2)
	first := appointments[0]
	assert.Equal(t, "A123", first.ID)
	assert.Equal(t, "Jane", first.FirstName)
	assert.Equal(t, 60, first.Duration)
	assert.Equal(t, int64(77), first.AppointmentTypeID)
	assert.Equal(t, "cal-9", first.CalendarID)
	assert.True(t, first.Canceled)
	assert.Equal(t, time.Date(2025, 10, 5, 10, 0, 0, 0, time.UTC), first.Datetime)

	assert.False(t, appointments[1].Canceled)
}

func TestCanceledAppointmentsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserID: "u", APIKey: "k"})

	day := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)
	_, err := c.CanceledAppointments(context.Background(), day, day, 100)
	assert.ErrorContains(t, err, "status 401")
}

func TestThrottleFirstCallNotDelayed(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration

	th := NewThrottle(250 * time.Millisecond)
	th.now = func() time.Time { return now }
	th.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	require.NoError(t, th.Wait(context.Background()))
	assert.Empty(t, slept)
}

func TestThrottleEnforcesMinimumInterval(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration

	th := NewThrottle(250 * time.Millisecond)
	th.now = func() time.Time { return now }
	th.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	require.NoError(t, th.Wait(context.Background()))

	// 100ms of work elapses between calls; the throttle should top up to 250ms.
	now = now.Add(100 * time.Millisecond)
	require.NoError(t, th.Wait(context.Background()))

	require.Len(t, slept, 1)
	assert.Equal(t, 150*time.Millisecond, slept[0])
}

func TestThrottleNoDelayAfterLongGap(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration

	th := NewThrottle(250 * time.Millisecond)
	th.now = func() time.Time { return now }
	th.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, th.Wait(context.Background()))
	now = now.Add(5 * time.Second)
	require.NoError(t, th.Wait(context.Background()))

	assert.Empty(t, slept)
}

func TestThrottleCancelledContext(t *testing.T) {
	th := NewThrottle(time.Hour)
	require.NoError(t, th.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, th.Wait(ctx), context.Canceled)
}
