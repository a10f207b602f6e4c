package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const dateLayout = "2006-01-02"

// Appointment is one record from the provider's appointment listing endpoint.
type Appointment struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Email             string    `json:"email"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Datetime          time.Time `json:"datetime"`
	Duration          int       `json:"duration,string"`
	AppointmentTypeID int64     `json:"appointmentTypeID"`
	CalendarID        string    `json:"calendarID"`
	Canceled          bool      `json:"canceled"`
}

// Client talks to the external scheduling provider. Credentials are a static
// pair sent as a Basic-auth header; every request is throttled.
type Client struct {
	baseURL  string
	userID   string
	apiKey   string
	httpc    *http.Client
	throttle *Throttle
}

type Config struct {
	BaseURL     string
	UserID      string
	APIKey      string
	MinInterval time.Duration
	Timeout     time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		userID:   cfg.UserID,
		apiKey:   cfg.APIKey,
		httpc:    &http.Client{Timeout: timeout},
		throttle: NewThrottle(cfg.MinInterval),
	}
}

// CanceledAppointments fetches provider-side appointments flagged canceled in
// [minDate, maxDate]. One invocation is one API call; windowing over larger
// ranges is the caller's concern.
func (c *Client) CanceledAppointments(ctx context.Context, minDate, maxDate time.Time, max int) ([]Appointment, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("minDate", minDate.Format(dateLayout))
	q.Set("maxDate", maxDate.Format(dateLayout))
	q.Set("max", fmt.Sprintf("%d", max))
	q.Set("canceled", "true")

	reqURL := fmt.Sprintf("%s/appointments?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.userID, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider api error: status %d", resp.StatusCode)
	}

	var appointments []Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appointments); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	return appointments, nil
}
