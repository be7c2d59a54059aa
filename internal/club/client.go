package club

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clubefacil/agenda-api/internal/config"
	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to the club platform. Member-context calls forward the
// caller's bearer token untouched; the member-directory lookup runs under a
// service token because the directory endpoint rejects member tokens.
type Client struct {
	hc   *http.Client
	svc  *http.Client
	base string
}

func New(cfg *config.Config) *Client {
	c := &Client{
		hc:   &http.Client{Timeout: 15 * time.Second},
		base: strings.TrimRight(cfg.ClubAPIBaseURL, "/"),
	}
	if cfg.ClubTokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClubClientID,
			ClientSecret: cfg.ClubClientSecret,
			TokenURL:     cfg.ClubTokenURL,
		}
		c.svc = cc.Client(context.Background())
		c.svc.Timeout = 15 * time.Second
	}
	return c
}

// UpstreamError carries the club API status so handlers can tell a missing
// resource from a platform failure.
type UpstreamError struct {
	Status int
	Op     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("club api: %s returned status %d", e.Op, e.Status)
}

func (c *Client) GetActivity(ctx context.Context, token string, id int64) (*Activity, error) {
	var a Activity
	err := c.get(ctx, c.hc, token, "/api/atividade/"+strconv.FormatInt(id, 10), nil, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) ListVenues(ctx context.Context, token string, activityID int64) ([]Venue, error) {
	q := url.Values{"atividadeId": {strconv.FormatInt(activityID, 10)}}
	var vs []Venue
	if err := c.get(ctx, c.hc, token, "/api/atividadeEspaco", q, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// ListSlots returns the bookable slots for a venue on a date ("2006-01-02").
func (c *Client) ListSlots(ctx context.Context, token string, activityID, venueID int64, date string) ([]Slot, error) {
	q := url.Values{
		"atividadeId":       {strconv.FormatInt(activityID, 10)},
		"atividadeEspacoId": {strconv.FormatInt(venueID, 10)},
	}
	var ss []Slot
	if err := c.get(ctx, c.hc, token, "/api/agendamentoHorario/cliente/data/"+date, q, &ss); err != nil {
		return nil, err
	}
	return ss, nil
}

func (c *Client) ListWaitlistSlots(ctx context.Context, token string, venueID int64, date string) ([]Slot, error) {
	q := url.Values{"atividadeEspacoId": {strconv.FormatInt(venueID, 10)}}
	var ss []Slot
	if err := c.get(ctx, c.hc, token, "/api/agendamentoHorario/cliente/filaEspera/data/"+date, q, &ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// ListVenuesWithSlots returns every venue of the activity annotated with its
// slots for the date, for flows that pick venue and slot in one step.
func (c *Client) ListVenuesWithSlots(ctx context.Context, token string, activityID int64, date string) ([]Venue, error) {
	q := url.Values{
		"atividadeId": {strconv.FormatInt(activityID, 10)},
		"data":        {date},
	}
	var vs []Venue
	if err := c.get(ctx, c.hc, token, "/api/agendamentoHorario/cliente/data", q, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (c *Client) ListFamilyMembers(ctx context.Context, token string) ([]Member, error) {
	var ms []Member
	if err := c.get(ctx, c.hc, token, "/api/cliente/familiares", nil, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

// LookupMemberByMatricula resolves a guest by registration number. Uses the
// service token; falls back to the member token when no service credentials
// are configured (e.g. local development against a stub).
func (c *Client) LookupMemberByMatricula(ctx context.Context, token, matricula string) (*Member, error) {
	hc := c.svc
	if hc == nil {
		hc = c.hc
	} else {
		token = "" // the oauth2 transport injects its own Authorization header
	}
	var m Member
	if err := c.get(ctx, hc, token, "/api/cliente/matricula/"+url.PathEscape(matricula), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) CreateReservation(ctx context.Context, token string, req ReservationRequest) (*Reservation, error) {
	var r Reservation
	if err := c.post(ctx, token, "/api/agendamento", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// JoinWaitlist submits a waitlist entry. Same payload shape as a
// reservation; the platform keys the queue on the slot type id.
func (c *Client) JoinWaitlist(ctx context.Context, token string, req ReservationRequest) (*Reservation, error) {
	var r Reservation
	if err := c.post(ctx, token, "/api/agendamento/filaEspera", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, token, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}
	return c.do(hc, req, token, path, out)
}

func (c *Client) post(ctx context.Context, token, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(c.hc, req, token, path, out)
}

func (c *Client) do(hc *http.Client, req *http.Request, token, op string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("club api: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &UpstreamError{Status: resp.StatusCode, Op: op}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("club api: %s: decode: %w", op, err)
	}
	return nil
}
