package club

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clubefacil/agenda-api/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(&config.Config{ClubAPIBaseURL: server.URL})
}

func TestClientForwardsBearerToken(t *testing.T) {
	var gotAuth, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]Slot{{ID: 1}})
	})

	slots, err := c.ListSlots(context.Background(), "member-token", 5, 12, "2026-09-01")
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected one slot, got %d", len(slots))
	}
	if gotAuth != "Bearer member-token" {
		t.Errorf("Authorization = %q, want the member token forwarded", gotAuth)
	}
	if gotQuery != "atividadeEspacoId=12&atividadeId=5" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestClientUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such activity", http.StatusNotFound)
	})

	_, err := c.GetActivity(context.Background(), "tok", 999)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected an UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", ue.Status)
	}
}

func TestClientReservationRoundTrip(t *testing.T) {
	var posted ReservationRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/agendamento" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&posted)
		json.NewEncoder(w).Encode(Reservation{ID: 321})
	})

	req := ReservationRequest{
		BookingType: "TENIS",
		VenueID:     12,
		ClientID:    42,
		Date:        "2026-09-01",
		SlotStart:   "10:00",
		SlotEnd:     "11:00",
	}
	res, err := c.CreateReservation(context.Background(), "tok", req)
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}
	if res.ID != 321 {
		t.Errorf("reservation id = %d, want 321", res.ID)
	}
	if posted.VenueID != 12 || posted.Date != "2026-09-01" || posted.BookingType != "TENIS" {
		t.Errorf("unexpected payload: %+v", posted)
	}
}

func TestClientMatriculaFallback(t *testing.T) {
	// Without service credentials the lookup runs on the member's token.
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/cliente/matricula/M-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Member{ClientID: 77, Matricula: "M-1"})
	})

	m, err := c.LookupMemberByMatricula(context.Background(), "member-token", "M-1")
	if err != nil {
		t.Fatalf("LookupMemberByMatricula failed: %v", err)
	}
	if m.ClientID != 77 {
		t.Errorf("client id = %d, want 77", m.ClientID)
	}
	if gotAuth != "Bearer member-token" {
		t.Errorf("Authorization = %q, want the member token fallback", gotAuth)
	}
}
