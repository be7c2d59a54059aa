package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clubefacil/agenda-api/internal/activities"
	"github.com/clubefacil/agenda-api/internal/club"
	"github.com/clubefacil/agenda-api/internal/config"
)

type fakeSubmitter struct {
	lastReq  club.ReservationRequest
	reserved bool
	waitlist bool
	err      error
}

func (f *fakeSubmitter) CreateReservation(ctx context.Context, token string, req club.ReservationRequest) (*club.Reservation, error) {
	f.lastReq = req
	f.reserved = true
	if f.err != nil {
		return nil, f.err
	}
	return &club.Reservation{ID: 555}, nil
}

func (f *fakeSubmitter) JoinWaitlist(ctx context.Context, token string, req club.ReservationRequest) (*club.Reservation, error) {
	f.lastReq = req
	f.waitlist = true
	if f.err != nil {
		return nil, f.err
	}
	return &club.Reservation{ID: 777}, nil
}

func capsFor(a *club.Activity) activities.Capabilities {
	return activities.NewTable(&config.Config{}).ForActivity(a)
}

func newTestEngine(s Submitter, now time.Time) *Engine {
	e := NewEngine(s)
	e.now = func() time.Time { return now }
	return e
}

func stepByID(t *testing.T, steps []Step, id string) Step {
	t.Helper()
	for _, s := range steps {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("step %q not in %v", id, steps)
	return Step{}
}

var testNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

func churrasqueiraSession(f Fetcher) *Session {
	if f == nil {
		f = newFakeFetcher()
	}
	activity := &club.Activity{ID: 5, Name: "Churrasqueira", CategoryName: "Espaços"}
	return &Session{
		ID:       "s1",
		MemberID: 42,
		Caps:     capsFor(activity),
		Store:    NewStore(Selection{Activity: activity}),
		Queries:  NewQueries(f),
	}
}

func tenisSession(f Fetcher, venues ...club.Venue) *Session {
	if f == nil {
		f = newFakeFetcher()
	}
	activity := &club.Activity{ID: 9, Name: "Tênis", CategoryName: "Quadras"}
	return &Session{
		ID:       "s2",
		MemberID: 42,
		Caps:     capsFor(activity),
		Store:    NewStore(Selection{Activity: activity, Venues: venues}),
		Queries:  NewQueries(f),
	}
}

func TestViewWaitingBeforePrerequisites(t *testing.T) {
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := churrasqueiraSession(nil)

	view := e.View(context.Background(), "tok", sess)

	step := stepByID(t, view.Steps, StepVenueSlot)
	if step.Content.State != ContentWaiting {
		t.Errorf("without a date the combined step must be waiting, not %s", step.Content.State)
	}
	if step.Checked {
		t.Error("combined step cannot be checked before any selection")
	}
	if view.NextStep != StepDate {
		t.Errorf("anchor should point at the date step, got %q", view.NextStep)
	}
	if view.CanFinalize {
		t.Error("finalize must be unreachable on a fresh session")
	}
}

func TestViewEmptySlotList(t *testing.T) {
	// Upstream has nothing for this date.
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := tenisSession(emptyFetcher{}, club.Venue{ID: 1, ActivityID: 9, Name: "Quadra 1"})

	if err := e.SelectDate(sess, "2024-06-01"); err != nil {
		t.Fatal(err)
	}
	if err := e.SelectVenue(sess, 1); err != nil {
		t.Fatal(err)
	}

	e.View(context.Background(), "tok", sess)
	sess.Queries.slots.wait(slotKey{VenueID: 1, Date: "2024-06-01"})

	view := e.View(context.Background(), "tok", sess)
	step := stepByID(t, view.Steps, StepSlot)
	if step.Content.State != ContentEmpty {
		t.Errorf("empty upstream list must render the empty state, got %s", step.Content.State)
	}
	if step.Checked {
		t.Error("slot step must stay unchecked with no slots available")
	}
}

type emptyFetcher struct{}

func (emptyFetcher) ListSlots(context.Context, string, int64, int64, string) ([]club.Slot, error) {
	return []club.Slot{}, nil
}
func (emptyFetcher) ListWaitlistSlots(context.Context, string, int64, string) ([]club.Slot, error) {
	return []club.Slot{}, nil
}
func (emptyFetcher) ListVenuesWithSlots(context.Context, string, int64, string) ([]club.Venue, error) {
	return []club.Venue{}, nil
}

func TestParticipantsBounds(t *testing.T) {
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := tenisSession(nil, club.Venue{ID: 1, ActivityID: 9, Name: "Quadra 1"})

	sess.Store.SetVenue(&club.Venue{ID: 1, Name: "Quadra 1"})
	sess.Store.SetDate("2024-06-01")
	sess.Store.SetSlot(&club.Slot{ID: 10, MinParticipants: 2, MaxParticipants: 10})

	check := func(want bool) {
		t.Helper()
		view := e.View(context.Background(), "tok", sess)
		step := stepByID(t, view.Steps, StepParticipants)
		if step.Checked != want {
			t.Errorf("participants checked = %v, want %v (%s)", step.Checked, want, step.Summary)
		}
	}

	check(false) // zero participants

	sess.Store.AddParticipant(club.Member{ClientID: 1})
	check(false) // below minimum

	sess.Store.AddParticipant(club.Member{ClientID: 2})
	check(true) // within bounds

	for i := int64(3); i <= 11; i++ {
		sess.Store.AddParticipant(club.Member{ClientID: i})
	}
	check(false) // above maximum
}

func TestParticipantsBoundsFromWaitlistSlot(t *testing.T) {
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := tenisSession(nil)

	sess.Store.SetVenue(&club.Venue{ID: 1})
	sess.Store.SetDate("2024-06-01")
	sess.Store.SetWaitlistSlot(&club.Slot{ID: 20, MinParticipants: 1, MaxParticipants: 2})
	sess.Store.AddParticipant(club.Member{ClientID: 1})

	view := e.View(context.Background(), "tok", sess)
	step := stepByID(t, view.Steps, StepParticipants)
	if !step.Checked {
		t.Error("waitlist slot must drive participant bounds for waitlist-capable activities")
	}

	// The waitlist step is satisfied by either selection.
	if !stepByID(t, view.Steps, StepWaitlist).Checked {
		t.Error("waitlist step should be checked once a waitlist slot is chosen")
	}
	if !stepByID(t, view.Steps, StepSlot).Checked {
		t.Error("slot step should be checked once a waitlist slot is chosen")
	}
}

func TestSelectDateWindow(t *testing.T) {
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := tenisSession(nil)

	if err := e.SelectDate(sess, "2024-05-19"); !errors.Is(err, ErrDateOutOfRange) {
		t.Errorf("yesterday must be rejected, got %v", err)
	}
	if err := e.SelectDate(sess, "2024-07-01"); !errors.Is(err, ErrDateOutOfRange) {
		t.Errorf("beyond the advance window must be rejected, got %v", err)
	}
	if err := e.SelectDate(sess, "not-a-date"); !errors.Is(err, ErrDateOutOfRange) {
		t.Errorf("garbage input must be rejected, got %v", err)
	}
	if err := e.SelectDate(sess, "2024-05-20"); err != nil {
		t.Errorf("today must be accepted, got %v", err)
	}
	if err := e.SelectDate(sess, "2024-06-18"); err != nil {
		t.Errorf("last day of the window must be accepted, got %v", err)
	}

	// The activity's release ceiling clamps the window further.
	sess.Store = NewStore(Selection{Activity: &club.Activity{ID: 9, Name: "Tênis", ReleaseCeiling: "2024-06-01"}})
	if err := e.SelectDate(sess, "2024-06-02"); !errors.Is(err, ErrDateOutOfRange) {
		t.Errorf("past the release ceiling must be rejected, got %v", err)
	}
	if err := e.SelectDate(sess, "2024-06-01"); err != nil {
		t.Errorf("the ceiling itself must be accepted, got %v", err)
	}

	// The calendar bounds the view renders are the same ones SelectDate
	// enforces.
	view := e.View(context.Background(), "tok", sess)
	content := stepByID(t, view.Steps, StepDate).Content
	if content.MinDate != "2024-05-20" || content.MaxDate != "2024-06-01" {
		t.Errorf("rendered window %s..%s does not match the validated one", content.MinDate, content.MaxDate)
	}
}

func TestSelectSlotRequiresReadyList(t *testing.T) {
	f := newFakeFetcher()
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := tenisSession(f, club.Venue{ID: 1, ActivityID: 9, Name: "Quadra 1"})

	if err := e.SelectSlot(context.Background(), "tok", sess, 1); !errors.Is(err, ErrSlotListNotReady) {
		t.Errorf("selecting with unmet prerequisites must fail, got %v", err)
	}

	e.SelectDate(sess, "2024-06-01")
	e.SelectVenue(sess, 1)

	gate := f.gate("2024-06-01")
	e.View(context.Background(), "tok", sess) // issues the fetch
	if err := e.SelectSlot(context.Background(), "tok", sess, 1); !errors.Is(err, ErrSlotListNotReady) {
		t.Errorf("selecting from a pending list must fail, got %v", err)
	}
	close(gate)
	sess.Queries.slots.wait(slotKey{VenueID: 1, Date: "2024-06-01"})

	if err := e.SelectSlot(context.Background(), "tok", sess, 99); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("unknown slot id must fail, got %v", err)
	}
	if err := e.SelectSlot(context.Background(), "tok", sess, 1); err != nil {
		t.Fatalf("selecting a listed slot should work, got %v", err)
	}
	if sess.Store.Selection().Slot == nil {
		t.Error("selected slot must land in the store")
	}
}

func TestFinalizeReservationPayload(t *testing.T) {
	sub := &fakeSubmitter{}
	e := newTestEngine(sub, testNow)
	sess := churrasqueiraSession(nil)

	sess.Store.SetDate("2024-06-01")
	sess.Store.SetVenue(&club.Venue{ID: 12, Name: "Churrasqueira 3"})
	sess.Store.SetSlot(&club.Slot{ID: 30, TypeID: 8, Start: "10:00", End: "11:00"})
	sess.Store.SetTermsAccepted(true)

	res, req, waitlist, err := e.Finalize(context.Background(), "tok", sess)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if waitlist {
		t.Error("a confirmed slot must produce a reservation, not a waitlist join")
	}
	if !sub.reserved || sub.waitlist {
		t.Error("expected CreateReservation to be called")
	}
	if res.ID != 555 {
		t.Errorf("expected reservation id 555, got %d", res.ID)
	}

	want := club.ReservationRequest{
		BookingType: "CHURRASQUEIRA",
		SlotTypeID:  8,
		VenueID:     12,
		ClientID:    42,
		Date:        "2024-06-01",
		SlotStart:   "10:00",
		SlotEnd:     "11:00",
		Note:        "",
	}
	if req.BookingType != want.BookingType || req.SlotTypeID != want.SlotTypeID ||
		req.VenueID != want.VenueID || req.ClientID != want.ClientID ||
		req.Date != want.Date || req.SlotStart != want.SlotStart ||
		req.SlotEnd != want.SlotEnd || req.Note != want.Note {
		t.Errorf("submission mismatch:\n got %+v\nwant %+v", req, want)
	}
}

func TestFinalizeWaitlistJoin(t *testing.T) {
	sub := &fakeSubmitter{}
	e := newTestEngine(sub, testNow)
	sess := tenisSession(nil)

	sess.Store.SetVenue(&club.Venue{ID: 3, Name: "Quadra 3"})
	sess.Store.SetDate("2024-06-01")
	sess.Store.SetWaitlistSlot(&club.Slot{ID: 40, TypeID: 2, Start: "18:00", End: "19:00", MinParticipants: 1, MaxParticipants: 4})
	sess.Store.AddParticipant(club.Member{ClientID: 42, Name: "Titular"})

	res, req, waitlist, err := e.Finalize(context.Background(), "tok", sess)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if !waitlist || !sub.waitlist || sub.reserved {
		t.Error("a waitlist-only selection must join the waitlist")
	}
	if res.ID != 777 {
		t.Errorf("expected waitlist entry id 777, got %d", res.ID)
	}
	if len(req.Participants) != 1 || req.Participants[0] != 42 {
		t.Errorf("participants must ride along, got %v", req.Participants)
	}
}

func TestFinalizeIncomplete(t *testing.T) {
	sub := &fakeSubmitter{}
	e := newTestEngine(sub, testNow)
	sess := churrasqueiraSession(nil)
	sess.Store.SetDate("2024-06-01")

	_, _, _, err := e.Finalize(context.Background(), "tok", sess)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if sub.reserved || sub.waitlist {
		t.Error("nothing may be submitted while steps are unchecked")
	}
}

func TestNextStepAnchorAdvances(t *testing.T) {
	e := newTestEngine(&fakeSubmitter{}, testNow)
	sess := tenisSession(nil, club.Venue{ID: 1, ActivityID: 9, Name: "Quadra 1"})
	ctx := context.Background()

	if v := e.View(ctx, "tok", sess); v.NextStep != StepVenue {
		t.Errorf("fresh tennis wizard anchors at the venue step, got %q", v.NextStep)
	}

	e.SelectVenue(sess, 1)
	if v := e.View(ctx, "tok", sess); v.NextStep != StepDate {
		t.Errorf("after the venue, anchor moves to the date, got %q", v.NextStep)
	}

	e.SelectDate(sess, "2024-06-01")
	if v := e.View(ctx, "tok", sess); v.NextStep != StepSlot {
		t.Errorf("after the date, anchor moves to the slot, got %q", v.NextStep)
	}
}
