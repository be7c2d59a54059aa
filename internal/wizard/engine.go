package wizard

import (
	"context"
	"errors"
	"time"

	"github.com/clubefacil/agenda-api/internal/activities"
	"github.com/clubefacil/agenda-api/internal/club"
)

var (
	ErrIncomplete       = errors.New("wizard has unchecked steps")
	ErrDateOutOfRange   = errors.New("date outside the permitted window")
	ErrVenueNotFound    = errors.New("venue not available for this activity")
	ErrSlotListNotReady = errors.New("slot list not loaded for the current selection")
	ErrSlotNotFound     = errors.New("slot not in the current list")
	ErrUnknownMember    = errors.New("member not in the family list")
)

// Session is one member's wizard run: the selection store, the capability
// record resolved for the activity at create time, and the session-scoped
// query cache.
type Session struct {
	ID       string
	MemberID int64
	Caps     activities.Capabilities
	Store    *Store
	Queries  *Queries
}

// View is what the UI renders: the ordered steps, the anchor of the first
// incomplete step to scroll to, and whether finalize is reachable.
type View struct {
	Steps       []Step `json:"steps"`
	NextStep    string `json:"nextStep,omitempty"`
	CanFinalize bool   `json:"canFinalize"`
}

// Submitter is the slice of the club client finalize needs.
type Submitter interface {
	CreateReservation(ctx context.Context, token string, req club.ReservationRequest) (*club.Reservation, error)
	JoinWaitlist(ctx context.Context, token string, req club.ReservationRequest) (*club.Reservation, error)
}

// Engine evaluates wizard sessions against their dependent query layer and
// performs the selection operations that need query or lookup data.
type Engine struct {
	submitter Submitter

	now func() time.Time
}

func NewEngine(submitter Submitter) *Engine {
	return &Engine{submitter: submitter, now: time.Now}
}

func (e *Engine) View(ctx context.Context, token string, sess *Session) View {
	sel := sess.Store.Selection()
	steps := buildSteps(ctx, token, sess.Queries, sel, sess.Caps, e.now())

	v := View{Steps: steps, CanFinalize: true}
	for _, s := range steps {
		if !s.Checked {
			if v.NextStep == "" {
				v.NextStep = s.ID
			}
			v.CanFinalize = false
		}
	}
	return v
}

// SelectDate rejects dates outside [today, today+MaxAdvanceDays) clamped to
// the activity's release ceiling; the UI disables those days, the engine
// enforces it.
func (e *Engine) SelectDate(sess *Session, date string) error {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ErrDateOutOfRange
	}

	min, max := dateWindow(sess.Store.Selection(), sess.Caps, e.now())
	iso := d.Format("2006-01-02")
	if iso < min || iso > max {
		return ErrDateOutOfRange
	}

	sess.Store.SetDate(iso)
	return nil
}

// SelectVenue picks from the venue list loaded at session create.
func (e *Engine) SelectVenue(sess *Session, venueID int64) error {
	sel := sess.Store.Selection()
	for i := range sel.Venues {
		if sel.Venues[i].ID == venueID {
			v := sel.Venues[i]
			sess.Store.SetVenue(&v)
			return nil
		}
	}
	return ErrVenueNotFound
}

// SelectSlot picks a slot by id out of the ready available-slots result for
// the current (venue, date). Selecting against a pending, failed or stale
// list is refused rather than trusting the caller's id.
func (e *Engine) SelectSlot(ctx context.Context, token string, sess *Session, slotID int64) error {
	sel := sess.Store.Selection()
	res := sess.Queries.AvailableSlots(ctx, token, sel)
	if res.Status != StatusReady {
		return ErrSlotListNotReady
	}
	for i := range res.Slots {
		if res.Slots[i].ID == slotID {
			s := res.Slots[i]
			sess.Store.SetSlot(&s)
			return nil
		}
	}
	return ErrSlotNotFound
}

// SelectWaitlistSlot is SelectSlot against the waitlist query.
func (e *Engine) SelectWaitlistSlot(ctx context.Context, token string, sess *Session, slotID int64) error {
	sel := sess.Store.Selection()
	res := sess.Queries.WaitlistSlots(ctx, token, sel)
	if res.Status != StatusReady {
		return ErrSlotListNotReady
	}
	for i := range res.Slots {
		if res.Slots[i].ID == slotID {
			s := res.Slots[i]
			sess.Store.SetWaitlistSlot(&s)
			return nil
		}
	}
	return ErrSlotNotFound
}

// SelectVenueSlot handles the combined step: venue and slot picked together
// from the venues-with-slots result. The venue write clears the slot fields,
// so the order here matters.
func (e *Engine) SelectVenueSlot(ctx context.Context, token string, sess *Session, venueID, slotID int64) error {
	sel := sess.Store.Selection()
	res := sess.Queries.VenuesWithSlots(ctx, token, sel)
	if res.Status != StatusReady {
		return ErrSlotListNotReady
	}
	for i := range res.Venues {
		if res.Venues[i].ID != venueID {
			continue
		}
		v := res.Venues[i]
		for j := range v.Slots {
			if v.Slots[j].ID == slotID {
				s := v.Slots[j]
				venue := v
				venue.Slots = nil
				sess.Store.SetVenue(&venue)
				sess.Store.SetSlot(&s)
				return nil
			}
		}
		return ErrSlotNotFound
	}
	return ErrVenueNotFound
}

// AddFamilyParticipant adds a member from the family list snapshotted at
// session create.
func (e *Engine) AddFamilyParticipant(sess *Session, clientID int64) error {
	sel := sess.Store.Selection()
	for _, m := range sel.Family {
		if m.ClientID == clientID {
			sess.Store.AddParticipant(m)
			return nil
		}
	}
	return ErrUnknownMember
}

// Finalize assembles the submission from the store and posts it upstream: a
// reservation when a confirmed slot is chosen, a waitlist join when only the
// waitlist slot is. Returns the upstream reservation plus whether it was a
// waitlist entry.
func (e *Engine) Finalize(ctx context.Context, token string, sess *Session) (*club.Reservation, club.ReservationRequest, bool, error) {
	view := e.View(ctx, token, sess)
	if !view.CanFinalize {
		return nil, club.ReservationRequest{}, false, ErrIncomplete
	}

	sel := sess.Store.Selection()
	slot := sel.ActiveSlot()

	req := club.ReservationRequest{
		BookingType: sess.Caps.BookingType,
		SlotTypeID:  slot.TypeID,
		VenueID:     sel.Venue.ID,
		ClientID:    sess.MemberID,
		Date:        sel.Date,
		SlotStart:   slot.Start,
		SlotEnd:     slot.End,
		Note:        sel.Note,
	}
	for _, p := range sel.Participants {
		req.Participants = append(req.Participants, p.ClientID)
	}

	waitlist := sel.Slot == nil
	var (
		res *club.Reservation
		err error
	)
	if waitlist {
		res, err = e.submitter.JoinWaitlist(ctx, token, req)
	} else {
		res, err = e.submitter.CreateReservation(ctx, token, req)
	}
	if err != nil {
		return nil, req, waitlist, err
	}
	return res, req, waitlist, nil
}
