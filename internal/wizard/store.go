package wizard

import (
	"unicode/utf8"

	"github.com/clubefacil/agenda-api/internal/club"
)

// NoteMaxLen is the longest note the wizard accepts. Longer writes are
// dropped, not truncated.
const NoteMaxLen = 500

// Field names a writable slot of the selection store. Reset rules are keyed
// on these, which keeps the invalidation graph in one visible place instead
// of spread across call sites.
type Field string

const (
	FieldVenue        Field = "venue"
	FieldDate         Field = "date"
	FieldSlot         Field = "slot"
	FieldWaitlistSlot Field = "waitlistSlot"
	FieldParticipants Field = "participants"
	FieldNote         Field = "note"
	FieldTerms        Field = "terms"
)

// Selection is everything the member has chosen so far, plus the data
// snapshotted when the session was created (activity, venue list, family).
// It serializes as the session's state blob.
type Selection struct {
	Activity *club.Activity `json:"activity,omitempty"`
	Venues   []club.Venue   `json:"venues,omitempty"`
	Family   []club.Member  `json:"family,omitempty"`

	Venue         *club.Venue   `json:"venue,omitempty"`
	Date          string        `json:"date,omitempty"` // "2006-01-02"
	Slot          *club.Slot    `json:"slot,omitempty"`
	WaitlistSlot  *club.Slot    `json:"waitlistSlot,omitempty"`
	Participants  []club.Member `json:"participants,omitempty"`
	Note          string        `json:"note"`
	TermsAccepted bool          `json:"termsAccepted"`
}

// ActiveSlot returns the slot driving participant bounds and the finalize
// payload: the confirmed slot wins over a waitlist pick.
func (s Selection) ActiveSlot() *club.Slot {
	if s.Slot != nil {
		return s.Slot
	}
	return s.WaitlistSlot
}

type rule struct {
	on    map[Field]bool
	apply func(*Selection)
}

func on(fields ...Field) map[Field]bool {
	m := make(map[Field]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// defaultRules is the full cross-field invalidation graph.
func defaultRules() []rule {
	return []rule{
		// A new venue or date invalidates any chosen slot, confirmed or
		// waitlisted.
		{on: on(FieldVenue, FieldDate), apply: func(s *Selection) {
			s.Slot = nil
			s.WaitlistSlot = nil
		}},
		// Confirmed slot and waitlist slot are mutually exclusive.
		{on: on(FieldSlot), apply: func(s *Selection) {
			if s.Slot != nil {
				s.WaitlistSlot = nil
			}
		}},
		{on: on(FieldWaitlistSlot), apply: func(s *Selection) {
			if s.WaitlistSlot != nil {
				s.Slot = nil
			}
		}},
	}
}

// Store holds one session's selection and applies the reset rules on every
// field write. Setters are total: no setter returns an error, invalid writes
// are silently ignored where the spec calls for it.
type Store struct {
	sel   Selection
	rules []rule
}

func NewStore(sel Selection) *Store {
	return &Store{sel: sel, rules: defaultRules()}
}

// Selection returns a copy of the current state.
func (st *Store) Selection() Selection {
	sel := st.sel
	sel.Participants = append([]club.Member(nil), st.sel.Participants...)
	return sel
}

func (st *Store) write(f Field, mutate func(*Selection)) {
	mutate(&st.sel)
	for _, r := range st.rules {
		if r.on[f] {
			r.apply(&st.sel)
		}
	}
}

func (st *Store) SetVenue(v *club.Venue) {
	st.write(FieldVenue, func(s *Selection) { s.Venue = v })
}

func (st *Store) SetDate(date string) {
	st.write(FieldDate, func(s *Selection) { s.Date = date })
}

func (st *Store) SetSlot(slot *club.Slot) {
	st.write(FieldSlot, func(s *Selection) { s.Slot = slot })
}

func (st *Store) SetWaitlistSlot(slot *club.Slot) {
	st.write(FieldWaitlistSlot, func(s *Selection) { s.WaitlistSlot = slot })
}

// SetNote stores the note, or keeps the previous value when the new text is
// over the limit.
func (st *Store) SetNote(note string) {
	if utf8.RuneCountInString(note) > NoteMaxLen {
		return
	}
	st.write(FieldNote, func(s *Selection) { s.Note = note })
}

func (st *Store) SetTermsAccepted(accepted bool) {
	st.write(FieldTerms, func(s *Selection) { s.TermsAccepted = accepted })
}

// AddParticipant appends the member unless the client id is already present.
func (st *Store) AddParticipant(m club.Member) {
	for _, p := range st.sel.Participants {
		if p.ClientID == m.ClientID {
			return
		}
	}
	st.write(FieldParticipants, func(s *Selection) {
		s.Participants = append(s.Participants, m)
	})
}

// RemoveParticipant drops the entry with the given client id, if any.
func (st *Store) RemoveParticipant(clientID int64) {
	st.write(FieldParticipants, func(s *Selection) {
		kept := s.Participants[:0]
		for _, p := range s.Participants {
			if p.ClientID != clientID {
				kept = append(kept, p)
			}
		}
		s.Participants = kept
	})
}
