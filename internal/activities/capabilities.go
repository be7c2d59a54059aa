package activities

import (
	"strings"

	"github.com/clubefacil/agenda-api/internal/club"
	"github.com/clubefacil/agenda-api/internal/config"
)

// Booking types recognized by the wizard. Anything unmapped runs the
// default flow.
const (
	TypeChurrasqueira = "CHURRASQUEIRA"
	TypeTenis         = "TENIS"
	TypeDefault       = "PADRAO"
)

// BoundsSource says which slot selection drives the participant-count check.
type BoundsSource string

const (
	// BoundsNormalSlot: only a confirmed slot carries participant bounds.
	BoundsNormalSlot BoundsSource = "normal-slot-only"
	// BoundsAnySlot: a waitlist selection also carries bounds.
	BoundsAnySlot BoundsSource = "any-slot"
)

// Capabilities describes how the wizard behaves for one booking type. This
// table replaces the old scattered comparisons against env-configured
// activity ids.
type Capabilities struct {
	BookingType       string
	SupportsWaitlist  bool
	CombinedVenueSlot bool
	HasParticipants   bool
	RequiresTerms     bool
	ParticipantBounds BoundsSource
	MaxAdvanceDays    int
}

type Table struct {
	byType   map[string]Capabilities
	fallback Capabilities
}

func NewTable(cfg *config.Config) *Table {
	maxDays := cfg.MaxAdvanceDays
	if maxDays <= 0 {
		maxDays = 30
	}

	t := &Table{
		byType: map[string]Capabilities{
			TypeChurrasqueira: {
				BookingType:       TypeChurrasqueira,
				CombinedVenueSlot: true,
				RequiresTerms:     true,
				ParticipantBounds: BoundsNormalSlot,
				MaxAdvanceDays:    maxDays,
			},
			TypeTenis: {
				BookingType:       TypeTenis,
				SupportsWaitlist:  true,
				HasParticipants:   true,
				ParticipantBounds: BoundsAnySlot,
				MaxAdvanceDays:    maxDays,
			},
		},
		fallback: Capabilities{
			BookingType:       TypeDefault,
			HasParticipants:   true,
			ParticipantBounds: BoundsNormalSlot,
			MaxAdvanceDays:    maxDays,
		},
	}

	for _, bt := range cfg.WaitlistBookingTypes {
		bt = normalize(bt)
		caps, ok := t.byType[bt]
		if !ok {
			caps = t.fallback
			caps.BookingType = bt
		}
		caps.SupportsWaitlist = true
		caps.ParticipantBounds = BoundsAnySlot
		t.byType[bt] = caps
	}

	return t
}

// ForActivity resolves the capability record for an activity by its derived
// booking type.
func (t *Table) ForActivity(a *club.Activity) Capabilities {
	bt := BookingTypeFor(a)
	if caps, ok := t.byType[bt]; ok {
		return caps
	}
	caps := t.fallback
	caps.BookingType = bt
	return caps
}

// BookingTypeFor derives the booking type from the activity's name and
// category, the same mapping the club's front end applies.
func BookingTypeFor(a *club.Activity) string {
	name := normalize(a.Name)
	category := normalize(a.CategoryName)

	switch {
	case strings.Contains(name, TypeChurrasqueira) || strings.Contains(category, TypeChurrasqueira):
		return TypeChurrasqueira
	case strings.Contains(name, TypeTenis) || strings.Contains(category, TypeTenis):
		return TypeTenis
	default:
		return TypeDefault
	}
}

var deaccent = strings.NewReplacer(
	"Á", "A", "Â", "A", "Ã", "A", "À", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U",
	"Ç", "C",
)

func normalize(s string) string {
	return deaccent.Replace(strings.ToUpper(strings.TrimSpace(s)))
}
