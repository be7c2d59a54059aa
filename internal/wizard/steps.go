package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/clubefacil/agenda-api/internal/activities"
	"github.com/clubefacil/agenda-api/internal/club"
)

// ContentState is the per-step content machine: loading resolves into error,
// empty or ready; waiting means earlier steps haven't been filled in yet and
// is deliberately distinct from loading.
type ContentState string

const (
	ContentWaiting ContentState = "waiting"
	ContentLoading ContentState = "loading"
	ContentError   ContentState = "error"
	ContentEmpty   ContentState = "empty"
	ContentReady   ContentState = "ready"
)

type StepContent struct {
	State   ContentState `json:"state"`
	Message string       `json:"message,omitempty"`

	MinDate string `json:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty"`

	Venues []club.Venue `json:"venues,omitempty"`
	Slots  []club.Slot  `json:"slots,omitempty"`

	Participants    []club.Member `json:"participants,omitempty"`
	FamilyMembers   []club.Member `json:"familyMembers,omitempty"`
	MinParticipants int           `json:"minParticipants,omitempty"`
	MaxParticipants int           `json:"maxParticipants,omitempty"`
	AllowsFamily    bool          `json:"allowsFamily,omitempty"`
	AllowsGuests    bool          `json:"allowsGuests,omitempty"`

	Note          string `json:"note,omitempty"`
	NoteLimit     int    `json:"noteLimit,omitempty"`
	TermsAccepted bool   `json:"termsAccepted,omitempty"`
}

// Step is one unit of the wizard: a completion flag, a one-line summary for
// the collapsed view and the content for the expanded view. It is computed
// fresh from the store and query state on every read.
type Step struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Checked     bool        `json:"checked"`
	Summary     string      `json:"summary"`
	Content     StepContent `json:"content"`
}

const (
	StepDate         = "data"
	StepVenue        = "local"
	StepVenueSlot    = "localHorario"
	StepSlot         = "horario"
	StepWaitlist     = "filaEspera"
	StepParticipants = "participantes"
	StepTerms        = "termosECondicoes"
	StepNote         = "observacao"
)

const displayDate = "02/01/2006"

// dateWindow is the selectable range: today through the advance horizon,
// clamped to the activity's release ceiling. Both the calendar bounds and the
// server-side date validation come from here.
func dateWindow(sel Selection, caps activities.Capabilities, now time.Time) (string, string) {
	min := now.Format("2006-01-02")
	max := now.AddDate(0, 0, caps.MaxAdvanceDays-1).Format("2006-01-02")
	if sel.Activity != nil && sel.Activity.ReleaseCeiling != "" && sel.Activity.ReleaseCeiling < max {
		max = sel.Activity.ReleaseCeiling
	}
	return min, max
}

func dateStep(sel Selection, caps activities.Capabilities, now time.Time) Step {
	min, max := dateWindow(sel, caps, now)

	summary := "Nenhuma data selecionada"
	if sel.Date != "" {
		if d, err := time.Parse("2006-01-02", sel.Date); err == nil {
			summary = d.Format(displayDate)
		}
	}

	return Step{
		ID:          StepDate,
		Name:        "Data",
		Description: "Escolha uma data para realizar o agendamento",
		Checked:     sel.Date != "",
		Summary:     summary,
		Content:     StepContent{State: ContentReady, MinDate: min, MaxDate: max},
	}
}

func venueStep(sel Selection) Step {
	content := StepContent{State: ContentReady, Venues: sel.Venues}
	if len(sel.Venues) == 0 {
		content = StepContent{
			State:   ContentEmpty,
			Message: "Desculpe, mas nenhum local foi encontrado para essa atividade",
		}
	}

	summary := "Nenhum local selecionado"
	if sel.Venue != nil {
		summary = sel.Venue.Name
	}

	return Step{
		ID:          StepVenue,
		Name:        "Local",
		Description: "Escolha um local para realizar o agendamento",
		Checked:     sel.Venue != nil,
		Summary:     summary,
		Content:     content,
	}
}

func venueSlotStep(sel Selection, res VenuesResult) Step {
	var content StepContent
	switch res.Status {
	case StatusUnmet:
		content = StepContent{State: ContentWaiting, Message: "Preencha as tarefas anteriores primeiro"}
	case StatusPending:
		content = StepContent{State: ContentLoading, Message: "Carregando horários..."}
	case StatusError:
		content = StepContent{State: ContentError, Message: res.Err.Error()}
	default:
		if len(res.Venues) == 0 {
			content = StepContent{State: ContentEmpty, Message: "Nenhum espaço com horário disponível nessa data."}
		} else {
			content = StepContent{State: ContentReady, Venues: res.Venues}
		}
	}

	summary := "Nenhum horário selecionado"
	if sel.Venue != nil && sel.Slot != nil {
		summary = fmt.Sprintf("%s • %s - %s", sel.Venue.Name, sel.Slot.Start, sel.Slot.End)
	}

	return Step{
		ID:          StepVenueSlot,
		Name:        "Local e horário",
		Description: "Escolha o local e o horário desejado",
		Checked:     sel.Venue != nil && sel.Slot != nil,
		Summary:     summary,
		Content:     content,
	}
}

func slotStep(sel Selection, res SlotsResult) Step {
	var content StepContent
	switch res.Status {
	case StatusUnmet:
		content = StepContent{State: ContentWaiting, Message: "Preencha as tarefas anteriores primeiro"}
	case StatusPending:
		content = StepContent{State: ContentLoading, Message: "Carregando horários..."}
	case StatusError:
		content = StepContent{State: ContentError, Message: res.Err.Error()}
	default:
		if len(res.Slots) == 0 {
			content = StepContent{
				State:   ContentEmpty,
				Message: "Desculpe, mas não há horários disponíveis nessa data.",
			}
		} else {
			content = StepContent{State: ContentReady, Slots: res.Slots}
		}
	}

	summary := "Nenhum horário selecionado"
	if sel.Slot != nil {
		summary = fmt.Sprintf("%s - %s", sel.Slot.Start, sel.Slot.End)
	} else if sel.WaitlistSlot != nil {
		summary = "Selecionou um horário da fila de espera"
	}

	return Step{
		ID:          StepSlot,
		Name:        "Horário",
		Description: "Escolha um horário disponível para a data escolhida",
		Checked:     sel.Slot != nil || sel.WaitlistSlot != nil,
		Summary:     summary,
		Content:     content,
	}
}

func waitlistStep(sel Selection, res SlotsResult) Step {
	var content StepContent
	switch res.Status {
	case StatusUnmet:
		content = StepContent{State: ContentWaiting, Message: "Escolha uma data e um local primeiro"}
	case StatusPending:
		content = StepContent{State: ContentLoading, Message: "Carregando horários..."}
	case StatusError:
		content = StepContent{State: ContentError, Message: res.Err.Error()}
	default:
		if len(res.Slots) == 0 {
			content = StepContent{
				State:   ContentEmpty,
				Message: "Desculpe, mas não há horários disponíveis nessa data.",
			}
		} else {
			content = StepContent{State: ContentReady, Slots: res.Slots}
		}
	}

	summary := "Selecionou um horário do agendamento"
	if sel.WaitlistSlot != nil {
		summary = fmt.Sprintf("%s - %s", sel.WaitlistSlot.Start, sel.WaitlistSlot.End)
	}

	return Step{
		ID:          StepWaitlist,
		Name:        "Fila de espera",
		Description: "Entre na fila de espera de algum horário (opcional)",
		Checked:     sel.Slot != nil || sel.WaitlistSlot != nil,
		Summary:     summary,
		Content:     content,
	}
}

func participantsStep(sel Selection, caps activities.Capabilities) Step {
	bounds := sel.Slot
	if bounds == nil && caps.ParticipantBounds == activities.BoundsAnySlot {
		bounds = sel.WaitlistSlot
	}

	var content StepContent
	if bounds == nil {
		msg := "Escolha um horário primeiro"
		if caps.SupportsWaitlist {
			msg = "Escolha um horário ou fila de espera primeiro"
		}
		content = StepContent{State: ContentWaiting, Message: msg}
	} else {
		content = StepContent{
			State:           ContentReady,
			Participants:    sel.Participants,
			FamilyMembers:   sel.Family,
			MinParticipants: bounds.MinParticipants,
			MaxParticipants: bounds.MaxParticipants,
		}
		if sel.Activity != nil {
			content.AllowsFamily = sel.Activity.AllowsFamilyMembers
			content.AllowsGuests = sel.Activity.AllowsGuests
		}
	}

	n := len(sel.Participants)
	checked := bounds != nil && n > 0 &&
		n >= bounds.MinParticipants && n <= bounds.MaxParticipants

	return Step{
		ID:          StepParticipants,
		Name:        "Participantes",
		Description: "Escolha os participantes do agendamento",
		Checked:     checked,
		Summary:     fmt.Sprintf("%d adicionado(s)", n),
		Content:     content,
	}
}

func termsStep(sel Selection) Step {
	summary := "Termos pendentes"
	if sel.TermsAccepted {
		summary = "Termos aceitos"
	}
	return Step{
		ID:          StepTerms,
		Name:        "Termos e Condições",
		Description: "Leia e aceite os termos e condições de uso",
		Checked:     sel.TermsAccepted,
		Summary:     summary,
		Content:     StepContent{State: ContentReady, TermsAccepted: sel.TermsAccepted},
	}
}

func noteStep(sel Selection) Step {
	summary := "Nenhuma observação"
	if sel.Note != "" {
		summary = "Adicionada"
	}
	return Step{
		ID:          StepNote,
		Name:        "Observação",
		Description: "Adicione uma observação ao agendamento (opcional)",
		Checked:     true,
		Summary:     summary,
		Content:     StepContent{State: ContentReady, Note: sel.Note, NoteLimit: NoteMaxLen},
	}
}

// buildSteps assembles the ordered step list for the session's booking type.
func buildSteps(ctx context.Context, token string, q *Queries, sel Selection, caps activities.Capabilities, now time.Time) []Step {
	var steps []Step

	if caps.CombinedVenueSlot {
		steps = append(steps,
			dateStep(sel, caps, now),
			venueSlotStep(sel, q.VenuesWithSlots(ctx, token, sel)),
		)
	} else {
		steps = append(steps,
			venueStep(sel),
			dateStep(sel, caps, now),
			slotStep(sel, q.AvailableSlots(ctx, token, sel)),
		)
		if caps.SupportsWaitlist {
			steps = append(steps, waitlistStep(sel, q.WaitlistSlots(ctx, token, sel)))
		}
	}

	if caps.HasParticipants {
		steps = append(steps, participantsStep(sel, caps))
	}
	if caps.RequiresTerms {
		steps = append(steps, termsStep(sel))
	}
	steps = append(steps, noteStep(sel))

	return steps
}
