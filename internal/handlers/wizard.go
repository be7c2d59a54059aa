package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/clubefacil/agenda-api/internal/activities"
	"github.com/clubefacil/agenda-api/internal/auth"
	"github.com/clubefacil/agenda-api/internal/club"
	"github.com/clubefacil/agenda-api/internal/models"
	"github.com/clubefacil/agenda-api/internal/notifier"
	"github.com/clubefacil/agenda-api/internal/wizard"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"
)

type WizardHandler struct {
	db       *gorm.DB
	club     *club.Client
	engine   *wizard.Engine
	queries  *wizard.Registry
	caps     *activities.Table
	notifier notifier.Notifier
}

func NewWizardHandler(db *gorm.DB, clubClient *club.Client, engine *wizard.Engine, queries *wizard.Registry, caps *activities.Table, n notifier.Notifier) *WizardHandler {
	return &WizardHandler{db: db, club: clubClient, engine: engine, queries: queries, caps: caps, notifier: n}
}

type WizardViewBody struct {
	SessionID   string         `json:"sessionId"`
	BookingType string         `json:"bookingType"`
	Activity    *club.Activity `json:"activity,omitempty"`
	Steps       []wizard.Step  `json:"steps"`
	NextStep    string         `json:"nextStep,omitempty" doc:"First unchecked step, the scroll anchor"`
	CanFinalize bool           `json:"canFinalize"`
}

type WizardViewResponse struct {
	Body WizardViewBody
}

type CreateWizardRequest struct {
	Body struct {
		ActivityID int64 `json:"atividadeId" required:"true" doc:"Activity to book"`
	}
}

func (h *WizardHandler) HandleCreate(ctx context.Context, input *CreateWizardRequest) (*WizardViewResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	token := auth.Token(ctx)

	activity, err := h.club.GetActivity(ctx, token, input.Body.ActivityID)
	if err != nil {
		return nil, upstreamError(err)
	}
	caps := h.caps.ForActivity(activity)

	sel := wizard.Selection{Activity: activity}

	// The venue list and family members are loaded once per session, like
	// the original page load, and snapshotted into the state blob.
	if !caps.CombinedVenueSlot {
		venues, err := h.club.ListVenues(ctx, token, activity.ID)
		if err != nil {
			return nil, upstreamError(err)
		}
		sel.Venues = venues
	}
	if caps.HasParticipants {
		family, err := h.club.ListFamilyMembers(ctx, token)
		if err != nil {
			return nil, upstreamError(err)
		}
		sel.Family = family
	}

	state, err := json.Marshal(sel)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode session state")
	}

	row := models.WizardSession{
		SessionID:  newSessionID(),
		MemberID:   memberID,
		ActivityID: activity.ID,
		State:      state,
	}
	if err := h.db.Create(&row).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create session")
	}

	sess := &wizard.Session{
		ID:       row.SessionID,
		MemberID: memberID,
		Caps:     caps,
		Store:    wizard.NewStore(sel),
		Queries:  h.queries.ForSession(row.SessionID),
	}
	return h.viewResponse(ctx, token, sess), nil
}

type WizardIDRequest struct {
	ID string `path:"id"`
}

func (h *WizardHandler) HandleView(ctx context.Context, input *WizardIDRequest) (*WizardViewResponse, error) {
	sess, _, err := h.loadSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return h.viewResponse(ctx, auth.Token(ctx), sess), nil
}

type SetDateRequest struct {
	ID   string `path:"id"`
	Body struct {
		Date string `json:"data" required:"true" doc:"ISO date, 2006-01-02"`
	}
}

func (h *WizardHandler) HandleSetDate(ctx context.Context, input *SetDateRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		return h.engine.SelectDate(sess, input.Body.Date)
	})
}

type SetVenueRequest struct {
	ID   string `path:"id"`
	Body struct {
		VenueID int64 `json:"atividadeEspacoId" required:"true"`
	}
}

func (h *WizardHandler) HandleSetVenue(ctx context.Context, input *SetVenueRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		return h.engine.SelectVenue(sess, input.Body.VenueID)
	})
}

type SetSlotRequest struct {
	ID   string `path:"id"`
	Body struct {
		SlotID int64 `json:"agendamentoHorarioId" required:"true"`
	}
}

func (h *WizardHandler) HandleSetSlot(ctx context.Context, input *SetSlotRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		return h.engine.SelectSlot(ctx, auth.Token(ctx), sess, input.Body.SlotID)
	})
}

func (h *WizardHandler) HandleSetWaitlistSlot(ctx context.Context, input *SetSlotRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		return h.engine.SelectWaitlistSlot(ctx, auth.Token(ctx), sess, input.Body.SlotID)
	})
}

type SetVenueSlotRequest struct {
	ID   string `path:"id"`
	Body struct {
		VenueID int64 `json:"atividadeEspacoId" required:"true"`
		SlotID  int64 `json:"agendamentoHorarioId" required:"true"`
	}
}

func (h *WizardHandler) HandleSetVenueSlot(ctx context.Context, input *SetVenueSlotRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		return h.engine.SelectVenueSlot(ctx, auth.Token(ctx), sess, input.Body.VenueID, input.Body.SlotID)
	})
}

type SetNoteRequest struct {
	ID   string `path:"id"`
	Body struct {
		Note string `json:"observacao"`
	}
}

// HandleSetNote never fails on content: an over-long note is silently
// ignored and the previous value kept.
func (h *WizardHandler) HandleSetNote(ctx context.Context, input *SetNoteRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		sess.Store.SetNote(input.Body.Note)
		return nil
	})
}

type SetTermsRequest struct {
	ID   string `path:"id"`
	Body struct {
		Accepted bool `json:"aceito"`
	}
}

func (h *WizardHandler) HandleSetTerms(ctx context.Context, input *SetTermsRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		sess.Store.SetTermsAccepted(input.Body.Accepted)
		return nil
	})
}

type AddParticipantRequest struct {
	ID   string `path:"id"`
	Body struct {
		ClientID  int64  `json:"clienteId,omitempty" doc:"Family member to add"`
		Matricula string `json:"matricula,omitempty" doc:"Guest registration number to look up"`
	}
}

func (h *WizardHandler) HandleAddParticipant(ctx context.Context, input *AddParticipantRequest) (*WizardViewResponse, error) {
	if input.Body.ClientID == 0 && input.Body.Matricula == "" {
		return nil, huma.Error422UnprocessableEntity("Either clienteId or matricula is required")
	}
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		if input.Body.ClientID != 0 {
			return h.engine.AddFamilyParticipant(sess, input.Body.ClientID)
		}
		member, err := h.club.LookupMemberByMatricula(ctx, auth.Token(ctx), input.Body.Matricula)
		if err != nil {
			return err
		}
		sess.Store.AddParticipant(*member)
		return nil
	})
}

type RemoveParticipantRequest struct {
	ID       string `path:"id"`
	ClientID int64  `path:"clienteId"`
}

func (h *WizardHandler) HandleRemoveParticipant(ctx context.Context, input *RemoveParticipantRequest) (*WizardViewResponse, error) {
	return h.mutate(ctx, input.ID, func(sess *wizard.Session) error {
		sess.Store.RemoveParticipant(input.ClientID)
		return nil
	})
}

// HandleRefresh retries the failed dependent queries for the session's
// current selection.
func (h *WizardHandler) HandleRefresh(ctx context.Context, input *WizardIDRequest) (*WizardViewResponse, error) {
	sess, _, err := h.loadSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	sess.Queries.Refresh(sess.Store.Selection())
	return h.viewResponse(ctx, auth.Token(ctx), sess), nil
}

type FinalizeResponse struct {
	Body struct {
		ReservationID int64 `json:"agendamentoId"`
		Waitlist      bool  `json:"filaEspera"`
	}
}

func (h *WizardHandler) HandleFinalize(ctx context.Context, input *WizardIDRequest) (*FinalizeResponse, error) {
	sess, row, err := h.loadSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	token := auth.Token(ctx)

	res, req, waitlist, err := h.engine.Finalize(ctx, token, sess)
	if err != nil {
		if errors.Is(err, wizard.ErrIncomplete) {
			return nil, huma.Error409Conflict("Wizard has unchecked steps")
		}
		// Upstream rejection is non-fatal: the session stays so the
		// member can correct and resubmit.
		return nil, upstreamError(err)
	}

	if err := h.db.Delete(row).Error; err != nil {
		log.Printf("Failed to delete finalized session %s: %v", sess.ID, err)
	}
	h.queries.Drop(sess.ID)

	if h.notifier != nil {
		if err := h.notifier.NotifyReservation(sess.MemberID, req, *res, waitlist); err != nil {
			log.Printf("Failed to notify reservation %d: %v", res.ID, err)
		}
	}

	out := &FinalizeResponse{}
	out.Body.ReservationID = res.ID
	out.Body.Waitlist = waitlist
	return out, nil
}

func (h *WizardHandler) HandleDelete(ctx context.Context, input *WizardIDRequest) (*struct{}, error) {
	sess, row, err := h.loadSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.db.Delete(row).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete session")
	}
	h.queries.Drop(sess.ID)
	return nil, nil
}

// mutate loads the session, applies op through the store/engine, persists
// the new state and returns the recomputed view.
func (h *WizardHandler) mutate(ctx context.Context, id string, op func(*wizard.Session) error) (*WizardViewResponse, error) {
	sess, row, err := h.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := op(sess); err != nil {
		return nil, wizardError(err)
	}

	state, err := json.Marshal(sess.Store.Selection())
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode session state")
	}
	if err := h.db.Model(row).Update("state", state).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to save session")
	}

	return h.viewResponse(ctx, auth.Token(ctx), sess), nil
}

func (h *WizardHandler) loadSession(ctx context.Context, id string) (*wizard.Session, *models.WizardSession, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, nil, huma.Error401Unauthorized("Unauthorized")
	}

	var row models.WizardSession
	if err := h.db.Where("session_id = ? AND member_id = ?", id, memberID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, huma.Error404NotFound("Session not found")
		}
		return nil, nil, huma.Error500InternalServerError("Failed to load session")
	}

	var sel wizard.Selection
	if err := json.Unmarshal(row.State, &sel); err != nil {
		return nil, nil, huma.Error500InternalServerError("Failed to decode session state")
	}

	sess := &wizard.Session{
		ID:       row.SessionID,
		MemberID: row.MemberID,
		Caps:     h.caps.ForActivity(sel.Activity),
		Store:    wizard.NewStore(sel),
		Queries:  h.queries.ForSession(row.SessionID),
	}
	return sess, &row, nil
}

func (h *WizardHandler) viewResponse(ctx context.Context, token string, sess *wizard.Session) *WizardViewResponse {
	view := h.engine.View(ctx, token, sess)
	sel := sess.Store.Selection()
	return &WizardViewResponse{Body: WizardViewBody{
		SessionID:   sess.ID,
		BookingType: sess.Caps.BookingType,
		Activity:    sel.Activity,
		Steps:       view.Steps,
		NextStep:    view.NextStep,
		CanFinalize: view.CanFinalize,
	}}
}

func wizardError(err error) error {
	switch {
	case errors.Is(err, wizard.ErrDateOutOfRange):
		return huma.Error422UnprocessableEntity("Date outside the permitted window")
	case errors.Is(err, wizard.ErrVenueNotFound):
		return huma.Error404NotFound("Venue not available for this activity")
	case errors.Is(err, wizard.ErrSlotNotFound):
		return huma.Error404NotFound("Slot not in the current list")
	case errors.Is(err, wizard.ErrSlotListNotReady):
		return huma.Error409Conflict("Slot list not loaded for the current selection")
	case errors.Is(err, wizard.ErrUnknownMember):
		return huma.Error404NotFound("Member not in the family list")
	default:
		return upstreamError(err)
	}
}

// upstreamError maps a club client failure to an HTTP error. The detail goes
// to the log; clients only see the upstream status, never internal URLs.
func upstreamError(err error) error {
	var ue *club.UpstreamError
	if errors.As(err, &ue) {
		if ue.Status == http.StatusNotFound {
			return huma.Error404NotFound("Not found on the club platform")
		}
		log.Printf("Club platform request failed: %v", ue)
		return huma.Error502BadGateway(fmt.Sprintf("Club platform returned status %d", ue.Status))
	}
	log.Printf("Club platform request failed: %v", err)
	return huma.Error502BadGateway("Club platform request failed")
}

func newSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// StartSessionSweeper deletes wizard sessions that outlived the TTL, along
// with their query caches. Runs until the process exits.
func StartSessionSweeper(db *gorm.DB, queries *wizard.Registry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(ttl / 4)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-ttl)

			var ids []string
			if err := db.Model(&models.WizardSession{}).Where("updated_at < ?", cutoff).Pluck("session_id", &ids).Error; err != nil {
				log.Printf("Session sweep failed: %v", err)
				continue
			}
			if len(ids) == 0 {
				continue
			}
			if err := db.Where("session_id IN ?", ids).Delete(&models.WizardSession{}).Error; err != nil {
				log.Printf("Session sweep failed: %v", err)
				continue
			}
			for _, id := range ids {
				queries.Drop(id)
			}
		}
	}()
}
