package handlers

import (
	"net/http"

	"github.com/clubefacil/agenda-api/internal/auth"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(r *chi.Mux, authHandler *auth.Handler, wizardHandler *WizardHandler) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Everything under the wizard requires the club bearer token.
	r.Group(func(r chi.Router) {
		r.Use(authHandler.Middleware)

		config := huma.DefaultConfig("Agenda API", "1.0.0")
		config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearerAuth": {
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		}
		api := humachi.New(r, config)

		bearer := func(o *huma.Operation) {
			o.Security = []map[string][]string{{"bearerAuth": {}}}
		}

		huma.Post(api, "/wizard", wizardHandler.HandleCreate, bearer)
		huma.Get(api, "/wizard/{id}", wizardHandler.HandleView, bearer)
		huma.Put(api, "/wizard/{id}/date", wizardHandler.HandleSetDate, bearer)
		huma.Put(api, "/wizard/{id}/venue", wizardHandler.HandleSetVenue, bearer)
		huma.Put(api, "/wizard/{id}/slot", wizardHandler.HandleSetSlot, bearer)
		huma.Put(api, "/wizard/{id}/waitlist-slot", wizardHandler.HandleSetWaitlistSlot, bearer)
		huma.Put(api, "/wizard/{id}/venue-slot", wizardHandler.HandleSetVenueSlot, bearer)
		huma.Put(api, "/wizard/{id}/note", wizardHandler.HandleSetNote, bearer)
		huma.Put(api, "/wizard/{id}/terms", wizardHandler.HandleSetTerms, bearer)
		huma.Post(api, "/wizard/{id}/participants", wizardHandler.HandleAddParticipant, bearer)
		huma.Delete(api, "/wizard/{id}/participants/{clienteId}", wizardHandler.HandleRemoveParticipant, bearer)
		huma.Post(api, "/wizard/{id}/refresh", wizardHandler.HandleRefresh, bearer)
		huma.Post(api, "/wizard/{id}/finalize", wizardHandler.HandleFinalize, bearer)
		huma.Delete(api, "/wizard/{id}", wizardHandler.HandleDelete, bearer)
	})
}
