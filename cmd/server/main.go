package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/clubefacil/agenda-api/internal/activities"
	"github.com/clubefacil/agenda-api/internal/auth"
	"github.com/clubefacil/agenda-api/internal/club"
	"github.com/clubefacil/agenda-api/internal/config"
	"github.com/clubefacil/agenda-api/internal/database"
	"github.com/clubefacil/agenda-api/internal/handlers"
	"github.com/clubefacil/agenda-api/internal/notifier"
	"github.com/clubefacil/agenda-api/internal/wizard"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Club platform client and wizard engine
	clubClient := club.New(cfg)
	engine := wizard.NewEngine(clubClient)
	queryRegistry := wizard.NewRegistry(clubClient)
	capsTable := activities.NewTable(cfg)

	// Discord notifier is optional; the wizard works without it.
	var reservationNotifier notifier.Notifier
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			reservationNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
		}
	}

	authHandler := auth.NewHandler(cfg)
	wizardHandler := handlers.NewWizardHandler(db, clubClient, engine, queryRegistry, capsTable, reservationNotifier)

	// Abandoned sessions are swept in the background.
	handlers.StartSessionSweeper(db, queryRegistry, cfg.SessionTTL)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, wizardHandler)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
