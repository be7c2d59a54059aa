package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/clubefacil/agenda-api/internal/club"
)

type Notifier interface {
	NotifyReservation(memberID int64, req club.ReservationRequest, res club.Reservation, waitlist bool) error
}

// DiscordNotifier posts a short message to the staff channel whenever a
// reservation goes through the wizard.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) NotifyReservation(memberID int64, req club.ReservationRequest, res club.Reservation, waitlist bool) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	kind := "Nova reserva"
	if waitlist {
		kind = "Nova entrada na fila de espera"
	}

	message := fmt.Sprintf("📅 **%s** #%d\n**Tipo:** %s\n**Membro:** %d\n**Espaço:** %d\n**Data:** %s %s - %s",
		kind,
		res.ID,
		req.BookingType,
		memberID,
		req.VenueID,
		req.Date,
		req.SlotStart,
		req.SlotEnd,
	)

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}
