package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string `mapstructure:"PORT"`
	DatabasePath     string `mapstructure:"DATABASE_PATH"`
	ClubAPIBaseURL   string `mapstructure:"CLUB_API_BASE_URL"`
	ClubTokenURL     string `mapstructure:"CLUB_TOKEN_URL"`
	ClubClientID     string `mapstructure:"CLUB_CLIENT_ID"`
	ClubClientSecret string `mapstructure:"CLUB_CLIENT_SECRET"`
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	EnableCORS       bool   `mapstructure:"ENABLE_CORS"`

	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`

	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	// Booking types that accept waitlist entries, on top of the defaults
	// baked into the capability table.
	WaitlistBookingTypes []string `mapstructure:"WAITLIST_BOOKING_TYPES"`

	// How far ahead the calendar opens, in days from today.
	MaxAdvanceDays int `mapstructure:"MAX_ADVANCE_DAYS"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "agenda.db")
	viper.SetDefault("CLUB_API_BASE_URL", "http://127.0.0.1:9000")
	viper.SetDefault("SESSION_TTL", "2h")
	viper.SetDefault("WAITLIST_BOOKING_TYPES", []string{"TENIS"})
	viper.SetDefault("MAX_ADVANCE_DAYS", 30)

	viper.BindEnv("CLUB_API_BASE_URL")
	viper.BindEnv("CLUB_TOKEN_URL")
	viper.BindEnv("CLUB_CLIENT_ID")
	viper.BindEnv("CLUB_CLIENT_SECRET")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("ENABLE_CORS")
	viper.BindEnv("SESSION_TTL")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("WAITLIST_BOOKING_TYPES")
	viper.BindEnv("MAX_ADVANCE_DAYS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
