package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port    string `envconfig:"PORT" default:"4242"`
	BaseURL string `envconfig:"BASE_URL"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`

	BookingsFile string `envconfig:"BOOKINGS_FILE" default:"bookings.json"`
	PublicDir    string `envconfig:"PUBLIC_DIR" default:"public"`

	// Admin read surface is disabled unless both are set.
	AdminUser         string `envconfig:"ADMIN_USER"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// Booking events fall back to the console producer when no broker is set.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"booking_events"`
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Error getting working directory: %v", err)
		return
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded environment variables from %s", envPath)
			return
		}
	}

	for _, envPath := range possiblePaths {
		examplePath := filepath.Join(filepath.Dir(envPath), ".example.env")
		if err := godotenv.Load(examplePath); err == nil {
			log.Printf("Loaded environment variables from %s", examplePath)
			return
		}
	}
}

func Load() (Config, error) {
	loadEnv()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}

	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%s", c.Port)
	}

	return c, nil
}
