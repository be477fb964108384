package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds the static settings read once at startup. Nothing here is
// mutated after Load, so handlers can read it without locking.
type Config struct {
	SecretKey        string
	SiteID           uint
	CommentTimeout   time.Duration // how long an issued form stays valid
	CommentMaxLength int
	RatingRange      int // ratings are 0..RatingRange inclusive

	DatabaseURL string
	Port        string
}

var C *Config

// Load reads the environment into the global config. Invalid static
// configuration is fatal here, never at request time.
func Load() {
	c := &Config{
		SecretKey:        os.Getenv("SECRET_KEY"),
		SiteID:           uint(envInt("SITE_ID", 1)),
		CommentTimeout:   time.Duration(envInt("COMMENT_TIMEOUT", 3*60*60)) * time.Second,
		CommentMaxLength: envInt("COMMENT_MAX_LENGTH", 5000),
		RatingRange:      envInt("RATING_RANGE", 100),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             os.Getenv("PORT"),
	}

	if c.SecretKey == "" {
		if os.Getenv("GIN_MODE") == "release" {
			log.Fatal("SECRET_KEY must be set in release mode")
		}
		c.SecretKey = "secret_key_change_me"
		log.Println("SECRET_KEY not set, using development default")
	}
	if c.RatingRange < 1 {
		log.Fatalf("RATING_RANGE must be a positive integer, got %d", c.RatingRange)
	}
	if c.CommentTimeout <= 0 {
		log.Fatalf("COMMENT_TIMEOUT must be a positive number of seconds")
	}
	if c.Port == "" {
		c.Port = "8080"
	}

	C = c
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("Invalid value for %s: %q", key, s)
	}
	return n
}
