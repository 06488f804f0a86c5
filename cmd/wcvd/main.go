package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/api"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/backends"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/pub"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/upstream"
)

type serverConfig struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AdminKey    string `env:"ADMIN_KEY"`
	TokenSecret string `env:"TOKEN_SECRET"`
	EventsTopic string `env:"EVENTS_SNS_ARN"`
}

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse server config: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	ctx := context.Background()

	cacheStore, err := backends.CacheBackendFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize cache store: %v", err)
	}
	settingsStore, err := backends.SettingsBackendFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize settings store: %v", err)
	}

	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		// Random per-process secret; tokens won't survive a restart.
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		secret = []byte(hex.EncodeToString(b))
		log.Warn("TOKEN_SECRET not set, using an ephemeral secret")
	}

	h := api.NewHandler(settingsStore, cacheStore, upstream.New(), secret)
	h.AdminKey = cfg.AdminKey
	if cfg.AdminKey == "" {
		log.Warn("ADMIN_KEY not set, admin endpoints are disabled")
	}

	if cfg.EventsTopic != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		h.Pub = pub.NewSNS(sns.NewFromConfig(awsCfg))
		h.EventsTopic = cfg.EventsTopic
	}

	stop, done := api.RunServerInterruptible(cfg.Port, h)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Infof("Received signal %v, shutting down", s)
		stop <- struct{}{}
		if err := <-done; err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	case err := <-done:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
