package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/joho/godotenv"

	"github.com/electmap/newsletter-backend/api"
	"github.com/electmap/newsletter-backend/db"
	"github.com/electmap/newsletter-backend/email"
)

func main() {
	godotenv.Load()
	raven.SetDSN(os.Getenv("SENTRY_DSN"))

	cfg, err := db.LoadEnvironmentVariables()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	kv, err := db.InitRedisKV(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal(err)
	}

	subscriptions := db.NewSubscriptionDB(kv)
	emailer, err := email.MakeConfigFromEnv(subscriptions)
	if err != nil {
		log.Fatal(err)
	}

	a := api.API{
		Subscriptions: subscriptions,
		Emailer:       emailer,
	}
	mux := http.NewServeMux()
	log.Printf("Serving on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, a.RegisterHandlers(mux)))
}
