// Command portal runs the HopeBridge portal host: it serves the auth routes
// (social sign-in, password login, registration, logout) and wires the
// orchestrator, provider adapters and session stores together.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"

	"github.com/hopebridge/portalauth"
	"github.com/hopebridge/portalauth/client"
	portaloauth2 "github.com/hopebridge/portalauth/oauth2"
	fsstores "github.com/hopebridge/portalauth/stores/fs"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	sessions, err := fsstores.NewSessionStore(cfg.SessionPath)
	if err != nil {
		log.Fatal("failed to open session store: ", err)
	}
	pending, err := fsstores.NewPendingStore(cfg.PendingPath)
	if err != nil {
		log.Fatal("failed to open pending store: ", err)
	}

	backend := client.New(cfg.BackendURL)

	orch := portalauth.NewOrchestrator(backend, sessions, pending,
		portaloauth2.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL).RequireVerifiedIDToken(),
		portaloauth2.NewFacebook(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookCallbackURL),
	)
	orch.OnChange = func(state portalauth.State, failure *portalauth.NormalizedError) {
		if failure != nil {
			slog.Info("auth state", "state", state, "category", failure.Category)
			return
		}
		slog.Info("auth state", "state", state)
	}

	// Consume any attempt abandoned before its callback arrived, so nothing
	// downstream reads session state ahead of redirect recovery.
	if _, err := orch.RecoverRedirectOutcome(context.Background(), nil); err != nil {
		slog.Warn("redirect recovery failed", "err", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour

	app := &App{
		Orchestrator: orch,
		Sessions:     sessionManager,
		Middleware:   &portalauth.Middleware{Sessions: sessions},
	}
	app.Middleware.GetRedirURL = func(r *http.Request) string { return "/login" }

	router := mux.NewRouter()
	app.Routes(router)

	log.Println("portal listening on", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, sessionManager.LoadAndSave(router)))
}
