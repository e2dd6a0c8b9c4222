package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"

	"github.com/hopebridge/portalauth"
)

// App holds the portal's HTTP surface. Handlers only translate between the
// wire and the orchestrator; all auth decisions live in the library.
type App struct {
	Orchestrator *portalauth.Orchestrator
	Sessions     *scs.SessionManager
	Middleware   *portalauth.Middleware
}

func (a *App) Routes(router *mux.Router) {
	router.HandleFunc("/auth/login", a.handleLogin).Methods("POST")
	router.HandleFunc("/auth/register", a.handleRegister).Methods("POST")
	router.HandleFunc("/auth/{provider}", a.handleStartSignIn).Methods("GET")
	router.HandleFunc("/auth/{provider}/callback", a.handleCallback).Methods("GET")
	router.HandleFunc("/logout", a.handleLogout).Methods("GET", "POST")
	router.Handle("/dashboard", a.Middleware.EnsureUser(http.HandlerFunc(a.handleDashboard))).Methods("GET")
	router.HandleFunc("/login", a.handleLoginPage).Methods("GET")
	router.HandleFunc("/", a.handleHome).Methods("GET")
}

// handleStartSignIn kicks off a social sign-in and sends the browser to the
// provider. ?mode=redirect selects the full-page flow; anything else is
// treated as the popup flow.
func (a *App) handleStartSignIn(w http.ResponseWriter, r *http.Request) {
	provider := portalauth.Provider(mux.Vars(r)["provider"])
	mode := portalauth.ModePopup
	if r.URL.Query().Get("mode") == "redirect" {
		mode = portalauth.ModeRedirect
	}

	req, err := a.Orchestrator.SignIn(provider, mode)
	if err != nil {
		if errors.Is(err, portalauth.ErrUnknownProvider) {
			http.Error(w, "unknown provider", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, req.URL, http.StatusFound)
}

// handleCallback receives the provider redirect. The in-flight attempt is
// completed directly; if the process restarted between start and callback
// (redirect mode), the persisted attempt is recovered instead.
func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cb := portalauth.CallbackValues{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		ErrorCode:        q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	session, err := a.Orchestrator.CompleteSignIn(r.Context(), cb)
	if errors.Is(err, portalauth.ErrNoAttempt) {
		session, err = a.Orchestrator.RecoverRedirectOutcome(r.Context(), &cb)
	}
	if err != nil {
		var ne *portalauth.NormalizedError
		if errors.As(err, &ne) {
			a.redirectWithError(w, r, ne)
			return
		}
		if errors.Is(err, portalauth.ErrStaleAttempt) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if session == nil {
		// Recovery found nothing to resume.
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	a.Sessions.Put(r.Context(), "email", stringClaim(session.User, "email"))
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	session, err := a.Orchestrator.LoginWithPassword(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		var ne *portalauth.NormalizedError
		if errors.As(err, &ne) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": ne.Message, "category": ne.Category})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.Sessions.Put(r.Context(), "email", stringClaim(session.User, "email"))
	writeJSON(w, http.StatusOK, map[string]any{"user": session.User})
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	reg := &portalauth.Registration{
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
	}
	user, err := a.Orchestrator.Register(r.Context(), reg)
	if err != nil {
		var ne *portalauth.NormalizedError
		if errors.As(err, &ne) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": ne.Message})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.Orchestrator.SignOut(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := a.Sessions.Destroy(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session := portalauth.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  session.User,
		"state": a.Orchestrator.State(),
	})
}

func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"state": a.Orchestrator.State()}
	if q := r.URL.Query(); q.Get("error") != "" {
		out["error"] = q.Get("message")
		out["category"] = q.Get("error")
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"signedIn": false}
	if session := a.Middleware.CurrentSession(); session != nil {
		out["signedIn"] = true
		out["user"] = session.User
	}
	writeJSON(w, http.StatusOK, out)
}

// redirectWithError sends the browser back to the login page carrying the
// failure category and its user-facing message.
func (a *App) redirectWithError(w http.ResponseWriter, r *http.Request, ne *portalauth.NormalizedError) {
	v := url.Values{}
	v.Set("error", string(ne.Category))
	v.Set("message", ne.Message)
	http.Redirect(w, r, "/login?"+v.Encode(), http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func stringClaim(user portalauth.BackendUser, key string) string {
	if v, ok := user[key].(string); ok {
		return v
	}
	return ""
}
