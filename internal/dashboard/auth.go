package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	discordAPIBase = "https://discord.com/api/v10"
	stateTTL       = 10 * time.Minute
	// maxPendingStates caps unfinished logins kept in memory.
	maxPendingStates = 1024
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// ErrUnauthorized is returned when Discord rejects the access token.
var ErrUnauthorized = errors.New("unauthorized")

// Auth implements Discord OAuth login for the dashboard.
type Auth struct {
	oauth    *oauth2.Config
	sessions *SessionStore
	apiBase  string
	secure   bool
	ttl      time.Duration

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// NewAuth creates a new Auth using the Discord OAuth endpoints.
func NewAuth(cfg Config, sessions *SessionStore) *Auth {
	return &Auth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     discordEndpoint,
			RedirectURL:  strings.TrimSuffix(cfg.BaseURL, "/") + "/auth/callback",
			Scopes:       []string{"identify", "guilds"},
		},
		sessions: sessions,
		apiBase:  discordAPIBase,
		secure:   cfg.CookieSecure,
		ttl:      cfg.SessionTTL,
		states:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Login redirects the browser to Discord's consent screen.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	a.mu.Lock()
	now := a.now()
	a.pruneStatesLocked(now)
	if len(a.states) >= maxPendingStates {
		a.evictOldestStateLocked()
	}
	a.states[state] = now.Add(stateTTL)
	a.mu.Unlock()

	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback exchanges the authorization code and opens a session.
func (a *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !a.consumeState(query.Get("state")) {
		WriteError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	code := query.Get("code")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	token, err := a.oauth.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("failed to exchange OAuth code", "error", err)
		WriteError(w, http.StatusBadGateway, "Failed to authenticate with Discord")
		return
	}

	user, err := a.fetchUser(r.Context(), token)
	if err != nil {
		slog.Warn("failed to fetch Discord identity", "error", err)
		WriteError(w, http.StatusBadGateway, "Failed to fetch Discord profile")
		return
	}

	id := a.sessions.Create(user)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.ttl.Seconds()),
	})

	slog.Info("dashboard login", "user_id", user.ID, "username", user.Username)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout ends the current session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		a.sessions.Delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		MaxAge:   -1,
	})
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me returns the logged-in user.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	WriteJSON(w, http.StatusOK, user)
}

// RequireUser rejects requests without a live session.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		user, ok := a.sessions.Get(cookie.Value)
		if !ok {
			WriteError(w, http.StatusUnauthorized, "Session expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *Auth) consumeState(state string) bool {
	if state == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.pruneStatesLocked(a.now())

	if _, ok := a.states[state]; !ok {
		return false
	}
	delete(a.states, state)
	return true
}

func (a *Auth) pruneStatesLocked(now time.Time) {
	for s, exp := range a.states {
		if now.After(exp) {
			delete(a.states, s)
		}
	}
}

func (a *Auth) evictOldestStateLocked() {
	var (
		oldest string
		first  time.Time
	)
	for s, exp := range a.states {
		if oldest == "" || exp.Before(first) {
			oldest, first = s, exp
		}
	}
	delete(a.states, oldest)
}

func (a *Auth) fetchUser(ctx context.Context, token *oauth2.Token) (*User, error) {
	client := a.oauth.Client(ctx, token)

	var profile struct {
		ID         snowflake.ID `json:"id"`
		Username   string       `json:"username"`
		GlobalName string       `json:"global_name"`
		Avatar     string       `json:"avatar"`
	}
	if err := getJSON(ctx, client, a.apiBase+"/users/@me", &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	var guilds []Guild
	if err := getJSON(ctx, client, a.apiBase+"/users/@me/guilds", &guilds); err != nil {
		return nil, fmt.Errorf("failed to fetch guilds: %w", err)
	}

	return &User{
		ID:         profile.ID,
		Username:   profile.Username,
		GlobalName: profile.GlobalName,
		Avatar:     profile.Avatar,
		Guilds:     guilds,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
