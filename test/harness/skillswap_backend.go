// Package harness provides an in-process skill-swap backend for
// integration tests: the auth endpoints, the identity endpoints and the
// per-user SSE event stream, backed by in-memory state.
package harness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/skillswap/swapclient/pkg/identity"
	"github.com/skillswap/swapclient/pkg/wire"
)

type account struct {
	user     identity.User
	password string
}

// Backend is a fake skill-swap server. All state is in memory and
// protected by a single mutex; streams are per-user sets of channels.
type Backend struct {
	server       *httptest.Server
	secret       []byte
	cookieName   string
	tokenTTL     time.Duration
	pingInterval time.Duration

	mu          sync.Mutex
	nextUserID  int
	nextSkillID int
	accounts    map[string]*account
	byID        map[int]*account
	skills      map[int]identity.Skill
	streams     map[int]map[chan *wire.Message]struct{}
}

// BackendOption represents an option for the test backend
type BackendOption func(*Backend)

// WithSecret sets the JWT signing secret
func WithSecret(secret []byte) BackendOption {
	return func(b *Backend) {
		b.secret = secret
	}
}

// WithCookieName sets the name of the access token cookie
func WithCookieName(name string) BackendOption {
	return func(b *Backend) {
		b.cookieName = name
	}
}

// WithTokenTTL sets the lifetime of issued tokens
func WithTokenTTL(ttl time.Duration) BackendOption {
	return func(b *Backend) {
		b.tokenTTL = ttl
	}
}

// WithPingInterval sets how often event streams emit keep-alive pings
func WithPingInterval(interval time.Duration) BackendOption {
	return func(b *Backend) {
		b.pingInterval = interval
	}
}

// NewBackend creates and starts a fake skill-swap backend
func NewBackend(options ...BackendOption) *Backend {
	b := &Backend{
		secret:       []byte("harness-secret"),
		cookieName:   "access_token",
		tokenTTL:     time.Hour,
		pingInterval: 15 * time.Second,
		nextUserID:   1,
		nextSkillID:  1,
		accounts:     make(map[string]*account),
		byID:         make(map[int]*account),
		skills:       make(map[int]identity.Skill),
		streams:      make(map[int]map[chan *wire.Message]struct{}),
	}

	for _, opt := range options {
		opt(b)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "User-Agent"},
		AllowCredentials: true,
	}))

	r.Post("/auth/register", b.handleRegister)
	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/logout", b.handleLogout)
	r.Get("/users/me", b.handleCurrentUser)
	r.Put("/users/me", b.handleUpdateUser)
	r.Get("/events/{id}", b.handleEvents)

	b.server = httptest.NewServer(r)
	return b
}

// URL returns the backend's base URL
func (b *Backend) URL() string {
	return b.server.URL
}

// Close shuts the backend down and drops every open event stream
func (b *Backend) Close() {
	b.server.Close()
}

// AddSkill seeds a skill into the catalog
func (b *Backend) AddSkill(name string) identity.Skill {
	b.mu.Lock()
	defer b.mu.Unlock()

	skill := identity.Skill{ID: b.nextSkillID, Name: name}
	b.nextSkillID++
	b.skills[skill.ID] = skill
	return skill
}

// AddUser seeds an account without going through the register endpoint
func (b *Backend) AddUser(name, email, password string) *identity.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(name, email, password).user.Clone()
}

// BanUser marks the account banned; subsequent logins are rejected
func (b *Backend) BanUser(email string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if acct, ok := b.accounts[email]; ok {
		acct.user.IsBanned = true
	}
}

// Notify pushes a message to every open event stream of the given user
// and returns how many streams it reached.
func (b *Backend) Notify(userID int, msg *wire.Message) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	reached := 0
	for ch := range b.streams[userID] {
		select {
		case ch <- msg:
			reached++
		default:
			slog.Warn("Event stream buffer full, dropping message", "user_id", userID)
		}
	}
	return reached
}

// OpenStreams reports how many event streams the user currently holds
func (b *Backend) OpenStreams(userID int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams[userID])
}

func (b *Backend) addUserLocked(name, email, password string) *account {
	acct := &account{
		user: identity.User{
			ID:            b.nextUserID,
			Name:          name,
			Email:         email,
			IsPublic:      true,
			Availability:  "flexible",
			CreatedAt:     time.Now().UTC(),
			OfferedSkills: []identity.Skill{},
			WantedSkills:  []identity.Skill{},
		},
		password: password,
	}
	b.nextUserID++
	b.accounts[email] = acct
	b.byID[acct.user.ID] = acct
	return acct
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[req.Email]; exists {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	acct := b.addUserLocked(req.Name, req.Email, req.Password)
	userID := acct.user.ID
	b.mu.Unlock()

	if err := b.setTokenCookie(w, userID); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Registration successful",
		"user_id": userID,
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[req.Email]
	if !ok || acct.password != req.Password {
		b.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if acct.user.IsBanned {
		b.mu.Unlock()
		writeDetail(w, http.StatusForbidden, "Account is banned")
		return
	}
	userID := acct.user.ID
	b.mu.Unlock()

	if err := b.setTokenCookie(w, userID); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user_id": userID,
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged out successfully",
	})
}

func (b *Backend) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	user := acct.user.Clone()
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	var update identity.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if update.Name != nil {
		acct.user.Name = *update.Name
	}
	if update.Bio != nil {
		acct.user.Bio = *update.Bio
	}
	if update.IsPublic != nil {
		acct.user.IsPublic = *update.IsPublic
	}
	if update.Availability != nil {
		acct.user.Availability = *update.Availability
	}
	if update.OfferedSkillIDs != nil {
		skills, err := b.resolveSkillsLocked(update.OfferedSkillIDs)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		acct.user.OfferedSkills = skills
	}
	if update.WantedSkillIDs != nil {
		skills, err := b.resolveSkillsLocked(update.WantedSkillIDs)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		acct.user.WantedSkills = skills
	}

	writeJSON(w, http.StatusOK, acct.user.Clone())
}

// handleEvents serves the per-user SSE stream. The handshake is a bare
// "ready" event; afterwards every notification goes out as one event
// whose data field is the JSON-encoded message.
func (b *Backend) handleEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	tokenUserID, err := b.verifyToken(r.URL.Query().Get("token"))
	if err != nil || tokenUserID != userID {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	stream := make(chan *wire.Message, 16)
	b.mu.Lock()
	if b.streams[userID] == nil {
		b.streams[userID] = make(map[chan *wire.Message]struct{})
	}
	b.streams[userID][stream] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.streams[userID], stream)
		b.mu.Unlock()
	}()

	ticker := time.NewTicker(b.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := writeEvent(w, &wire.Message{Type: wire.MessageTypePing}); err != nil {
				return
			}
			flusher.Flush()
		case msg := <-stream:
			if err := writeEvent(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// authenticate resolves the account behind the token cookie, writing the
// error response itself when the request carries no valid token.
func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (*account, bool) {
	cookie, err := r.Cookie(b.cookieName)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}

	userID, err := b.verifyToken(cookie.Value)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return nil, false
	}

	b.mu.Lock()
	acct, ok := b.byID[userID]
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return nil, false
	}
	return acct, true
}

func (b *Backend) setTokenCookie(w http.ResponseWriter, userID int) error {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(b.tokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (b *Backend) verifyToken(tokenStr string) (int, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("token is not valid")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return userID, nil
}

func (b *Backend) resolveSkillsLocked(ids []int) ([]identity.Skill, error) {
	skills := make([]identity.Skill, 0, len(ids))
	for _, id := range ids {
		skill, ok := b.skills[id]
		if !ok {
			return nil, fmt.Errorf("Unknown skill id %d", id)
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

func writeEvent(w http.ResponseWriter, msg *wire.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDetail emits the backend's error shape, a single detail string.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
