package authstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Keys names the storage entries used by Store.
type Keys struct {
	Token      string
	User       string
	GuestToken string
	GuestID    string
}

// DefaultKeys are the entry names used unless WithKeys overrides them.
var DefaultKeys = Keys{
	Token:      "jwt_token",
	User:       "user",
	GuestToken: "guest_token",
	GuestID:    "guest_id",
}

// GuestIdentity is the anonymous identity provisioned before login.
type GuestIdentity struct {
	Token string
	ID    string
}

type credential struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Store persists the session credential, the user profile and the guest
// identity on top of a kvstore.Store. Reads never fail: anything missing,
// corrupt or expired is reported as absent.
type Store struct {
	kv   kvstore.Store
	keys Keys
	now  func() time.Time
	log  *slog.Logger

	// guards the check-then-write of StoreGuest
	guestMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeys overrides storage entry names. Empty fields keep the default.
func WithKeys(k Keys) Option {
	return func(s *Store) {
		if k.Token != "" {
			s.keys.Token = k.Token
		}
		if k.User != "" {
			s.keys.User = k.User
		}
		if k.GuestToken != "" {
			s.keys.GuestToken = k.GuestToken
		}
		if k.GuestID != "" {
			s.keys.GuestID = k.GuestID
		}
	}
}

// New creates a Store over kv.
func New(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:   kv,
		keys: DefaultKeys,
		now:  time.Now,
		log:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreToken persists token. A positive expiresIn records an absolute
// expiry; zero falls back to the token's own "exp" claim when it is a JWT.
// An empty token clears the credential.
func (s *Store) StoreToken(ctx context.Context, token string, expiresIn time.Duration) {
	if token == "" {
		s.delete(ctx, s.keys.Token)
		return
	}

	cred := credential{Token: token}
	switch {
	case expiresIn > 0:
		at := s.now().Add(expiresIn)
		cred.ExpiresAt = &at
	case expiresIn == 0:
		if at, ok := tokenExpiry(token); ok {
			cred.ExpiresAt = &at
		}
	}
	s.setJSON(ctx, s.keys.Token, cred)
}

// Token returns the stored credential, or "" when absent, unparseable or
// expired. Expired and unparseable entries are removed on read.
func (s *Store) Token(ctx context.Context) string {
	raw, ok := s.get(ctx, s.keys.Token)
	if !ok {
		return ""
	}

	var cred credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil || cred.Token == "" {
		s.log.WarnContext(ctx, "dropping unreadable credential",
			logger.StorageKey(s.keys.Token), logger.Error(errors.Join(ErrCorruptValue, err)))
		s.delete(ctx, s.keys.Token)
		return ""
	}

	if cred.ExpiresAt != nil && !s.now().Before(*cred.ExpiresAt) {
		s.log.DebugContext(ctx, "credential expired",
			logger.StorageKey(s.keys.Token), logger.Error(ErrExpired))
		s.delete(ctx, s.keys.Token)
		return ""
	}
	return cred.Token
}

// StoreUser persists the profile. A nil user clears it.
func (s *Store) StoreUser(ctx context.Context, u *api.User) {
	if u == nil {
		s.delete(ctx, s.keys.User)
		return
	}
	s.setJSON(ctx, s.keys.User, u)
}

// User returns the stored profile or nil.
func (s *Store) User(ctx context.Context) *api.User {
	raw, ok := s.get(ctx, s.keys.User)
	if !ok {
		return nil
	}
	var u api.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.WarnContext(ctx, "ignoring unreadable profile",
			logger.StorageKey(s.keys.User), logger.Error(errors.Join(ErrCorruptValue, err)))
		return nil
	}
	return &u
}

// ClearAuth removes the credential and the profile together.
func (s *Store) ClearAuth(ctx context.Context) {
	s.delete(ctx, s.keys.Token, s.keys.User)
}

// IsAuthenticated reports whether a valid credential is stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// Guest returns the stored guest identity or nil. A partial identity
// (token without id or the reverse) counts as absent.
func (s *Store) Guest(ctx context.Context) *GuestIdentity {
	token, ok := s.get(ctx, s.keys.GuestToken)
	if !ok {
		return nil
	}
	id, ok := s.get(ctx, s.keys.GuestID)
	if !ok {
		return nil
	}
	return &GuestIdentity{Token: token, ID: id}
}

// StoreGuest persists g unless an identity already exists. It reports
// whether g was written. Both token and id are required.
func (s *Store) StoreGuest(ctx context.Context, g GuestIdentity) bool {
	if g.Token == "" || g.ID == "" {
		return false
	}

	s.guestMu.Lock()
	defer s.guestMu.Unlock()

	if s.Guest(ctx) != nil {
		return false
	}
	// Guest needs both keys, so a half-written identity reads as absent.
	if !s.set(ctx, s.keys.GuestID, g.ID) {
		return false
	}
	if !s.set(ctx, s.keys.GuestToken, g.Token) {
		s.delete(ctx, s.keys.GuestID)
		return false
	}
	return true
}

// ClearGuest removes the guest identity.
func (s *Store) ClearGuest(ctx context.Context) {
	s.delete(ctx, s.keys.GuestToken, s.keys.GuestID)
}

// ActiveToken returns the user credential when present, otherwise the guest
// token. It implements api.TokenSource.
func (s *Store) ActiveToken(ctx context.Context) string {
	if t := s.Token(ctx); t != "" {
		return t
	}
	if g := s.Guest(ctx); g != nil {
		return g.Token
	}
	return ""
}

var _ api.TokenSource = (*Store)(nil)

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.log.WarnContext(ctx, "storage read failed", logger.StorageKey(key), logger.Error(err))
		}
		return "", false
	}
	if absent(v) {
		return "", false
	}
	return v, true
}

func (s *Store) set(ctx context.Context, key, value string) bool {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.log.WarnContext(ctx, "storage write failed", logger.StorageKey(key), logger.Error(err))
		return false
	}
	return true
}

func (s *Store) setJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.WarnContext(ctx, "storage encode failed", logger.StorageKey(key), logger.Error(err))
		return
	}
	s.set(ctx, key, string(data))
}

func (s *Store) delete(ctx context.Context, keys ...string) {
	if err := s.kv.Delete(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "storage delete failed",
			slog.String("keys", strings.Join(keys, ",")), logger.Error(err))
	}
}

// absent reports values that stand for "nothing stored".
func absent(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "undefined", "null", `"undefined"`, `"null"`:
		return true
	}
	return false
}

// tokenExpiry reads the "exp" claim without verifying the signature.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// String hides the token in logs.
func (g GuestIdentity) String() string {
	return fmt.Sprintf("guest(%s)", g.ID)
}
