package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/auth"
	"github.com/dmitrijs2005/taskboard/internal/codec"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/models"
	"github.com/dmitrijs2005/taskboard/internal/repositories/kv"
)

// IdentityListener is called after every identity change with the new
// identity, or nil once nobody is logged in.
type IdentityListener func(ctx context.Context, identity *models.Identity)

// SessionService tracks the single active session of the local store.
//
// Contract:
//   - Restore: resolve the identity from the persisted token and user.
//   - Login: authenticate against the users collection; false on bad credentials.
//   - Signup: register a new user and log in; false if the email is taken.
//   - Logout: forget the session; project and task data stay.
//   - Subscribe: observe identity changes.
//
// The error return of Login and Signup is reserved for storage faults.
type SessionService interface {
	Restore(ctx context.Context) error
	Login(ctx context.Context, email string, password []byte) (bool, error)
	Signup(ctx context.Context, name, email string, password []byte) (bool, error)
	Logout(ctx context.Context) error
	CurrentUser() *models.Identity
	Session() *models.Session
	Subscribe(fn IdentityListener) (cancel func())
}

type subscriber struct {
	id int
	fn IdentityListener
}

type sessionService struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
	newID  func(prefix string) string

	mu        sync.Mutex
	session   *models.Session
	listeners []subscriber
	nextSubID int
}

// NewSessionService returns a SessionService with no identity. Call Restore
// to pick up a session persisted by an earlier run.
func NewSessionService(store Store, logger logging.Logger) SessionService {
	return &sessionService{
		store:  store,
		logger: logger.With("module", "session"),
		now:    time.Now,
		newID:  models.NewID,
	}
}

// Restore inspects the persisted token and user. Missing keys mean nobody is
// logged in. A user blob that does not decode, or a token that was not minted
// for that user, is discarded along with its partner key.
func (s *sessionService) Restore(ctx context.Context) error {
	repo := s.store.KV()

	token, err := repo.Get(ctx, keyToken)
	if err != nil {
		return fmt.Errorf("failed to read session token: %w", err)
	}
	identity, found, err := getDoc[models.Identity](ctx, repo, keyUser, codec.KindIdentity)
	if err != nil && !isCodecErr(err) {
		return fmt.Errorf("failed to read session user: %w", err)
	}

	if token == nil || !found {
		s.setSession(ctx, nil)
		return nil
	}

	if err == nil {
		var userID string
		userID, err = auth.ParseToken(string(token))
		if err == nil && userID != identity.ID {
			err = fmt.Errorf("token issued for %q, user is %q", userID, identity.ID)
		}
	}
	if err != nil {
		s.logger.Warn(ctx, "discarding malformed session", "error", err)
		if err := s.clear(ctx); err != nil {
			return err
		}
		s.setSession(ctx, nil)
		return nil
	}

	s.setSession(ctx, &models.Session{Token: string(token), User: identity})
	return nil
}

// Login starts a session for the user registered under email if password
// matches the stored secret exactly. Nothing changes on failure.
func (s *sessionService) Login(ctx context.Context, email string, password []byte) (bool, error) {
	users, err := s.loadUsers(ctx, s.store.KV())
	if err != nil {
		return false, err
	}

	user, ok := findByEmail(users, email)
	if !ok || subtle.ConstantTimeCompare([]byte(user.PasswordSecret), password) != 1 {
		s.logger.Info(ctx, "login rejected", "email", email)
		return false, nil
	}

	sess, err := s.newSession(user)
	if err != nil {
		return false, err
	}
	err = s.store.Update(ctx, func(ctx context.Context, repo kv.Repository) error {
		return s.writeSession(ctx, repo, sess)
	})
	if err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}

	s.setSession(ctx, sess)
	s.logger.Info(ctx, "logged in", "user", user.ID)
	return true, nil
}

// Signup registers a new user and logs them in. The users list and the
// session are written in one transaction.
func (s *sessionService) Signup(ctx context.Context, name, email string, password []byte) (bool, error) {
	var sess *models.Session

	err := s.store.Update(ctx, func(ctx context.Context, repo kv.Repository) error {
		users, err := s.loadUsers(ctx, repo)
		if err != nil {
			return err
		}
		if _, taken := findByEmail(users, email); taken {
			return nil
		}

		user := models.User{
			ID:             s.newID("user"),
			Name:           name,
			Email:          email,
			PasswordSecret: string(password),
		}
		next, err := s.newSession(user)
		if err != nil {
			return err
		}

		if err := putDoc(ctx, repo, keyUsers, append(users, user)); err != nil {
			return err
		}
		if err := s.writeSession(ctx, repo, next); err != nil {
			return err
		}
		sess = next
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to sign up: %w", err)
	}
	if sess == nil {
		s.logger.Info(ctx, "signup rejected, email taken", "email", email)
		return false, nil
	}

	s.setSession(ctx, sess)
	s.logger.Info(ctx, "signed up", "user", sess.User.ID)
	return true, nil
}

// Logout deletes the persisted session and clears the identity.
func (s *sessionService) Logout(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return err
	}
	s.setSession(ctx, nil)
	return nil
}

func (s *sessionService) CurrentUser() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	u := s.session.User
	return &u
}

func (s *sessionService) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	sess := *s.session
	return &sess
}

// Subscribe registers fn for identity changes. It is not called with the
// current identity; read CurrentUser for that.
func (s *sessionService) Subscribe(fn IdentityListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// setSession publishes sess. Listeners run outside the lock so they may call
// back into the service.
func (s *sessionService) setSession(ctx context.Context, sess *models.Session) {
	s.mu.Lock()
	s.session = sess
	listeners := make([]subscriber, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	var identity *models.Identity
	if sess != nil {
		u := sess.User
		identity = &u
	}
	for _, l := range listeners {
		l.fn(ctx, identity)
	}
}

func (s *sessionService) newSession(user models.User) (*models.Session, error) {
	token, err := auth.MintToken(user.ID, s.now())
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: token, User: user.Identity()}, nil
}

func (s *sessionService) writeSession(ctx context.Context, repo kv.Repository, sess *models.Session) error {
	if err := repo.Set(ctx, keyToken, []byte(sess.Token)); err != nil {
		return err
	}
	return putDoc(ctx, repo, keyUser, sess.User)
}

func (s *sessionService) clear(ctx context.Context) error {
	err := s.store.Update(ctx, func(ctx context.Context, repo kv.Repository) error {
		if err := repo.Delete(ctx, keyToken); err != nil {
			return err
		}
		return repo.Delete(ctx, keyUser)
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// loadUsers returns the users collection. A malformed collection reads as
// empty.
func (s *sessionService) loadUsers(ctx context.Context, repo kv.Repository) ([]models.User, error) {
	users, _, err := getDoc[[]models.User](ctx, repo, keyUsers, codec.KindUsers)
	if err != nil {
		if isCodecErr(err) {
			s.logger.Warn(ctx, "ignoring malformed users collection", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

func findByEmail(users []models.User, email string) (models.User, bool) {
	for _, u := range users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}
