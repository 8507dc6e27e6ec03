package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/fleetops/ops-dashboard/internal/auth"
	"github.com/fleetops/ops-dashboard/internal/domain"
	"github.com/fleetops/ops-dashboard/internal/events"
	"github.com/fleetops/ops-dashboard/internal/repository"
	apperrors "github.com/fleetops/ops-dashboard/pkg/util"
)

const uniqueViolationCode = "23505"

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokens     *auth.TokenManager
	hasher     *auth.Hasher
	throttle   *auth.LoginThrottle
	dispatcher events.Dispatcher
	logger     *zap.Logger
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            *auth.TokenManager
	Hasher            *auth.Hasher
	Throttle          *auth.LoginThrottle
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	ResetTTL          time.Duration
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokens:     deps.Tokens,
		hasher:     deps.Hasher,
		throttle:   deps.Throttle,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		resetTTL:   deps.ResetTTL,
	}
}

// Register creates a new dashboard account. The returned user carries its hash
// internally; handlers must respond with the redacted Identity view only.
func (s *AuthService) Register(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if _, valid := domain.ParseRole(string(role)); !valid {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, apperrors.NewConflict("username already exists", nil)
		}
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.Identity())
	return user, nil
}

// Login authenticates a user and issues a signed credential. Unknown username
// and wrong password return the same error and cost the same hash work.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	allowed, err := s.throttle.Allow(ctx, username)
	if err != nil {
		s.logger.Warn("login throttle unavailable", zap.Error(err))
	} else if !allowed {
		return nil, "", time.Time{}, apperrors.NewTooManyRequests("too many login attempts")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.hasher.CompareDummy(ctx)
			s.recordFailure(ctx, username)
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return nil, "", time.Time{}, err
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, username)
		return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
	}

	token, expiresAt, err := s.tokens.Generate(user.Identity())
	if err != nil {
		return nil, "", time.Time{}, err
	}

	if err := s.throttle.Reset(ctx, username); err != nil {
		s.logger.Warn("failed to reset login throttle", zap.Error(err))
	}
	s.touchLastLogin(user.ID, user.Username)
	s.publish(ctx, events.EventUserLoggedIn, user.Identity())

	return user, token, expiresAt, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(ctx, user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewInvalidCredentials()
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// RequestPasswordReset persists a single-use reset token for the username.
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("reset token invalid", nil)
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// ListUsers returns redacted identities for the admin view.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.Identity, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	identities := make([]domain.Identity, 0, len(users))
	for _, user := range users {
		identities = append(identities, user.Identity())
	}
	return identities, nil
}

// touchLastLogin updates the last-login stamp without blocking the login
// response. Failure is logged, never surfaced.
func (s *AuthService) touchLastLogin(userID, username string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.users.TouchLastLogin(ctx, userID); err != nil {
			s.logger.Warn("failed to update last_login",
				zap.String("username", username), zap.Error(err))
		}
	}()
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if err := s.throttle.RecordFailure(ctx, username); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
	s.publish(ctx, events.EventLoginFailed, domain.Identity{Username: username})
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, identity domain.Identity) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: identity.SubjectID,
		Username:  identity.Username,
		Role:      identity.Role,
		Timestamp: time.Now(),
	})
}
