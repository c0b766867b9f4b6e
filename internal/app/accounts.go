package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/auth"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/logger"
)

// Register creates a user account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, fmt.Errorf("%w: malformed email", model.ErrInvalid)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}

	s.logger.Info(ctx, "user registered", logger.String("email", email))
	return user, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (auth.Session, model.User, error) {
	user, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Do not reveal whether the account exists.
		return auth.Session{}, model.User{}, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return auth.Session{}, model.User{}, err
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return auth.Session{}, model.User{}, err
	}
	return session, user, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) {
	s.sessions.Revoke(ctx, token)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (model.User, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return model.User{}, err
	}
	return s.store.UserByID(ctx, userID)
}

// SaveProfile stores the participant profile for a user.
func (s *Service) SaveProfile(ctx context.Context, participant *model.Participant) error {
	if err := participant.Validate(); err != nil {
		return err
	}
	return s.store.SaveParticipant(ctx, participant)
}

// Profile returns the participant profile of a user.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (model.Participant, error) {
	return s.store.ParticipantByUserID(ctx, userID)
}
