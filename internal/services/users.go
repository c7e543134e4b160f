// Package services contains the blockpass business flows. UserService
// handles registration, login and session resolution; VaultService encrypts
// and stores vault items under keys derived from the caller's master password.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blockpass/internal/auth"
	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/config"
	"github.com/dmitrijs2005/blockpass/internal/cryptox"
	"github.com/dmitrijs2005/blockpass/internal/logging"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/dmitrijs2005/blockpass/internal/repositories/credentials"
)

// UserService provides account operations:
//   - Register: create users with a bcrypt login hash and a fresh KDF salt
//   - Login: verify credentials and issue a session token
//   - Authenticate: resolve a session token to a stored user
//   - DeleteAccount: remove a user and all of its items
type UserService struct {
	repo       credentials.Repository
	hasher     *cryptox.PasswordHasher
	tokens     *auth.TokenIssuer
	kdfParams  models.KDFParams
	saltLength int
	log        logging.Logger
}

// NewUserService builds a UserService from the process configuration.
func NewUserService(repo credentials.Repository, cfg *config.Config, log logging.Logger) (*UserService, error) {
	hasher, err := cryptox.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.SigningAlgorithm, cfg.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	params := cfg.KDFParams()
	if err := cryptox.ValidateKDFParams(params); err != nil {
		return nil, err
	}
	return &UserService{
		repo:       repo,
		hasher:     hasher,
		tokens:     tokens,
		kdfParams:  params,
		saltLength: cfg.KDFSaltLength,
		log:        log,
	}, nil
}

// Register creates a new user. A taken username yields common.ErrorConflict.
// The configured KDF parameters are stamped on the user and stay fixed.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username is empty", common.ErrorInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	salt, err := cryptox.GenerateSalt(s.saltLength)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.CreateUser(ctx, username, hash, salt, s.kdfParams)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the password and returns a signed session token. An unknown
// username and a wrong password both yield common.ErrorUnauthenticated after
// the same bcrypt work.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyNothing(password)
			s.log.Warn(ctx, "login failed")
			return "", common.ErrorUnauthenticated
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		s.log.Warn(ctx, "login failed")
		return "", common.ErrorUnauthenticated
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		s.log.Error(ctx, "token not issued", "user_id", u.ID, "error", err)
		return "", common.ErrorInternal
	}

	s.log.Info(ctx, "user logged in", "user_id", u.ID)
	return token, nil
}

// Authenticate resolves a session token to its user. Invalid and expired
// tokens, and tokens of deleted users, all yield common.ErrorUnauthenticated.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := s.tokens.Validate(token)
	if err != nil {
		return nil, common.ErrorUnauthenticated
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return u, nil
}

// DeleteAccount removes user and its items after re-checking the login
// password.
func (s *UserService) DeleteAccount(ctx context.Context, user *models.User, password string) error {
	if user == nil {
		return common.ErrorUnauthenticated
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return common.ErrorUnauthenticated
	}
	if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	s.log.Info(ctx, "user deleted", "user_id", user.ID)
	return nil
}
