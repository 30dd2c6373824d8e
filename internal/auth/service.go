package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgAuth "github.com/angelmondragon/poslite-backend/pkg/auth"
	"github.com/angelmondragon/poslite-backend/pkg/auth/session"
	"github.com/angelmondragon/poslite-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/angelmondragon/poslite-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string, expiresAt time.Time) error
}

type revoker interface {
	Revoke(ctx context.Context, accessID string, expiresAt, now time.Time) error
}

type service struct {
	credentials CredentialStore
	revoker     revoker
	jwtCfg      config.JWTConfig
	decoyHash   string
	pwdCfg      config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Credentials    CredentialStore
	Revoker        revoker
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	decoy, err := security.DecoyHash(params.PasswordConfig)
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		credentials: params.Credentials,
		revoker:     params.Revoker,
		jwtCfg:      params.JWTConfig,
		decoyHash:   decoy,
		pwdCfg:      params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	cred, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if s.logg != nil && pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			s.logg.Warn(s.logg.WithField(ctx, "username", normalizeUsername(req.Username)), "auth.login.rejected")
		}
		return nil, err
	}

	now := s.now().UTC()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		Username: cred.Username,
		Role:     cred.Role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	if s.logg != nil {
		opCtx := s.logg.WithOperator(ctx, cred.Username, cred.Role.String())
		s.logg.Info(opCtx, "auth.login.succeeded")
		if stale, _ := security.NeedsRehash(cred.PasswordHash, s.pwdCfg); stale {
			s.logg.Warn(opCtx, "auth.credential.weak_hash")
		}
	}

	return &LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   now.Add(s.jwtCfg.TTL()),
		Username:    cred.Username,
		Role:        cred.Role,
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string, expiresAt time.Time) error {
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, accessID, expiresAt, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke token")
	}
	return nil
}

// authenticate verifies against a decoy hash for unknown usernames so both
// failure paths cost one argon2 derivation and return the same error.
func (s *service) authenticate(ctx context.Context, username, password string) (*Credential, error) {
	if normalizeUsername(username) == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	cred, err := s.credentials.Lookup(ctx, username)
	if err != nil && !errors.Is(err, ErrUnknownOperator) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup operator")
	}

	hash := s.decoyHash
	if cred != nil {
		hash = cred.PasswordHash
	}
	valid, err := security.VerifyPassword(password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if cred == nil || !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return cred, nil
}
