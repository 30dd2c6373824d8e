package auth

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/poslite-backend/pkg/auth"
	"github.com/angelmondragon/poslite-backend/pkg/auth/session"
	"github.com/angelmondragon/poslite-backend/pkg/config"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	redisclient "github.com/angelmondragon/poslite-backend/pkg/redis"
	"github.com/angelmondragon/poslite-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{Secret: "secret", Issuer: "poslite", ExpirationMinutes: 30}
	testPwd = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, testPwd)
	require.NoError(t, err)
	return hash
}

func newRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	client, err := redisclient.NewInProcess()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestService(t *testing.T, revoker *session.Revoker, creds ...Credential) Service {
	t.Helper()
	store, err := NewMapStore(creds...)
	require.NoError(t, err)
	params := ServiceParams{
		Credentials:    store,
		JWTConfig:      testJWT,
		PasswordConfig: testPwd,
		Now:            func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) },
	}
	if revoker != nil {
		params.Revoker = revoker
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesOperatorToken(t *testing.T) {
	svc := newTestService(t, nil, Credential{Username: "Alice", PasswordHash: mustHash(t, "open-sesame"), Role: enums.OperatorRoleAdmin})

	resp, err := svc.Login(context.Background(), LoginRequest{Username: " alice ", Password: "open-sesame"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, enums.OperatorRoleAdmin, resp.Role)
	assert.Equal(t, time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC), resp.ExpiresAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.Error(t, err, "token minted at a fixed past instant should be expired")
	assert.Nil(t, claims)
}

func TestLoginTokenParsesWithCurrentClock(t *testing.T) {
	store, err := NewMapStore(Credential{Username: "bob", PasswordHash: mustHash(t, "pw"), Role: enums.OperatorRoleCashier})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Credentials: store, JWTConfig: testJWT, PasswordConfig: testPwd})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, enums.OperatorRoleCashier, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestLoginRejectsWithSameError(t *testing.T) {
	svc := newTestService(t, nil, Credential{Username: "carol", PasswordHash: mustHash(t, "right"), Role: enums.OperatorRoleCashier})
	ctx := context.Background()

	_, wrongPassword := svc.Login(ctx, LoginRequest{Username: "carol", Password: "wrong"})
	_, unknownUser := svc.Login(ctx, LoginRequest{Username: "mallory", Password: "right"})
	_, blank := svc.Login(ctx, LoginRequest{Username: "", Password: ""})

	for _, err := range []error{wrongPassword, unknownUser, blank} {
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, invalidCredentialsMessage, typed.Message())
	}
}

func TestLoginWarnsOnWeakStoredHash(t *testing.T) {
	store, err := NewMapStore(Credential{Username: "hank", PasswordHash: mustHash(t, "pw"), Role: enums.OperatorRoleCashier})
	require.NoError(t, err)

	stronger := testPwd
	stronger.ArgonTime = 2
	var logs bytes.Buffer
	svc, err := NewService(ServiceParams{
		Credentials:    store,
		JWTConfig:      testJWT,
		PasswordConfig: stronger,
		Logger:         logger.New(logger.Options{ServiceName: "test", Output: &logs}),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Username: "hank", Password: "pw"})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "auth.credential.weak_hash")
	assert.Contains(t, logs.String(), `"operator":"hank"`)
}

type brokenStore struct{}

func (brokenStore) Lookup(context.Context, string) (*Credential, error) {
	return nil, errors.New("file vanished")
}

func TestLoginSurfacesStoreFailures(t *testing.T) {
	svc, err := NewService(ServiceParams{Credentials: brokenStore{}, JWTConfig: testJWT, PasswordConfig: testPwd})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Username: "dave", Password: "pw"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLogoutRevokesAccessID(t *testing.T) {
	revoker, err := session.NewRevoker(newRedis(t))
	require.NoError(t, err)
	svc := newTestService(t, revoker, Credential{Username: "erin", PasswordHash: mustHash(t, "pw"), Role: enums.OperatorRoleAdmin})

	ctx := context.Background()
	require.NoError(t, svc.Logout(ctx, "jti-123", time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)))

	revoked, err := revoker.IsRevoked(ctx, "jti-123")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{JWTConfig: testJWT})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Credentials: MapStore{}})
	assert.Error(t, err)
}

func TestParseCredentials(t *testing.T) {
	hash := mustHash(t, "pw")
	doc := []byte("operators:\n" +
		"  - username: Frank\n" +
		"    password_hash: \"" + hash + "\"\n" +
		"    role: cashier\n")

	store, err := ParseCredentials(doc)
	require.NoError(t, err)
	cred, err := store.Lookup(context.Background(), "FRANK")
	require.NoError(t, err)
	assert.Equal(t, "frank", cred.Username)
	assert.Equal(t, enums.OperatorRoleCashier, cred.Role)

	_, err = store.Lookup(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestParseCredentialsRejectsBadDocuments(t *testing.T) {
	hash := mustHash(t, "pw")
	cases := map[string]string{
		"empty":     "operators: []\n",
		"bad role":  "operators:\n  - username: a\n    password_hash: x\n    role: owner\n",
		"no hash":   "operators:\n  - username: a\n    role: admin\n",
		"duplicate": "operators:\n  - {username: a, password_hash: '" + hash + "', role: admin}\n  - {username: A, password_hash: '" + hash + "', role: cashier}\n",
		"bad hash":  "operators:\n  - {username: a, password_hash: plaintext, role: admin}\n",
		"not yaml":  "operators: [",
	}
	for name, doc := range cases {
		_, err := ParseCredentials([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	doc := "operators:\n  - {username: gina, password_hash: '" + mustHash(t, "pw") + "', role: admin}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	store, err := LoadCredentialsFile(path)
	require.NoError(t, err)
	assert.Len(t, store, 1)

	_, err = LoadCredentialsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
