package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/poslite-backend/pkg/enums"
	"github.com/angelmondragon/poslite-backend/pkg/security"
)

// ErrUnknownOperator is returned by a CredentialStore for usernames it does not hold.
var ErrUnknownOperator = errors.New("unknown operator")

// Credential is one operator allowed to sign in at the till.
type Credential struct {
	Username     string             `yaml:"username"`
	PasswordHash string             `yaml:"password_hash"`
	Role         enums.OperatorRole `yaml:"role"`
}

// CredentialStore resolves operators by username.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (*Credential, error)
}

// MapStore is an in-memory CredentialStore keyed by normalized username.
type MapStore map[string]Credential

// NewMapStore validates creds and indexes them by username.
func NewMapStore(creds ...Credential) (MapStore, error) {
	store := make(MapStore, len(creds))
	for i, cred := range creds {
		username := normalizeUsername(cred.Username)
		if username == "" {
			return nil, fmt.Errorf("credential %d: username is required", i)
		}
		if strings.TrimSpace(cred.PasswordHash) == "" {
			return nil, fmt.Errorf("credential %q: password_hash is required", username)
		}
		if err := security.CheckHash(cred.PasswordHash); err != nil {
			return nil, fmt.Errorf("credential %q: %w", username, err)
		}
		if !cred.Role.IsValid() {
			return nil, fmt.Errorf("credential %q: invalid role %q", username, cred.Role)
		}
		if _, dup := store[username]; dup {
			return nil, fmt.Errorf("credential %q: duplicate username", username)
		}
		cred.Username = username
		store[username] = cred
	}
	return store, nil
}

// Lookup implements CredentialStore.
func (m MapStore) Lookup(_ context.Context, username string) (*Credential, error) {
	cred, ok := m[normalizeUsername(username)]
	if !ok {
		return nil, ErrUnknownOperator
	}
	return &cred, nil
}

type credentialsFile struct {
	Operators []Credential `yaml:"operators"`
}

// LoadCredentialsFile reads a YAML file of operators:
//
//	operators:
//	  - username: alice
//	    password_hash: $argon2id$v=19$...
//	    role: admin
func LoadCredentialsFile(path string) (MapStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return ParseCredentials(raw)
}

// ParseCredentials decodes the YAML credentials document.
func ParseCredentials(raw []byte) (MapStore, error) {
	var doc credentialsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if len(doc.Operators) == 0 {
		return nil, fmt.Errorf("credentials file lists no operators")
	}
	return NewMapStore(doc.Operators...)
}

func normalizeUsername(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
