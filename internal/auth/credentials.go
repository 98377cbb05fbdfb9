package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/2beens/clientportal/pkg"
)

type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*Identity, error)
}

// Account is a row of the fixed credential table. Password is hashed on
// table construction when PasswordHash is not provided.
type Account struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	Password     string
	PasswordHash string
}

type credentialEntry struct {
	identity     Identity
	passwordHash string
}

// CredentialTable is the static allow-list of portal accounts.
type CredentialTable struct {
	entries map[string]credentialEntry
}

var _ CredentialVerifier = (*CredentialTable)(nil)

func NewCredentialTable(accounts []Account, hashCost int) (*CredentialTable, error) {
	entries := make(map[string]credentialEntry, len(accounts))
	for _, acc := range accounts {
		email := normalizeEmail(acc.Email)
		if email == "" {
			return nil, fmt.Errorf("account [%s]: empty email", acc.ID)
		}
		if _, exists := entries[email]; exists {
			return nil, fmt.Errorf("account [%s]: duplicate email", email)
		}
		if !acc.Role.Valid() {
			return nil, fmt.Errorf("account [%s]: %w", email, ErrUnknownRole)
		}

		hash := acc.PasswordHash
		if hash == "" {
			if acc.Password == "" {
				return nil, fmt.Errorf("account [%s]: no password", email)
			}
			var err error
			if hash, err = pkg.HashPasswordWithCost(acc.Password, hashCost); err != nil {
				return nil, fmt.Errorf("account [%s]: hash password: %w", email, err)
			}
		}

		entries[email] = credentialEntry{
			identity: Identity{
				ID:    acc.ID,
				Email: email,
				Name:  acc.Name,
				Role:  acc.Role,
			},
			passwordHash: hash,
		}
	}

	return &CredentialTable{entries: entries}, nil
}

func (t *CredentialTable) Verify(_ context.Context, email, password string) (*Identity, error) {
	entry, ok := t.entries[normalizeEmail(email)]
	if !ok {
		return nil, ErrUnknownEmail
	}
	if !pkg.CheckPasswordHash(password, entry.passwordHash) {
		return nil, ErrWrongPassword
	}
	identity := entry.identity
	return &identity, nil
}

func (t *CredentialTable) Len() int {
	return len(t.entries)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
