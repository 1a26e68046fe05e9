// Package user implements the user directory: the authoritative store of
// user identities plus its /user HTTP surface. The coordinator only ever
// asks one question of it — does this user id exist.
package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
}

var (
	ErrNotFound    = errors.New("user not found")
	ErrDuplicateID = errors.New("user id already exists")
)

// Store is the user persistence boundary. Update takes pointer fields so a
// partial update leaves absent fields untouched.
type Store interface {
	Get(ctx context.Context, id int) (User, error)
	Exists(ctx context.Context, id int) (bool, error)
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, id int, username, email, passwordHash *string) (User, error)
	Delete(ctx context.Context, id int) error
}

// HashPassword matches the directory's at-rest form; plaintext is never
// stored or returned.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
