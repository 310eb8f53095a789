package model

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	GroupStatusActive   = "active"
	GroupStatusArchived = "archived"
)

type Group struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	InviteCode  string    `db:"invite_code"`
	MaxMembers  int       `db:"max_members"`
	IsPrivate   bool      `db:"is_private"`
	Status      string    `db:"status"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewInviteCode returns an 8-character share code. Uniqueness is enforced by
// the unique index on groups.invite_code; callers retry on collision.
func NewInviteCode() string {
	code := make([]byte, 8)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code)
}
