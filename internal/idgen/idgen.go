// Package idgen generates the identifiers used across the stores.
package idgen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

const (
	codeAlphabet  = "0123456789"
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	ConfirmCodeLen = 6
	ResetTokenLen  = 32
	MediaKeyLen    = 16
)

// Generator produces ids. The interface lets tests pin values.
type Generator interface {
	UserID() string
	SortableID() (string, error)
	ConfirmCode() (string, error)
	ResetToken() (string, error)
	MediaKey() (string, error)
}

// Default is the production Generator.
type Default struct{}

// New returns the production Generator.
func New() Default { return Default{} }

// UserID returns a random UUID.
func (Default) UserID() string {
	return uuid.NewString()
}

// SortableID returns a ULID, used for posts, comments and index documents
// so ids sort by creation time.
func (Default) SortableID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// ConfirmCode returns a six digit numeric code suitable for SMS.
func (Default) ConfirmCode() (string, error) {
	return gonanoid.Generate(codeAlphabet, ConfirmCodeLen)
}

// ResetToken returns a URL-safe password reset token.
func (Default) ResetToken() (string, error) {
	return gonanoid.Generate(tokenAlphabet, ResetTokenLen)
}

// MediaKey returns a short random object-key component.
func (Default) MediaKey() (string, error) {
	return gonanoid.Generate(tokenAlphabet, MediaKeyLen)
}

// ValidSortableID reports whether id parses as a ULID.
func ValidSortableID(id string) bool {
	if len(id) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}
