package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// PasswordParams are the Argon2id cost settings used for new hashes.
type PasswordParams struct {
	Time        uint32
	Memory      uint32 // KiB
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultPasswordParams is what HashPassword uses. Tests lower it to keep runs fast.
var DefaultPasswordParams = PasswordParams{
	Time:        3,
	Memory:      64 * 1024,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// MinPasswordLength is the shortest secret accepted at registration.
const MinPasswordLength = 6

var errInvalidHash = errors.New("invalid hash format")

// HashPassword hashes a password using Argon2id
func HashPassword(password string) (string, error) {
	p := DefaultPasswordParams

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	// $argon2id$v=19$m=65536,t=3,p=2$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword verifies a password against a hash produced by HashPassword.
// The cost parameters are read back from the encoded hash.
func VerifyPassword(password, hashedPassword string) (bool, error) {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errInvalidHash
	}

	var memory, time uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil {
		return false, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, parallelism, uint32(len(hash)))

	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}
