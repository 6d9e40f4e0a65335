// Package password hashea y valida contraseñas locales.
//
// El algoritmo de hash es configurable (bcrypt por defecto, argon2id opcional);
// Verify reconoce ambos formatos para que un cambio de algoritmo no invalide
// hashes existentes.
package password

import (
	"errors"
	"fmt"
	"strings"
)

// MaxBytes es el largo máximo que bcrypt acepta.
const MaxBytes = 72

var (
	ErrEmptyPassword = errors.New("password: empty")
	ErrTooLong       = errors.New("password: too long")
)

type Hasher interface {
	Name() string
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// NewHasher devuelve un Hasher que hashea con `algorithm` y verifica
// cualquier formato soportado.
func NewHasher(algorithm string, bcryptCost int) (Hasher, error) {
	var primary Hasher
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", "bcrypt":
		primary = BcryptHasher{Cost: bcryptCost}
	case "argon2id", "argon2":
		primary = Argon2Hasher{Params: DefaultArgon2}
	default:
		return nil, fmt.Errorf("password: unsupported algorithm %q", algorithm)
	}
	return multiHasher{primary: primary}, nil
}

type multiHasher struct {
	primary Hasher
}

func (m multiHasher) Name() string                     { return m.primary.Name() }
func (m multiHasher) Hash(plain string) (string, error) { return m.primary.Hash(plain) }

func (m multiHasher) Verify(plain, hash string) bool {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return Argon2Hasher{}.Verify(plain, hash)
	case isBcrypt(hash):
		return BcryptHasher{}.Verify(plain, hash)
	default:
		return false
	}
}
