package password

import (
	"fmt"
	"unicode/utf8"
)

// Policy son las reglas para contraseñas nuevas en el registro local.
type Policy struct {
	MinLength int        // en caracteres
	Blacklist *Blacklist // nil = sin lista
}

// Validate devuelve un mensaje por regla incumplida; vacío si la contraseña sirve.
func (p Policy) Validate(pwd string) []string {
	var out []string
	if n := utf8.RuneCountInString(pwd); n < p.MinLength {
		out = append(out, fmt.Sprintf("must have at least %d characters", p.MinLength))
	}
	if len(pwd) > MaxBytes {
		out = append(out, fmt.Sprintf("must be at most %d bytes", MaxBytes))
	}
	if p.Blacklist.Contains(pwd) {
		out = append(out, "is too common")
	}
	return out
}
