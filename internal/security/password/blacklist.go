package password

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Blacklist son contraseñas demasiado comunes para el registro. Se compara
// sin mayúsculas ni espacios alrededor. Un *Blacklist nil no contiene nada.
type Blacklist struct {
	words map[string]struct{}
}

func normalizeWord(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// LoadBlacklist lee el archivo configurado en PASSWORD_BLACKLIST_PATH.
// Sin path devuelve una lista vacía.
func LoadBlacklist(path string) (*Blacklist, error) {
	if strings.TrimSpace(path) == "" {
		return &Blacklist{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBlacklist(f)
}

// ReadBlacklist parsea una palabra por línea; '#' inicia un comentario.
func ReadBlacklist(r io.Reader) (*Blacklist, error) {
	words := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := normalizeWord(sc.Text())
		if w == "" || w[0] == '#' {
			continue
		}
		words[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Blacklist{words: words}, nil
}

func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, found := b.words[normalizeWord(pwd)]
	return found
}

func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.words)
}
