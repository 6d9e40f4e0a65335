package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/refgate/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// WriteJSON: respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica el body (máx 1MB) y rechaza campos desconocidos.
// Content-Type incorrecto, JSON inválido o un campo extra devuelven un ValidationError.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		return types.Invalid("body", "Content-Type must be application/json")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return types.Invalid("body", "empty body")
		}
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return types.Invalid(strings.Trim(field, `"`), "extra fields not permitted")
		}
		return types.Invalid("body", "invalid JSON")
	}
	return nil
}
