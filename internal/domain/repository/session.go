package repository

import "context"

// Session es el acceso al store con alcance de un request.
// Se adquiere al inicio del request y Close libera la conexión en todo camino de salida.
type Session interface {
	Users() UserRepository
	Referrals() ReferralRepository
	Close() error
}

// Store abre sesiones contra el almacenamiento persistente.
type Store interface {
	// Acquire obtiene una sesión. Retorna ErrUnavailable si el store no responde.
	Acquire(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close() error
	Driver() string
}

type sessionCtxKey struct{}

// WithSession inyecta la sesión del request en el contexto.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom obtiene la sesión del request. Retorna nil si no hay.
func SessionFrom(ctx context.Context) Session {
	if v, ok := ctx.Value(sessionCtxKey{}).(Session); ok {
		return v
	}
	return nil
}

// Use ejecuta fn con la sesión del request si existe; si no, reserva una
// del Store y la libera al terminar (jobs, CLI).
func Use(ctx context.Context, st Store, fn func(Session) error) error {
	if s := SessionFrom(ctx); s != nil {
		return fn(s)
	}
	if st == nil {
		return Unavailable("session.use", errNoStore)
	}
	s, err := st.Acquire(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

type sessionError string

func (e sessionError) Error() string { return string(e) }

const errNoStore = sessionError("no session in context and no store configured")
