package logger

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	initOnce sync.Once
	current  atomic.Pointer[zap.Logger]
)

// Init crea el logger del proceso. Solo la primera llamada tiene efecto.
func Init(cfg Config) {
	initOnce.Do(func() { current.Store(build(cfg)) })
}

// L devuelve el logger del proceso; sin Init previo usa dev/info.
func L() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	return current.Load()
}

// Replace cambia el logger del proceso y devuelve cómo restaurar el anterior.
func Replace(l *zap.Logger) (restore func()) {
	prev := L()
	current.Store(l)
	return func() { current.Store(prev) }
}

// Sync vacía los buffers pendientes.
func Sync() error {
	if l := current.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
