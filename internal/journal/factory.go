// internal/journal/factory.go
package journal

import (
	"fmt"

	"github.com/rs/zerolog"

	gormjournal "github.com/chifascan/scanner/internal/journal/gorm"
	"github.com/chifascan/scanner/internal/journal/memory"
	sqlitejournal "github.com/chifascan/scanner/internal/journal/sqlite"
	wsjournal "github.com/chifascan/scanner/internal/journal/websocket"
)

// Config selects and configures a journal backend.
type Config struct {
	// Type is one of "sqlite", "postgres", "memory", "websocket".
	Type string

	SQLite    sqlitejournal.Config
	WebSocket wsjournal.Config
}

// NewBackend creates a journal backend based on configuration.
func NewBackend(cfg Config, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return gormjournal.NewPostgres(log)
	case "sqlite":
		return sqlitejournal.New(cfg.SQLite, log)
	case "memory":
		return memory.New(), nil
	case "websocket":
		return wsjournal.New(cfg.WebSocket, log), nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
