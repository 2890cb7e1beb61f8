// Package sqlitejournal implements the journal on an in-memory SQLite
// database with periodic disk dumps via VACUUM INTO. It wraps the GORM
// journal via composition; the only SQLite-specific concerns are creating
// the in-memory DB and the dump loop.
package sqlitejournal

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chifascan/scanner/internal/database"
	gormjournal "github.com/chifascan/scanner/internal/journal/gorm"
)

// Config holds configuration for the SQLite journal backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM journal for SQLite-specific behavior.
type Backend struct {
	*gormjournal.Backend
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
}

// New creates a new SQLite journal backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormjournal.New(db, log, true),
		db:       db,
		cfg:      cfg,
		log:      log.With().Str("component", "journal:sqlite").Logger(),
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM journal and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine and closes the embedded GORM journal.
func (b *Backend) Close() error {
	close(b.stopChan)
	return b.Backend.Close()
}

// Export dumps a point-in-time snapshot of the journal to the given path.
func (b *Backend) Export(path string) error {
	return database.DumpMemoryDBToDisk(b.db, path)
}

// dumpLoop periodically dumps the in-memory database to disk. VACUUM INTO
// creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
				b.log.Error().Err(err).Msg("Error dumping journal to disk")
			} else {
				b.log.Debug().Dur("duration", time.Since(start)).Msg("Dumped journal to disk")
			}
		}
	}
}
