package storage

import (
	"fmt"
	"log/slog"

	"github.com/sebkoller/moneyguru/internal/config"
)

// Open creates the document store selected by cfg.DataBackend.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.DataBackend {
	case "xml":
		logger.Info("using xml backend", "path", cfg.DocumentPath)
		return NewXMLStore(cfg.DocumentPath, logger), nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("using sqlite backend", "path", cfg.SQLiteDBPath)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
