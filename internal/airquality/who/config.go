package who

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/resilience"
)

// Workbook source kinds accepted in DATA_SOURCE.
const (
	KindFile = "file"
	KindHTTP = "http"
)

// ErrUnknownSource is returned for a DATA_SOURCE this package cannot serve.
var ErrUnknownSource = errors.New("unknown workbook source")

// SourceConfig selects and configures a workbook source.
type SourceConfig struct {
	Kind  string
	Path  string
	URL   string
	Sheet string
}

// SourceConfigFromEnv reads DATA_SOURCE, DATA_FILE, DATA_URL and DATA_SHEET.
// The default is the workbook file shipped next to the binary.
func SourceConfigFromEnv() SourceConfig {
	return SourceConfig{
		Kind:  getEnvOrDefault("DATA_SOURCE", KindFile),
		Path:  getEnvOrDefault("DATA_FILE", "data/who_ambient_air_quality_database_2024.xlsx"),
		URL:   os.Getenv("DATA_URL"),
		Sheet: os.Getenv("DATA_SHEET"),
	}
}

// NewSource builds the workbook source described by cfg. Downloads register
// their client with registry when it is non-nil.
func NewSource(cfg SourceConfig, registry *resilience.Registry, logger zerolog.Logger) (airquality.Source, error) {
	switch cfg.Kind {
	case KindFile:
		return NewFileSource(FileSourceConfig{
			Path:   cfg.Path,
			Sheet:  cfg.Sheet,
			Logger: logger,
		}), nil
	case KindHTTP:
		if cfg.URL == "" {
			return nil, errors.New("DATA_URL is required for the http source")
		}
		return NewHTTPSource(HTTPSourceConfig{
			URL:      cfg.URL,
			Sheet:    cfg.Sheet,
			Registry: registry,
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Kind)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
