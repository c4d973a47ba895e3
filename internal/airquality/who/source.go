package who

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/resilience"
)

// FileSource loads the workbook from the local filesystem.
type FileSource struct {
	path   string
	sheet  string
	logger zerolog.Logger
}

// FileSourceConfig holds configuration for a FileSource.
type FileSourceConfig struct {
	Path   string
	Sheet  string
	Logger zerolog.Logger
}

// NewFileSource creates a source reading the workbook at cfg.Path.
func NewFileSource(cfg FileSourceConfig) *FileSource {
	sheet := cfg.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &FileSource{path: cfg.Path, sheet: sheet, logger: cfg.Logger}
}

// Name implements airquality.Source.
func (s *FileSource) Name() string {
	return "file"
}

// Load implements airquality.Source. A missing file yields ErrFileNotFound.
func (s *FileSource) Load(_ context.Context) (*airquality.Dataset, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at: %s", ErrFileNotFound, s.path)
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	result, err := Parse(f, s.sheet)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Str("sheet", s.sheet).
		Int("records", result.Dataset.Len()).
		Int("dropped", result.Dropped).
		Msg("workbook parsed")

	return result.Dataset, nil
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	// UpstreamName identifies the workbook download in health output.
	UpstreamName = "who-workbook"

	// DefaultMaxBytes bounds the size of a downloaded workbook.
	DefaultMaxBytes = 256 << 20
)

// HTTPSource downloads the workbook from a URL.
type HTTPSource struct {
	url        string
	sheet      string
	maxBytes   int64
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// HTTPSourceConfig holds configuration for an HTTPSource.
type HTTPSourceConfig struct {
	URL   string
	Sheet string

	// HTTPClient is the HTTP client to use.
	// If nil, a resilient client with retries and a circuit breaker is created.
	HTTPClient HTTPDoer

	// Timeout for the download (default: 60s).
	Timeout time.Duration

	// MaxBytes caps the response body (default: DefaultMaxBytes).
	MaxBytes int64

	// Registry receives the default client for health reporting. Optional.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// NewHTTPSource creates a source downloading the workbook from cfg.URL.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	sheet := cfg.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		client := resilience.NewClient(resilience.ClientConfig{
			Name:    UpstreamName,
			Timeout: timeout,
			Logger:  cfg.Logger,
		})
		if cfg.Registry != nil {
			cfg.Registry.Register(client)
		}
		httpClient = client
	}

	return &HTTPSource{
		url:        cfg.URL,
		sheet:      sheet,
		maxBytes:   maxBytes,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name implements airquality.Source.
func (s *HTTPSource) Name() string {
	return "http"
}

// Load implements airquality.Source.
func (s *HTTPSource) Load(ctx context.Context) (*airquality.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", airquality.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", airquality.ErrSourceUnavailable, resp.StatusCode)
	}

	result, err := Parse(io.LimitReader(resp.Body, s.maxBytes), s.sheet)
	if err != nil {
		return nil, fmt.Errorf("parse workbook from %s: %w", s.url, err)
	}

	s.logger.Debug().
		Str("url", s.url).
		Dur("duration", time.Since(start)).
		Int("records", result.Dataset.Len()).
		Int("dropped", result.Dropped).
		Msg("workbook downloaded")

	return result.Dataset, nil
}
