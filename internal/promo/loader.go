package promo

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Loader reads one code definition file into a Store. Implementations
// exist for the local file system and S3.
type Loader interface {
	Load(ctx context.Context, path string) (*Store, error)
}

// fileLoader implements Loader over the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a file system backed definition loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{logger: logger}
}

func (l *fileLoader) Load(ctx context.Context, path string) (*Store, error) {
	return LoadFile(ctx, path, l.logger)
}

// LoadFile reads a code definition file into a Store. The file holds one
// JSON definition per line and may be gzip-compressed (".gz" suffix).
// Blank lines and lines starting with '#' are skipped.
func LoadFile(ctx context.Context, filePath string, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "promo-loader").Logger()
	logger.Info().Str("file", filePath).Msg("loading code definitions")

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open code file %s: %w", filePath, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(filePath, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", filePath, err)
		}
		defer gz.Close()
		reader = gz
	}

	store, err := scanDefinitions(ctx, filePath, reader, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("file", filePath).
		Int("codes_loaded", store.Size()).
		Msg("code definitions loaded")

	return store, nil
}

// scanDefinitions parses newline-delimited JSON definitions from an
// already-decompressed stream. Malformed or codeless lines are skipped
// with a warning.
func scanDefinitions(ctx context.Context, source string, reader io.Reader, logger zerolog.Logger) (*Store, error) {
	store := NewStore(logger)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			select {
			case <-ctx.Done():
				logger.Warn().Str("file", source).Msg("code loading cancelled")
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var def Definition
		if err := json.Unmarshal([]byte(line), &def); err != nil {
			logger.Warn().
				Str("file", source).
				Int("line", lineNo).
				Err(err).
				Msg("skipping malformed code definition")
			continue
		}
		if def.Code == "" {
			logger.Warn().
				Str("file", source).
				Int("line", lineNo).
				Msg("skipping code definition without a code")
			continue
		}
		store.Put(def)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading code file %s: %w", source, err)
	}

	return store, nil
}
