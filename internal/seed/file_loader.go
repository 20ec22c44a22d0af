package seed

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped seed files from disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based seed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "seed-loader").Logger(),
	}
}

// Load reads a gzipped seed file with one JSON voucher definition per line.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]Definition, error) {
	l.logger.Info().Str("file", filePath).Msg("loading voucher seed file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open seed file")
		return nil, fmt.Errorf("failed to open seed file %s: %w", filePath, err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to create gzip reader")
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", filePath, err)
	}
	defer gzipReader.Close()

	definitions, err := parseDefinitions(ctx, gzipReader)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("error reading seed file")
		return nil, fmt.Errorf("error reading seed file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("definitions", len(definitions)).
		Msg("voucher seed file loaded")

	return definitions, nil
}

// parseDefinitions reads JSON-lines voucher definitions, skipping blank
// lines. A malformed line fails the whole load so a truncated file is not
// partially applied.
func parseDefinitions(ctx context.Context, r interface{ Read([]byte) (int, error) }) ([]Definition, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var definitions []Definition
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var def Definition
		if err := json.Unmarshal([]byte(line), &def); err != nil {
			return nil, fmt.Errorf("invalid definition on line %d: %w", lineNo, err)
		}
		definitions = append(definitions, def)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return definitions, nil
}
