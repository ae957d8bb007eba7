// Command genfeed writes sample gzipped restock feeds for local testing.
//
// Each feed holds "productID,quantity" lines. Products repeated across feeds are
// summed by the importer, so with the defaults product 1 is restocked by 30 units.
package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type feedLine struct {
	productID int64
	quantity  int
}

var sampleFeeds = map[string][]feedLine{
	"warehouse-a.gz": {
		{productID: 1, quantity: 10},
		{productID: 2, quantity: 25},
		{productID: 3, quantity: 5},
	},
	"warehouse-b.gz": {
		{productID: 1, quantity: 20},
		{productID: 4, quantity: 50},
	},
	"warehouse-c.gz": {
		{productID: 2, quantity: 5},
		{productID: 5, quantity: 100},
	},
}

func main() {
	dir := flag.String("dir", "data/restock", "directory to write the feeds to")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create feed directory")
	}

	for name, lines := range sampleFeeds {
		path := filepath.Join(*dir, name)
		if err := writeFeed(path, lines); err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("failed to write feed")
		}
		logger.Info().Str("file", path).Int("lines", len(lines)).Msg("feed written")
	}
}

func writeFeed(path string, lines []feedLine) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()

	gz := gzip.NewWriter(file)
	if _, err := fmt.Fprintln(gz, "# productID,quantity"); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(gz, "%d,%d\n", line.productID, line.quantity); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}
	return gz.Close()
}
