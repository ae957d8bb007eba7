// Package restock reads bulk restock feeds and applies them to the stock ledger.
//
// A feed is a gzipped text file with one "product_id,quantity" pair per line.
// Blank lines and lines starting with '#' are ignored. A product listed more than
// once in a feed is restocked by the sum of its quantities.
package restock

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"shopflow/internal/model"
)

// Feed is a parsed restock feed.
type Feed struct {
	Path       string
	Quantities map[int64]int
	Lines      int
}

// Units returns the total number of units the feed restocks.
func (f *Feed) Units() int {
	units := 0
	for _, qty := range f.Quantities {
		units += qty
	}
	return units
}

// Loader defines the interface for loading restock feeds.
type Loader interface {
	// Load reads a gzipped restock feed.
	Load(ctx context.Context, path string) (*Feed, error)
}

// parseFeed decodes a gzipped feed read from r.
func parseFeed(ctx context.Context, path string, r io.Reader) (*Feed, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: restock feed %s is not gzipped: %v", model.ErrInvalidRequest, path, err)
	}
	defer gzipReader.Close()

	feed := &Feed{Path: path, Quantities: make(map[int64]int)}

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		productID, qty, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: restock feed %s line %d: %v", model.ErrInvalidRequest, path, lineNo, err)
		}
		feed.Quantities[productID] += qty
		feed.Lines++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading restock feed %s: %w", path, err)
	}

	return feed, nil
}

func parseLine(line string) (int64, int, error) {
	idField, qtyField, ok := strings.Cut(line, ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected product_id,quantity, got %q", line)
	}

	productID, err := strconv.ParseInt(strings.TrimSpace(idField), 10, 64)
	if err != nil || productID <= 0 {
		return 0, 0, fmt.Errorf("invalid product id %q", idField)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(qtyField))
	if err != nil || qty <= 0 {
		return 0, 0, fmt.Errorf("invalid quantity %q", qtyField)
	}

	return productID, qty, nil
}
