package restock

import (
	"context"
	"fmt"
	"slices"

	"shopflow/internal/model"
	"shopflow/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxFeeds bounds how many feeds one restock may apply.
const maxFeeds = 16

// Importer applies restock feeds to the stock ledger.
type Importer struct {
	loader Loader
	tx     repository.Transactor
	stock  repository.StockLedger
	logger zerolog.Logger
}

// NewImporter creates an Importer.
func NewImporter(loader Loader, tx repository.Transactor, stock repository.StockLedger, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		tx:     tx,
		stock:  stock,
		logger: logger.With().Str("component", "restock-importer").Logger(),
	}
}

// Import loads every feed concurrently and releases the merged quantities as one
// unit of work, in ascending product order. Nothing is restocked if any feed fails
// to load or names an unknown product.
func (im *Importer) Import(ctx context.Context, paths []string) (*model.RestockResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: at least one restock feed is required", model.ErrInvalidRequest)
	}
	if len(paths) > maxFeeds {
		return nil, fmt.Errorf("%w: at most %d restock feeds may be applied at once", model.ErrInvalidRequest, maxFeeds)
	}

	feeds := make([]*Feed, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			feed, err := im.loader.Load(gctx, path)
			if err != nil {
				return err
			}
			feeds[i] = feed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		im.logger.Error().Err(err).Strs("feeds", paths).Msg("failed to load restock feeds")
		return nil, err
	}

	merged := make(map[int64]int)
	for _, feed := range feeds {
		for productID, qty := range feed.Quantities {
			merged[productID] += qty
		}
	}

	ids := make([]int64, 0, len(merged))
	units := 0
	for id, qty := range merged {
		ids = append(ids, id)
		units += qty
	}
	slices.Sort(ids)

	err := im.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			if err := im.stock.Release(ctx, id, merged[id]); err != nil {
				return fmt.Errorf("restock product %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		im.logger.Error().Err(err).Strs("feeds", paths).Msg("failed to apply restock")
		return nil, err
	}

	im.logger.Info().
		Int("feeds", len(feeds)).
		Int("products", len(ids)).
		Int("units", units).
		Msg("restock applied")

	return &model.RestockResult{
		Feeds:    len(feeds),
		Products: len(ids),
		Units:    units,
		Released: merged,
	}, nil
}
