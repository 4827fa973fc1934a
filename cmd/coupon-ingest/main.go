// Command coupon-ingest bulk-loads campaign coupon codes for one store.
//
// Marketing campaigns arrive as several gzip-compressed code lists, one per
// partner export. Exports are noisy: a code is trusted only when at least two
// exports agree on it. The files are far too large to hold in memory, so the
// tool does two streaming passes: pass one builds a bloom filter per file,
// pass two re-streams each file testing codes against the other files'
// filters and keeps the ones confirmed twice.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/veciapp/marketplace-core/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 6
	maxCodeLen    = 12
)

type campaign struct {
	storeID      string
	discountType string
	value        decimal.Decimal
	minSubtotal  decimal.Decimal
	description  string
}

func main() {
	var (
		databaseURL string
		storeID     string
		kind        string
		value       string
		minSubtotal string
		description string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&storeID, "store", "", "store the campaign codes belong to")
	flag.StringVar(&kind, "type", "percentage", "discount type: percentage or fixed")
	flag.StringVar(&value, "value", "10", "discount value")
	flag.StringVar(&minSubtotal, "min-subtotal", "0", "minimum subtotal to redeem")
	flag.StringVar(&description, "description", "Cupón de campaña", "coupon description shown at checkout")
	flag.Parse()

	files := flag.Args()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if storeID == "" {
		slog.Error("--store is required")
		os.Exit(1)
	}
	if len(files) < 2 {
		slog.Error("at least two code list files are required", slog.Int("got", len(files)))
		os.Exit(1)
	}

	parsedValue, err := decimal.NewFromString(value)
	if err != nil {
		slog.Error("invalid --value", slog.String("value", value))
		os.Exit(1)
	}
	parsedMin, err := decimal.NewFromString(minSubtotal)
	if err != nil {
		slog.Error("invalid --min-subtotal", slog.String("value", minSubtotal))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c := campaign{
		storeID:      storeID,
		discountType: kind,
		value:        parsedValue,
		minSubtotal:  parsedMin,
		description:  description,
	}
	if err := run(ctx, databaseURL, files, c); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, c campaign) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: cross-checking exports")
	codes, err := confirmedCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "confirm codes")
	}

	slog.Info("confirmed codes", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		slog.Info("nothing to insert")
		return nil
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return errors.Wrap(writeCoupons(ctx, pool, codes, c), "write coupons")
}

// buildFilters streams every export once and builds one bloom filter per
// file, concurrently.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamCodes(ctx, path, func(code string) {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.String("file", filepath.Base(path)),
						slog.Uint64("codes", count),
					)
				}
			})
			if err != nil {
				return errors.Wrapf(err, "filter %s", path)
			}

			slog.Info("pass 1 complete",
				slog.String("file", filepath.Base(path)),
				slog.Uint64("total_codes", count),
			)
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// confirmedCodes re-streams each export, testing codes against the other
// files' filters. A code survives when two or more exports carry it.
func confirmedCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	perFile := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)

			err := streamCodes(ctx, path, func(code string) {
				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						candidates[code] |= fileBit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}

			slog.Info("pass 2 complete",
				slog.String("file", filepath.Base(path)),
				slog.Int("candidates", len(candidates)),
			)
			perFile[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, candidates := range perFile {
		for code, mask := range candidates {
			merged[code] |= mask
		}
	}

	var confirmed []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, code)
		}
	}
	return confirmed, nil
}

// streamCodes reads a gzip-compressed export line by line, skipping codes
// outside the accepted length range.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := scanner.Text()
		if len(code) >= minCodeLen && len(code) <= maxCodeLen {
			fn(code)
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string, c campaign) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)), slog.String("store", c.storeID))

	for i, code := range codes {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, store_id, discount_type, value, min_subtotal, description, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (code) DO UPDATE
			SET store_id = EXCLUDED.store_id, discount_type = EXCLUDED.discount_type,
			    value = EXCLUDED.value, min_subtotal = EXCLUDED.min_subtotal,
			    description = EXCLUDED.description, active = TRUE`,
			code, c.storeID, c.discountType, c.value, c.minSubtotal, c.description)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}
	return nil
}
