// Command coupon-ingest bulk-loads coupon names from gzip-compressed line
// files into the coupons table. Each line is either a bare name or
// "NAME,discount"; bare names get the default discount. Files are parsed
// concurrently and a bloom filter drops duplicate names across files before
// they reach the database.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/averix/storefront/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 500
	minNameLen    = 4
	maxNameLen    = 32
	progressEvery = 1_000_000
)

type entry struct {
	name     string
	discount decimal.Decimal
}

func main() {
	var (
		databaseURL     string
		defaultDiscount string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&defaultDiscount, "default-discount", "10", "discount percentage for lines without one")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one .gz coupon file is required")
		os.Exit(1)
	}

	fallback, err := decimal.NewFromString(defaultDiscount)
	if err != nil {
		slog.Error("invalid default discount", slog.String("value", defaultDiscount))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, fallback); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, fallback decimal.Decimal) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Parsers fan in to a single writer goroutine. The bloom filter keeps
	// duplicate names out of the batch; a rare false positive just skips a
	// name, which the rerun-safe upsert tolerates.
	entries := make(chan entry, batchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeCoupons(ctx, pool, entries)
	})

	var parsers sync.WaitGroup
	for _, f := range files {
		parsers.Add(1)
		g.Go(func() error {
			defer parsers.Done()
			return parseFile(ctx, f, fallback, entries)
		})
	}
	go func() {
		parsers.Wait()
		close(entries)
	}()

	return g.Wait()
}

// parseFile streams one gzip file line by line, sending well-formed entries
// downstream.
func parseFile(ctx context.Context, path string, fallback decimal.Decimal, out chan<- entry) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var count, skipped uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		e, ok := parseLine(scanner.Text(), fallback)
		if !ok {
			skipped++
			continue
		}

		count++
		if count%progressEvery == 0 {
			slog.Info("parse progress", slog.String("file", path), slog.Uint64("lines", count))
		}

		select {
		case out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("parse complete",
		slog.String("file", path),
		slog.Uint64("entries", count),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

func parseLine(line string, fallback decimal.Decimal) (entry, bool) {
	name, rest, hasDiscount := strings.Cut(strings.TrimSpace(line), ",")
	name = strings.ToUpper(strings.TrimSpace(name))
	if len(name) < minNameLen || len(name) > maxNameLen {
		return entry{}, false
	}

	discount := fallback
	if hasDiscount {
		d, err := decimal.NewFromString(strings.TrimSpace(rest))
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return entry{}, false
		}
		discount = d
	}

	return entry{name: name, discount: discount}, true
}

const upsertCouponSQL = `
INSERT INTO coupons (id, name, discount)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET discount = EXCLUDED.discount
`

// writeCoupons drains the entry channel, deduplicates names, and upserts in
// batches.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, entries <-chan entry) error {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	batch := &pgx.Batch{}
	var written int

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		results := pool.SendBatch(ctx, batch)
		for range batch.Len() {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return errors.Wrap(err, "upsert coupon batch")
			}
		}
		if err := results.Close(); err != nil {
			return errors.Wrap(err, "close coupon batch")
		}
		written += batch.Len()
		batch = &pgx.Batch{}
		slog.Info("write progress", slog.Int("written", written))
		return nil
	}

	for e := range entries {
		if seen.TestString(e.name) {
			continue
		}
		seen.AddString(e.name)

		batch.Queue(upsertCouponSQL, uuid.NewString(), e.name, e.discount)
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("coupons written", slog.Int("total", written))
	return nil
}
