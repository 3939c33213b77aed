package description

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-country-recommender/app/db"
	"github.com/FACorreiaa/go-country-recommender/app/filestore"
)

var (
	_ Repository = (*FileRepository)(nil)
	_ Repository = (*BadgerRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)

// Repository persists the country name → description map.
type Repository interface {
	// Load returns the whole persisted map. Implementations return a usable (possibly empty)
	// map alongside any error so callers can degrade instead of failing.
	Load(ctx context.Context) (map[string]string, error)
	// Save writes every entry of descriptions, overwriting existing ones.
	Save(ctx context.Context, descriptions map[string]string) error
}

// FileRepository keeps descriptions in a single JSON object on disk.
type FileRepository struct {
	doc *filestore.JSONMap[string]
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{doc: filestore.NewJSONMap[string](path)}
}

func (r *FileRepository) Load(_ context.Context) (map[string]string, error) {
	return r.doc.Load()
}

func (r *FileRepository) Save(_ context.Context, descriptions map[string]string) error {
	return r.doc.Update(func(data map[string]string, _ error) {
		for name, text := range descriptions {
			data[name] = text
		}
	})
}

const badgerKeyPrefix = "description:"

// BadgerRepository stores one key per country in the embedded badger store.
type BadgerRepository struct {
	db *badger.DB
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

func (r *BadgerRepository) Load(_ context.Context) (map[string]string, error) {
	descriptions := make(map[string]string)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), badgerKeyPrefix)
			if err := item.Value(func(val []byte) error {
				descriptions[name] = string(val)
				return nil
			}); err != nil {
				return fmt.Errorf("read description %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return make(map[string]string), err
	}
	return descriptions, nil
}

func (r *BadgerRepository) Save(_ context.Context, descriptions map[string]string) error {
	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	for name, text := range descriptions {
		if err := wb.Set([]byte(badgerKeyPrefix+name), []byte(text)); err != nil {
			return fmt.Errorf("set description %q: %w", name, err)
		}
	}
	return wb.Flush()
}

// PostgresRepository stores descriptions in the country_descriptions table.
type PostgresRepository struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresRepository(db database.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

func (r *PostgresRepository) Load(ctx context.Context) (map[string]string, error) {
	ctx, span := otel.Tracer("DescriptionRepo").Start(ctx, "Load", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "country_descriptions"),
	))
	defer span.End()

	descriptions := make(map[string]string)
	rows, err := r.db.Query(ctx, `SELECT country_name, description FROM country_descriptions`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return descriptions, fmt.Errorf("failed to query country descriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, text string
		if err := rows.Scan(&name, &text); err != nil {
			span.RecordError(err)
			return make(map[string]string), fmt.Errorf("failed to scan country description: %w", err)
		}
		descriptions[name] = text
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return make(map[string]string), fmt.Errorf("error iterating country descriptions: %w", err)
	}

	span.SetAttributes(attribute.Int("descriptions.count", len(descriptions)))
	span.SetStatus(codes.Ok, "")
	return descriptions, nil
}

func (r *PostgresRepository) Save(ctx context.Context, descriptions map[string]string) error {
	ctx, span := otel.Tracer("DescriptionRepo").Start(ctx, "Save", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "country_descriptions"),
		attribute.Int("descriptions.count", len(descriptions)),
	))
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.WarnContext(ctx, "Rollback failed", slog.Any("error", rbErr))
		}
	}()

	names := make([]string, 0, len(descriptions))
	for name := range descriptions {
		names = append(names, name)
	}
	slices.Sort(names)

	query := `
        INSERT INTO country_descriptions (country_name, description, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (country_name) DO UPDATE
        SET description = EXCLUDED.description, updated_at = NOW()
    `
	for _, name := range names {
		if _, err := tx.Exec(ctx, query, name, descriptions[name]); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "upsert failed")
			return fmt.Errorf("failed to upsert description for %q: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
