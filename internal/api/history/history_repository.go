package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-country-recommender/app/db"
	"github.com/FACorreiaa/go-country-recommender/app/filestore"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

var (
	_ Repository = (*FileRepository)(nil)
	_ Repository = (*BadgerRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)

// Repository keeps one UserHistory per user id.
type Repository interface {
	// Get returns types.ErrNotFound when the user has no stored history.
	Get(ctx context.Context, userID string) (types.UserHistory, error)
	// Put replaces the user's history.
	Put(ctx context.Context, userID string, h types.UserHistory) error
}

// FileRepository stores every user's history in one JSON object keyed by user id.
type FileRepository struct {
	doc    *filestore.JSONMap[types.UserHistory]
	logger *slog.Logger
}

func NewFileRepository(path string, logger *slog.Logger) *FileRepository {
	return &FileRepository{doc: filestore.NewJSONMap[types.UserHistory](path), logger: logger}
}

func (r *FileRepository) Get(_ context.Context, userID string) (types.UserHistory, error) {
	all, err := r.doc.Load()
	if err != nil {
		return types.UserHistory{}, err
	}
	h, ok := all[userID]
	if !ok {
		return types.UserHistory{}, types.ErrNotFound
	}
	return h, nil
}

// Put reads the current document, overwrites userID and writes it back under the store lock.
// A corrupt document is replaced.
func (r *FileRepository) Put(ctx context.Context, userID string, h types.UserHistory) error {
	return r.doc.Update(func(all map[string]types.UserHistory, corrupt error) {
		if corrupt != nil {
			r.logger.WarnContext(ctx, "History file is corrupt, it will be rewritten",
				slog.String("path", r.doc.Path()), slog.Any("error", corrupt))
		}
		all[userID] = h
	})
}

const badgerKeyPrefix = "history:"

type BadgerRepository struct {
	db *badger.DB
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

func (r *BadgerRepository) Get(_ context.Context, userID string) (types.UserHistory, error) {
	var h types.UserHistory
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &h); err != nil {
				return fmt.Errorf("%w: %v", types.ErrStorageCorrupt, err)
			}
			return nil
		})
	})
	if err != nil {
		return types.UserHistory{}, err
	}
	return h, nil
}

func (r *BadgerRepository) Put(_ context.Context, userID string, h types.UserHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+userID), data)
	})
}

// PostgresRepository stores histories in the user_history table.
type PostgresRepository struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresRepository(db database.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (types.UserHistory, error) {
	ctx, span := otel.Tracer("HistoryRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_history"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	var h types.UserHistory
	err := r.db.QueryRow(ctx,
		`SELECT preferred_countries, past_recommendations FROM user_history WHERE user_id = $1`,
		userID,
	).Scan(&h.PreferredCountries, &h.PastRecommendations)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "no history")
		return types.UserHistory{}, types.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return types.UserHistory{}, fmt.Errorf("failed to query user history: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return h, nil
}

func (r *PostgresRepository) Put(ctx context.Context, userID string, h types.UserHistory) error {
	ctx, span := otel.Tracer("HistoryRepo").Start(ctx, "Put", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_history"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	preferred, past := h.PreferredCountries, h.PastRecommendations
	if preferred == nil {
		preferred = []string{}
	}
	if past == nil {
		past = []string{}
	}

	query := `
        INSERT INTO user_history (user_id, preferred_countries, past_recommendations, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET preferred_countries = EXCLUDED.preferred_countries,
            past_recommendations = EXCLUDED.past_recommendations,
            updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, query, userID, preferred, past); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return fmt.Errorf("failed to upsert user history: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
