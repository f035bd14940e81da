package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"shopledger/internal/domain"
	"shopledger/internal/domain/activity"
)

// CompressionAlgo specifies how activity changes are stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 4 * 1024

// activityRow is the storage shape of activity.Entry.
type activityRow struct {
	activity.Entry
	Changes           []byte          `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
}

// ActivityStore persists the activity log in sys_activity. Large change sets
// are zstd compressed.
type ActivityStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var (
	_ activity.Writer = (*ActivityStore)(nil)
	_ activity.Reader = (*ActivityStore)(nil)
)

// NewActivityStore creates a new activity store.
func NewActivityStore(txManager *TxManager) (*ActivityStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ActivityStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Append implements activity.Writer.
func (s *ActivityStore) Append(ctx context.Context, e *activity.Entry) error {
	changes, compressed, algo, err := s.encodeChanges(e.Changes)
	if err != nil {
		return err
	}

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_activity (
			id, entity_type, entity_id, action, user_id, summary,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		e.ID, e.EntityType, e.EntityID, string(e.Action), e.UserID, e.Summary,
		changes, compressed, algo, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) encodeChanges(changes map[string]any) (plain, compressed []byte, algo CompressionAlgo, err error) {
	if len(changes) == 0 {
		return nil, nil, CompressionNone, nil
	}

	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, nil, "", fmt.Errorf("marshal changes: %w", err)
	}
	if len(raw) <= s.compressThreshold {
		return raw, nil, CompressionNone, nil
	}
	return nil, s.encoder.EncodeAll(raw, nil), CompressionZstd, nil
}

func (s *ActivityStore) decodeChanges(row *activityRow) error {
	raw := row.Changes
	if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(row.ChangesCompressed, nil)
		if err != nil {
			return fmt.Errorf("decompress changes: %w", err)
		}
		raw = decompressed
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &row.Entry.Changes)
}

// List implements activity.Reader.
func (s *ActivityStore) List(ctx context.Context, f activity.Filter) (domain.ListResult[*activity.Entry], error) {
	result := domain.ListResult[*activity.Entry]{Limit: f.Limit, Offset: f.Offset}

	where := activityWhere(f)
	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	querier := s.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := builder.Select("COUNT(*)").From("sys_activity").Where(where).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count activity: %w", err)
	}

	sql, args, err := builder.
		Select("id", "entity_type", "entity_id", "action", "user_id", "summary",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From("sys_activity").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return result, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row activityRow
		err := rows.Scan(
			&row.ID, &row.EntityType, &row.EntityID, &row.Action, &row.UserID, &row.Summary,
			&row.Changes, &row.ChangesCompressed, &row.CompressionAlgo, &row.CreatedAt,
		)
		if err != nil {
			return result, fmt.Errorf("scan activity: %w", err)
		}
		if err := s.decodeChanges(&row); err != nil {
			return result, err
		}
		entry := row.Entry
		result.Items = append(result.Items, &entry)
	}
	return result, rows.Err()
}

// DeleteOlderThan removes entries created before the cutoff.
func (s *ActivityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `DELETE FROM sys_activity WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete activity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func activityWhere(f activity.Filter) squirrel.And {
	where := squirrel.And{}
	if f.EntityType != "" {
		where = append(where, squirrel.Eq{"entity_type": f.EntityType})
	}
	if f.EntityID != nil {
		where = append(where, squirrel.Eq{"entity_id": *f.EntityID})
	}
	if f.UserID != "" {
		where = append(where, squirrel.Eq{"user_id": f.UserID})
	}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.Lt{"created_at": *f.To})
	}
	if f.Search != "" {
		where = append(where, squirrel.ILike{"summary": "%" + f.Search + "%"})
	}
	return where
}
