package postgres

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/id"
	"shopledger/internal/domain/activity"
)

func TestActivityStore_ChangesCompression(t *testing.T) {
	store, err := NewActivityStore(nil)
	require.NoError(t, err)

	small := map[string]any{"name": map[string]any{"old": "Ann", "new": "Anna"}}
	plain, compressed, algo, err := store.encodeChanges(small)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algo)
	assert.NotEmpty(t, plain)
	assert.Nil(t, compressed)

	large := map[string]any{"comment": strings.Repeat("credit ", 2000)}
	plain, compressed, algo, err = store.encodeChanges(large)
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, plain)
	assert.Less(t, len(compressed), 14000)

	row := activityRow{ChangesCompressed: compressed, CompressionAlgo: algo}
	require.NoError(t, store.decodeChanges(&row))
	assert.Equal(t, large["comment"], row.Entry.Changes["comment"])

	_, _, algo, err = store.encodeChanges(nil)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algo)
}

func TestActivityWhere(t *testing.T) {
	entityID := id.New()

	sql, args, err := squirrel.Select("id").From("sys_activity").
		Where(activityWhere(activity.Filter{EntityType: activity.EntityCustomer, EntityID: &entityID})).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM sys_activity WHERE (entity_type = $1 AND entity_id = $2)", sql)
	assert.Equal(t, []any{"customer", entityID.String()}, args)

	sql, _, err = squirrel.Select("id").From("sys_activity").Where(activityWhere(activity.Filter{})).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM sys_activity WHERE (1=1)", sql)
}
