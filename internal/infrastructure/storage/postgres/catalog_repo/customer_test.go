package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/apperror"
	"shopledger/internal/domain"
	"shopledger/internal/domain/customer"
)

func TestCustomerRepo_ListQuery(t *testing.T) {
	repo := NewCustomerRepo(nil)

	tests := []struct {
		name      string
		filter    customer.ListFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "default hides deleted",
			filter:    customer.ListFilter{},
			wantWhere: "WHERE deletion_mark = $1",
			wantArgs:  []any{false},
		},
		{
			name:      "search and balance",
			filter:    customer.ListFilter{ListFilter: domain.ListFilter{Search: "ann", IncludeDeleted: true}, WithBalance: true},
			wantWhere: "WHERE (name ILIKE $1 OR code ILIKE $2 OR phone ILIKE $3) AND current_balance > $4",
			wantArgs:  []any{"%ann%", "%ann%", "%ann%", 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.listQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Contains(t, sql, "FROM cat_customers "+tt.wantWhere)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBaseCatalogRepo_ParseOrderBy(t *testing.T) {
	repo := NewCustomerRepo(nil)

	got, err := repo.parseOrderBy("", "name ASC")
	require.NoError(t, err)
	assert.Equal(t, "name ASC", got)

	got, err = repo.parseOrderBy("-current_balance", "name ASC")
	require.NoError(t, err)
	assert.Equal(t, "current_balance DESC", got)

	got, err = repo.parseOrderBy("+code", "name ASC")
	require.NoError(t, err)
	assert.Equal(t, "code ASC", got)

	_, err = repo.parseOrderBy("name; DROP TABLE cat_customers", "name ASC")
	assert.True(t, apperror.IsValidation(err))

	_, err = repo.parseOrderBy("-", "name ASC")
	assert.True(t, apperror.IsValidation(err))
}

func TestCustomerRepo_Columns(t *testing.T) {
	repo := NewCustomerRepo(nil)
	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at",
		"code", "name", "phone", "email",
		"credit_limit", "current_balance", "deletion_mark",
	}, repo.selectCols)
}
