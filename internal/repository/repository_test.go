package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColumn(t *testing.T) {
	t.Parallel()

	cases := []struct {
		column string
		valid  bool
	}{
		{"name", true},
		{"documents.created_at", true},
		{"d.hash", true},
		{"name; DROP TABLE documents", false},
		{"name OR 1=1", false},
		{"", false},
	}

	for _, c := range cases {
		err := ValidateColumn(c.column)
		if c.valid {
			assert.NoError(t, err, c.column)
		} else {
			assert.Error(t, err, c.column)
		}
	}
}

func TestSort_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Sort{Column: "name", Direction: Asc}.Validate())
	require.NoError(t, Sort{Column: "created_at", Direction: Desc}.Validate())
	require.Error(t, Sort{Column: "name", Direction: "sideways"}.Validate())
	require.Error(t, Sort{Column: "1=1", Direction: Asc}.Validate())
}

func TestSort_Clause(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "name ASC", Sort{Column: "name", Direction: Asc}.Clause())
	assert.Equal(t, "created_at DESC", Sort{Column: "created_at", Direction: Desc}.Clause())
}

func TestPagination_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Pagination{PerPage: 20, Page: 1}.Validate())
	require.Error(t, Pagination{PerPage: 0, Page: 1}.Validate())
	require.Error(t, Pagination{PerPage: 20, Page: 0}.Validate())
}

func TestPagination_LimitOffset(t *testing.T) {
	t.Parallel()

	limit, offset := Pagination{PerPage: 20, Page: 1}.LimitOffset()
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = Pagination{PerPage: 20, Page: 3}.LimitOffset()
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)
}

func TestSearch_Pattern(t *testing.T) {
	t.Parallel()

	s := Search{Query: "100% off_er", Column: "name"}
	require.NoError(t, s.Validate())
	assert.Equal(t, `%100\% off\_er%`, s.Pattern())
}

func TestSearch_Validate_RejectsBadColumn(t *testing.T) {
	t.Parallel()

	err := Search{Query: "x", Column: "name; --"}.Validate()
	require.Error(t, err)
}

// TestBootstrap_LiveDatabase exercises schema creation against a real
// Postgres instance when one is configured via VECTORKIT_TEST_DSN. It
// is skipped otherwise, matching how this pack tests database code
// without requiring a live server in CI by default.
func TestBootstrap_LiveDatabase(t *testing.T) {
	dsn := os.Getenv("VECTORKIT_TEST_DSN")
	if dsn == "" {
		t.Skip("VECTORKIT_TEST_DSN not set, skipping live database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := New(pool)
	require.NoError(t, repo.Bootstrap(ctx))
}
