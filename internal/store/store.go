package store

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/justxchange/go-backend/internal/model"
)

// Open connects to the backing store and returns a bun handle.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	if err := sqldb.Ping(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reach database")
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Init creates the schema when absent. Unique constraints declared on the
// models (mobile_number, chat product/buyer pair) ride along with the tables.
func Init(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*model.User)(nil),
		(*model.Product)(nil),
		(*model.Chat)(nil),
		(*model.Message)(nil),
		(*model.Notification)(nil),
	}

	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	return nil
}
