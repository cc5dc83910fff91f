// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pg

import (
	"context"
	"database/sql"
	"errors"

	"cruddemo/core/crud/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stephenafamo/bob"
)

// Table describes how an entity maps onto its table. The entity's struct
// fields must carry db tags matching the column names.
type Table struct {
	Name string
	// Columns are written on insert and update; "id" is generated and excluded.
	Columns []string
	// Attributes maps filterable JSON attribute names to columns.
	Attributes map[string]string
}

func (t Table) selectColumns() []any {
	cols := make([]any, 0, len(t.Columns)+1)
	cols = append(cols, "id")
	for _, c := range t.Columns {
		cols = append(cols, c)
	}
	return cols
}

type idArg struct {
	ID int `db:"id"`
}

// wrapError maps driver errors onto domain errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", // not_null_violation
			"23514", // check_violation
			"22001": // string_data_right_truncation
			field := pgErr.ColumnName
			if field == "" {
				field = pgErr.ConstraintName
			}
			return &domain.FieldError{Field: field, Reason: pgErr.Message, Err: domain.ErrInvalidData}
		}
	}
	return err
}

// inTxQueryStmt rebinds a prepared statement to a transaction.
func inTxQueryStmt[Arg any, T any, Ts ~[]T](
	ctx context.Context,
	stmt bob.QueryStmt[Arg, T, Ts],
	tx bob.Tx,
) bob.QueryStmt[Arg, T, Ts] {
	txStmt := stmt
	txStmt.Stmt = bob.InTx(ctx, stmt.Stmt, tx)
	return txStmt
}
