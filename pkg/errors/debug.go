package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDiagnostics is the postgres error report, whichever driver produced it.
type PGDiagnostics struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Postgres extracts diagnostics from a pgx or lib/pq error anywhere in the chain.
func Postgres(err error) (PGDiagnostics, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGDiagnostics{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGDiagnostics{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGDiagnostics{}, false
}

// LogFields flattens err for structured logging. Empty postgres fields are
// left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields := map[string]any{
		"error":       err.Error(),
		"error_chain": chain,
	}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}
	if pg, ok := Postgres(err); ok {
		for key, value := range map[string]string{
			"pg_code":       pg.Code,
			"pg_constraint": pg.Constraint,
			"pg_table":      pg.Table,
			"pg_column":     pg.Column,
			"pg_detail":     pg.Detail,
			"pg_message":    pg.Message,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
