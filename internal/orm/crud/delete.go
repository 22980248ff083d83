package crud

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/scaffold/internal/orm/events"
)

// Delete removes the record with the primary key id and returns it.
// Returns ErrNotFound when no record matches id within scope.
func (o *Operations) Delete(ctx context.Context, id interface{}, scope sq.Sqlizer) (map[string]interface{}, error) {
	var deleted map[string]interface{}
	err := o.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := o.findOne(ctx, tx, o.byID(id, scope))
		if err != nil {
			return err
		}

		query, args, err := o.builder.
			Delete(o.resource.TableName).
			Where(o.byID(id, scope)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", o.resource.Name, ConvertDBError(err))
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}

		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.Deleted, id, deleted, nil)
	return deleted, nil
}
