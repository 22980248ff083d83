package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/scaffold/internal/orm/events"
)

// Update sets the given fields on the record with the primary key id.
// Fields not present in data keep their value; the primary key never changes.
// Returns ErrNotFound when no record matches id within scope.
func (o *Operations) Update(ctx context.Context, id interface{}, data map[string]interface{}, scope sq.Sqlizer) (map[string]interface{}, error) {
	var result, previous map[string]interface{}
	err := o.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := o.findOne(ctx, tx, o.byID(id, scope))
		if err != nil {
			return err
		}
		previous = existing

		updated, err := o.updateInTx(ctx, tx, id, data, scope)
		if err != nil {
			return err
		}
		if updated == nil {
			updated = existing
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.Updated, id, result, previous)
	return result, nil
}

// updateInTx updates a record within a transaction. A nil record means there
// was nothing to write.
func (o *Operations) updateInTx(ctx context.Context, tx *sql.Tx, id interface{}, data map[string]interface{}, scope sq.Sqlizer) (map[string]interface{}, error) {
	changes := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == o.pk.Name {
			continue
		}
		if _, ok := o.resource.Fields[k]; ok {
			changes[k] = v
		}
	}
	if len(changes) == 0 {
		return nil, nil
	}

	if err := o.checkReferences(ctx, tx, changes); err != nil {
		return nil, err
	}
	o.populateAutoFields(changes, OperationUpdate)

	clauses := make(map[string]interface{}, len(changes))
	for name, value := range changes {
		field := o.resource.Fields[name]
		converted, err := toColumn(field, value)
		if err != nil {
			return nil, err
		}
		clauses[field.ColumnName()] = converted
	}

	query, args, err := o.builder.
		Update(o.resource.TableName).
		SetMap(clauses).
		Where(o.byID(id, scope)).
		Suffix("RETURNING " + strings.Join(o.columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	updated, err := o.scanRecord(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", o.resource.Name, ConvertDBError(err))
	}
	return updated, nil
}
