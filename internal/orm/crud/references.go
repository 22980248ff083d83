package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// checkReferences verifies every belongs_to value in data points at an
// existing record. Without a registry the database constraints are the only check.
func (o *Operations) checkReferences(ctx context.Context, q queryer, data map[string]interface{}) error {
	if o.registry == nil {
		return nil
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := data[name]
		if value == nil {
			continue
		}
		rel, ok := o.resource.ForeignKeyRelationship(name)
		if !ok {
			continue
		}
		target, ok := o.registry.Get(rel.TargetResource)
		if !ok {
			return fmt.Errorf("%s.%s references unknown resource %s", o.resource.Name, name, rel.TargetResource)
		}
		targetPK, err := target.GetPrimaryKey()
		if err != nil {
			return err
		}

		key, err := referenceKey(targetPK, value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidReference, name, err)
		}

		query, args, err := o.builder.
			Select("1").
			From(target.TableName).
			Where(sq.Eq{targetPK.ColumnName(): key}).
			Limit(1).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}

		var one int
		err = q.QueryRowContext(ctx, query, args...).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s %v", ErrRelatedNotFound, rel.TargetResource, value)
		}
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", name, ConvertDBError(err))
		}
	}
	return nil
}

// referenceKey checks that value can identify a record keyed by pk
func referenceKey(pk *schema.Field, value interface{}) (interface{}, error) {
	switch {
	case pk.Type.IsInteger():
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		}
		return nil, fmt.Errorf("expected an integer, got %T", value)

	case pk.Type.BaseType == schema.TypeUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("%q is not a uuid", v)
			}
			return id, nil
		}
		return nil, fmt.Errorf("expected a uuid, got %T", value)

	case pk.Type.IsText():
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	return value, nil
}
