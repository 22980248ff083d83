package crud

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Find retrieves the records matching q
func (o *Operations) Find(ctx context.Context, q Query) ([]map[string]interface{}, error) {
	builder := o.builder.Select(o.columns...).From(o.resource.TableName)
	if q.Where != nil {
		builder = builder.Where(q.Where)
	}
	if len(q.OrderBy) > 0 {
		builder = builder.OrderBy(q.OrderBy...)
	} else {
		builder = builder.OrderBy(o.pk.ColumnName() + " ASC")
	}
	if q.Limit > 0 {
		builder = builder.Limit(q.Limit)
	}
	if q.Offset > 0 {
		builder = builder.Offset(q.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", o.resource.TableName, ConvertDBError(err))
	}

	results, err := o.scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan query results: %w", ConvertDBError(err))
	}
	return results, nil
}

// Count returns the number of records matching where (nil counts everything)
func (o *Operations) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	builder := o.builder.Select("COUNT(*)").From(o.resource.TableName)
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int64
	if err := o.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", o.resource.TableName, ConvertDBError(err))
	}
	return count, nil
}

// FindOne returns the first record matching where, or ErrNotFound
func (o *Operations) FindOne(ctx context.Context, where sq.Sqlizer) (map[string]interface{}, error) {
	return o.findOne(ctx, o.db, where)
}

// FindByID retrieves a record by primary key. A non-nil scope further
// restricts the match, so out-of-scope records are reported as ErrNotFound.
func (o *Operations) FindByID(ctx context.Context, id interface{}, scope sq.Sqlizer) (map[string]interface{}, error) {
	return o.findOne(ctx, o.db, o.byID(id, scope))
}

// Exists checks if a record exists by its primary key
func (o *Operations) Exists(ctx context.Context, id interface{}) (bool, error) {
	_, err := o.FindByID(ctx, id, nil)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (o *Operations) findOne(ctx context.Context, q queryer, where sq.Sqlizer) (map[string]interface{}, error) {
	builder := o.builder.Select(o.columns...).From(o.resource.TableName).Limit(1)
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	record, err := o.scanRecord(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", o.resource.Name, ConvertDBError(err))
	}
	return record, nil
}
