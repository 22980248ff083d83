package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conduit-lang/scaffold/internal/orm/events"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// Create inserts a record and returns it as stored
func (o *Operations) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := o.withTx(ctx, func(tx *sql.Tx) error {
		record, err := o.createInTx(ctx, tx, data)
		if err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.emit(ctx, events.Created, result[o.pk.Name], result, nil)
	return result, nil
}

// CreateMany inserts all records in one transaction. Either every record is
// stored or none is.
func (o *Operations) CreateMany(ctx context.Context, rows []map[string]interface{}) ([]map[string]interface{}, error) {
	results := make([]map[string]interface{}, 0, len(rows))
	err := o.withTx(ctx, func(tx *sql.Tx) error {
		for i, data := range rows {
			record, err := o.createInTx(ctx, tx, data)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results = append(results, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, record := range results {
		o.emit(ctx, events.Created, record[o.pk.Name], record, nil)
	}
	return results, nil
}

// createInTx creates a record within a transaction
func (o *Operations) createInTx(ctx context.Context, tx *sql.Tx, data map[string]interface{}) (map[string]interface{}, error) {
	// Make a copy to avoid mutating input
	record := make(map[string]interface{}, len(data))
	for k, v := range data {
		record[k] = v
	}

	o.populateAutoFields(record, OperationCreate)

	if err := o.checkReferences(ctx, tx, record); err != nil {
		return nil, err
	}

	inserted, err := o.insertRecord(ctx, tx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", o.resource.Name, ConvertDBError(err))
	}
	return inserted, nil
}

// insertRecord inserts a record into the database
func (o *Operations) insertRecord(ctx context.Context, tx *sql.Tx, data map[string]interface{}) (map[string]interface{}, error) {
	var columns []string
	var values []interface{}
	for _, field := range o.resource.OrderedFields() {
		value, ok := data[field.Name]
		if !ok {
			continue
		}
		converted, err := toColumn(field, value)
		if err != nil {
			return nil, err
		}
		columns = append(columns, field.ColumnName())
		values = append(values, converted)
	}

	returning := "RETURNING " + strings.Join(o.columns, ", ")

	var query string
	var args []interface{}
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES %s", o.resource.TableName, returning)
	} else {
		var err error
		query, args, err = o.builder.
			Insert(o.resource.TableName).
			Columns(columns...).
			Values(values...).
			Suffix(returning).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert: %w", err)
		}
	}

	return o.scanRecord(tx.QueryRowContext(ctx, query, args...))
}

// populateAutoFields fills generated primary keys and timestamps
func (o *Operations) populateAutoFields(record map[string]interface{}, operation Operation) {
	ts := now()

	for _, field := range o.resource.OrderedFields() {
		_, exists := record[field.Name]

		if operation == OperationCreate && field.IsPrimary() && field.IsAuto() && !exists {
			// Integer keys are left to the database sequence
			if field.Type.BaseType == schema.TypeUUID {
				record[field.Name] = uuid.New()
			}
			continue
		}

		if field.Type.BaseType != schema.TypeTimestamp {
			continue
		}
		switch field.Name {
		case "created_at":
			if operation == OperationCreate && !exists {
				record[field.Name] = ts
			}
		case "updated_at":
			if operation == OperationUpdate || !exists {
				record[field.Name] = ts
			}
		}
	}
}
