package scaffold

import (
	"fmt"
	"net/http"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/web/fetch"
	"github.com/conduit-lang/scaffold/internal/web/query"
	"github.com/conduit-lang/scaffold/internal/web/response"
	"github.com/conduit-lang/scaffold/internal/web/router"
)

// list handles GET / with filters, sorting and optional pagination
func (r *Resource) list(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	values := req.URL.Query()

	where, order, err := r.selection(req)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpList))
		return
	}

	if !r.cfg.Paginate {
		records, err := r.store.Find(ctx, crud.Query{Where: where, OrderBy: order})
		if err != nil {
			response.Error(w, err, r.log(req, router.OpList))
			return
		}
		response.JSON(w, http.StatusOK, r.names.ExposeRecords(records))
		return
	}

	page, err := query.ParsePage(values, r.cfg.DefaultLimit, r.cfg.MaxLimit)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpList))
		return
	}

	total, err := r.store.Count(ctx, where)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpList))
		return
	}

	records, err := r.store.Find(ctx, crud.Query{
		Where:   where,
		OrderBy: order,
		Limit:   uint64(page.Limit),
		Offset:  uint64(page.Offset()),
	})
	if err != nil {
		response.Error(w, err, r.log(req, router.OpList))
		return
	}

	response.JSON(w, http.StatusOK, &response.Page{
		Data:       r.names.ExposeRecords(records),
		Page:       int64(page.Number),
		Limit:      int64(page.Limit),
		Total:      total,
		TotalPages: page.TotalPages(total),
	})
}

// show handles GET /{id}; the record was loaded by the fetch middleware
func (r *Resource) show(w http.ResponseWriter, req *http.Request) {
	response.JSON(w, http.StatusOK, r.names.ExposeRecord(fetch.MustFromContext(req.Context())))
}

// create handles POST /
func (r *Resource) create(w http.ResponseWriter, req *http.Request) {
	body, err := r.cfg.Parser.Object(w, req)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpCreate))
		return
	}

	data, err := r.shapes.Create.Decode(r.withDefaults(req, body))
	if err != nil {
		response.Error(w, err, r.log(req, router.OpCreate))
		return
	}

	record, err := r.store.Create(req.Context(), r.withPersisted(req, data))
	if err != nil {
		response.Error(w, err, r.log(req, router.OpCreate))
		return
	}

	response.JSON(w, http.StatusCreated, r.names.ExposeRecord(record))
}

// importMany handles POST /import. Every row is validated before anything
// is written, and all rows are inserted in one transaction.
func (r *Resource) importMany(w http.ResponseWriter, req *http.Request) {
	rows, err := r.cfg.Parser.Array(w, req)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpImport))
		return
	}
	if len(rows) == 0 {
		response.Error(w, fmt.Errorf("%w: import needs at least one record", response.ErrBadRequest), nil)
		return
	}

	for i, row := range rows {
		rows[i] = r.withDefaults(req, row)
	}
	data, err := r.shapes.Create.DecodeMany(rows)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpImport))
		return
	}
	for i, row := range data {
		data[i] = r.withPersisted(req, row)
	}

	records, err := r.store.CreateMany(req.Context(), data)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpImport))
		return
	}

	r.log(req, router.OpImport).Debug("imported records", zap.Int("count", len(records)))
	response.JSON(w, http.StatusCreated, r.names.ExposeRecords(records))
}

// replace handles PUT /{id}: the body must satisfy the create shape
func (r *Resource) replace(w http.ResponseWriter, req *http.Request) {
	r.write(w, req, router.OpReplace, r.shapes.Create)
}

// update handles PATCH /{id}: only the members present are changed
func (r *Resource) update(w http.ResponseWriter, req *http.Request) {
	r.write(w, req, router.OpUpdate, r.shapes.Update)
}

func (r *Resource) write(w http.ResponseWriter, req *http.Request, op router.CRUDOperation, shape *dto.Shape) {
	id, err := r.store.ParseID(chi.URLParam(req, r.def.IDParamName))
	if err != nil {
		response.Error(w, err, r.log(req, op))
		return
	}

	body, err := r.cfg.Parser.Object(w, req)
	if err != nil {
		response.Error(w, err, r.log(req, op))
		return
	}

	data, err := shape.Decode(body)
	if err != nil {
		response.Error(w, err, r.log(req, op))
		return
	}

	scope, err := r.scope(req)
	if err != nil {
		response.Error(w, err, r.log(req, op))
		return
	}

	record, err := r.store.Update(req.Context(), id, r.withPersisted(req, data), scope)
	if err != nil {
		r.notFoundOr(w, req, op, err)
		return
	}

	response.JSON(w, http.StatusOK, r.names.ExposeRecord(record))
}

// remove handles DELETE /{id}
func (r *Resource) remove(w http.ResponseWriter, req *http.Request) {
	id, err := r.store.ParseID(chi.URLParam(req, r.def.IDParamName))
	if err != nil {
		response.Error(w, err, r.log(req, router.OpDelete))
		return
	}

	scope, err := r.scope(req)
	if err != nil {
		response.Error(w, err, r.log(req, router.OpDelete))
		return
	}

	if _, err := r.store.Delete(req.Context(), id, scope); err != nil {
		r.notFoundOr(w, req, router.OpDelete, err)
		return
	}

	response.NoContent(w)
}

func (r *Resource) notFoundOr(w http.ResponseWriter, req *http.Request, op router.CRUDOperation, err error) {
	if crud.IsNotFound(err) {
		response.RenderNotFound(w, fmt.Sprintf("%s not found", r.def.Name))
		return
	}
	response.Error(w, err, r.log(req, op))
}

// selection parses the filter and sort of a list or export request and
// combines the filter with the scope
func (r *Resource) selection(req *http.Request) (sq.Sqlizer, []string, error) {
	values := req.URL.Query()

	filter, err := r.filters.Parse(values)
	if err != nil {
		return nil, nil, err
	}
	scope, err := r.scope(req)
	if err != nil {
		return nil, nil, err
	}
	terms, err := r.filters.ParseSort(values, r.sort)
	if err != nil {
		return nil, nil, err
	}

	return and(filter.Sqlizer(), scope), r.orderBy(terms), nil
}

// withDefaults fills absent body members from Config.Defaults
func (r *Resource) withDefaults(req *http.Request, body map[string]interface{}) map[string]interface{} {
	if r.cfg.Defaults == nil {
		return body
	}
	for name, value := range r.cfg.Defaults(req) {
		if _, present := body[name]; !present {
			body[name] = value
		}
	}
	return body
}

// withPersisted overwrites decoded values with Config.Persist
func (r *Resource) withPersisted(req *http.Request, data map[string]interface{}) map[string]interface{} {
	if r.cfg.Persist == nil {
		return data
	}
	for name, value := range r.cfg.Persist(req) {
		data[name] = value
	}
	return data
}
