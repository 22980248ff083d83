package scaffold

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
	"github.com/conduit-lang/scaffold/internal/web/fetch"
	"github.com/conduit-lang/scaffold/internal/web/router"
)

type article struct {
	ID      int64  `db:"id" crud:"primary,auto"`
	Title   string `db:"title" crud:"length=20"`
	Status  string `db:"status" crud:"enum=draft|published"`
	Views   int64  `db:"views" json:"view_count"`
	OwnerID string `db:"owner_id" json:"-"`
}

var (
	articleColumns = []string{"id", "title", "status", "views", "owner_id"}
	selectArticles = "SELECT id, title, status, views, owner_id FROM articles"
	returning      = " RETURNING id, title, status, views, owner_id"
)

func q(s string) string {
	return "^" + regexp.QuoteMeta(s) + "$"
}

func ownerScope(r *http.Request) (sq.Sqlizer, error) {
	return sq.Eq{"owner_id": "ada"}, nil
}

func newStore(t *testing.T) (*crud.Operations, sqlmock.Sqlmock) {
	t.Helper()
	resource, err := schema.FromStruct("Article", article{})
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	ops, err := crud.NewOperations(resource, db, crud.Options{})
	require.NoError(t, err)
	return ops, mock
}

func mount(t *testing.T, cfg Config) (*router.Router, *Resource, sqlmock.Sqlmock) {
	t.Helper()
	store, mock := newStore(t)
	if cfg.Cache == nil {
		cfg.Cache = dto.NewCache()
	}

	r := router.NewRouter()
	router.SetupDefaultErrorHandlers(r)
	res, err := Mount(r, store, cfg)
	require.NoError(t, err)
	return r, res, mock
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func articleRows() *sqlmock.Rows {
	return sqlmock.NewRows(articleColumns)
}

func TestListPaginated(t *testing.T) {
	r, _, mock := mount(t, Config{Paginate: true, Scope: ownerScope})

	mock.ExpectQuery(q("SELECT COUNT(*) FROM articles WHERE ((status = ?) AND owner_id = ?)")).
		WithArgs("draft", "ada").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery(q(selectArticles+" WHERE ((status = ?) AND owner_id = ?) ORDER BY views DESC, id ASC LIMIT 2 OFFSET 2")).
		WithArgs("draft", "ada").
		WillReturnRows(articleRows().
			AddRow(int64(3), "Third", "draft", int64(9), "ada").
			AddRow(int64(4), "Fourth", "draft", int64(4), "ada"))

	rec := do(r, http.MethodGet, "/articles?status=draft&page=2&limit=2&sort=-view_count", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Data       []map[string]interface{}
		Page       int64
		Limit      int64
		Total      int64
		TotalPages int64
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 2, page.Page)
	assert.EqualValues(t, 2, page.Limit)
	assert.EqualValues(t, 5, page.Total)
	assert.EqualValues(t, 3, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Third", page.Data[0]["title"])
	assert.EqualValues(t, 9, page.Data[0]["view_count"])
	assert.NotContains(t, page.Data[0], "owner_id")
	assert.Contains(t, rec.Body.String(), `"totalPages":3`)
}

func TestListClampsLimit(t *testing.T) {
	r, _, mock := mount(t, Config{Paginate: true, DefaultLimit: 5, MaxLimit: 10})

	mock.ExpectQuery(q("SELECT COUNT(*) FROM articles")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(q(selectArticles + " ORDER BY id ASC LIMIT 10")).
		WillReturnRows(articleRows())

	rec := do(r, http.MethodGet, "/articles?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"page":1,"limit":10,"total":0,"totalPages":0}`, rec.Body.String())
}

func TestListUnpaginated(t *testing.T) {
	r, _, mock := mount(t, Config{Sort: []string{"title"}})

	mock.ExpectQuery(q(selectArticles+" WHERE (title LIKE ? ESCAPE '\\' AND views BETWEEN ? AND ?) ORDER BY title ASC, id ASC")).
		WithArgs("%50\\%%", int64(1), int64(10)).
		WillReturnRows(articleRows().AddRow(int64(1), "50% off", "published", int64(2), "bob"))

	rec := do(r, http.MethodGet, "/articles?view_count.min=1&view_count.max=10&title.contains=50%25", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "50% off", records[0]["title"])
}

func TestListInvalidFilter(t *testing.T) {
	r, _, _ := mount(t, Config{})

	rec := do(r, http.MethodGet, "/articles?view_count=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/articles?sort=owner_id", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/articles?page=9223372036854775807&limit=100", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShow(t *testing.T) {
	r, _, mock := mount(t, Config{Scope: ownerScope})

	mock.ExpectQuery(q(selectArticles+" WHERE (id = ? AND owner_id = ?) LIMIT 1")).
		WithArgs(int64(7), "ada").
		WillReturnRows(articleRows().AddRow(int64(7), "Seven", "draft", int64(1), "ada"))
	mock.ExpectQuery(q(selectArticles+" WHERE (id = ? AND owner_id = ?) LIMIT 1")).
		WithArgs(int64(8), "ada").
		WillReturnRows(articleRows())

	rec := do(r, http.MethodGet, "/articles/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"title":"Seven","status":"draft","view_count":1}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/articles/8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/articles/eight", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate(t *testing.T) {
	r, _, mock := mount(t, Config{
		Defaults: func(*http.Request) map[string]interface{} {
			return map[string]interface{}{"status": "draft"}
		},
		Persist: func(*http.Request) map[string]interface{} {
			return map[string]interface{}{"owner_id": "ada"}
		},
	})

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO articles (title,status,views,owner_id) VALUES (?,?,?,?)"+returning)).
		WithArgs("Hello", "draft", int64(3), "ada").
		WillReturnRows(articleRows().AddRow(int64(11), "Hello", "draft", int64(3), "ada"))
	mock.ExpectCommit()

	rec := do(r, http.MethodPost, "/articles", `{"title":"Hello","view_count":3,"id":99,"unknown":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":11,"title":"Hello","status":"draft","view_count":3}`, rec.Body.String())
}

func TestCreateValidation(t *testing.T) {
	r, _, _ := mount(t, Config{})

	rec := do(r, http.MethodPost, "/articles", `{"title":"a title that is far too long","status":"archived"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Fields map[string][]string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "title")
	assert.Contains(t, body.Fields, "status")
	assert.Contains(t, body.Fields, "view_count")

	rec = do(r, http.MethodPost, "/articles", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDuplicate(t *testing.T) {
	r, _, mock := mount(t, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO articles (title,status,views) VALUES (?,?,?)" + returning)).
		WillReturnError(crud.ErrUniqueViolation)
	mock.ExpectRollback()

	rec := do(r, http.MethodPost, "/articles", `{"title":"Hello","status":"draft","view_count":0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestImport(t *testing.T) {
	r, _, mock := mount(t, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO articles (title,status,views) VALUES (?,?,?)"+returning)).
		WithArgs("One", "draft", int64(1)).
		WillReturnRows(articleRows().AddRow(int64(1), "One", "draft", int64(1), nil))
	mock.ExpectQuery(q("INSERT INTO articles (title,status,views) VALUES (?,?,?)"+returning)).
		WithArgs("Two", "published", int64(2)).
		WillReturnRows(articleRows().AddRow(int64(2), "Two", "published", int64(2), nil))
	mock.ExpectCommit()

	rec := do(r, http.MethodPost, "/articles/import",
		`[{"title":"One","status":"draft","view_count":1},{"title":"Two","status":"published","view_count":2}]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Two", records[1]["title"])
}

func TestImportRejectsInvalidRows(t *testing.T) {
	r, _, _ := mount(t, Config{})

	rec := do(r, http.MethodPost, "/articles/import",
		`[{"title":"One","status":"draft","view_count":1},{"title":"Two","status":"gone","view_count":2}]`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "[1].status")

	rec = do(r, http.MethodPost, "/articles/import", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/articles/import", `{"title":"One"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdate(t *testing.T) {
	r, _, mock := mount(t, Config{
		Scope: ownerScope,
		Persist: func(*http.Request) map[string]interface{} {
			return map[string]interface{}{"owner_id": "ada"}
		},
	})

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectArticles+" WHERE (id = ? AND owner_id = ?) LIMIT 1")).
		WithArgs(int64(7), "ada").
		WillReturnRows(articleRows().AddRow(int64(7), "Seven", "draft", int64(1), "ada"))
	mock.ExpectQuery(q("UPDATE articles SET owner_id = ?, views = ? WHERE (id = ? AND owner_id = ?)"+returning)).
		WithArgs("ada", int64(10), int64(7), "ada").
		WillReturnRows(articleRows().AddRow(int64(7), "Seven", "draft", int64(10), "ada"))
	mock.ExpectCommit()

	rec := do(r, http.MethodPatch, "/articles/7", `{"view_count":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":7,"title":"Seven","status":"draft","view_count":10}`, rec.Body.String())
}

func TestUpdateNotFound(t *testing.T) {
	r, _, mock := mount(t, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectArticles + " WHERE id = ? LIMIT 1")).
		WithArgs(int64(404)).
		WillReturnRows(articleRows())
	mock.ExpectRollback()

	rec := do(r, http.MethodPatch, "/articles/404", `{"title":"Nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Article not found")
}

func TestReplaceRequiresFullBody(t *testing.T) {
	r, _, mock := mount(t, Config{})

	rec := do(r, http.MethodPut, "/articles/7", `{"title":"Only a title"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectArticles + " WHERE id = ? LIMIT 1")).
		WithArgs(int64(7)).
		WillReturnRows(articleRows().AddRow(int64(7), "Seven", "draft", int64(1), nil))
	mock.ExpectQuery(q("UPDATE articles SET status = ?, title = ?, views = ? WHERE id = ?"+returning)).
		WithArgs("published", "New", int64(0), int64(7)).
		WillReturnRows(articleRows().AddRow(int64(7), "New", "published", int64(0), nil))
	mock.ExpectCommit()

	rec = do(r, http.MethodPut, "/articles/7", `{"title":"New","status":"published","view_count":0}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDelete(t *testing.T) {
	r, _, mock := mount(t, Config{Scope: ownerScope})

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectArticles+" WHERE (id = ? AND owner_id = ?) LIMIT 1")).
		WithArgs(int64(7), "ada").
		WillReturnRows(articleRows().AddRow(int64(7), "Seven", "draft", int64(1), "ada"))
	mock.ExpectExec(q("DELETE FROM articles WHERE (id = ? AND owner_id = ?)")).
		WithArgs(int64(7), "ada").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(q(selectArticles+" WHERE (id = ? AND owner_id = ?) LIMIT 1")).
		WithArgs(int64(7), "ada").
		WillReturnRows(articleRows())
	mock.ExpectRollback()

	rec := do(r, http.MethodDelete, "/articles/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(r, http.MethodDelete, "/articles/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportJSON(t *testing.T) {
	r, _, mock := mount(t, Config{ExportBatchSize: 2})

	mock.ExpectQuery(q(selectArticles+" WHERE (status = ?) ORDER BY id ASC LIMIT 2")).
		WithArgs("draft").
		WillReturnRows(articleRows().
			AddRow(int64(1), "One", "draft", int64(1), nil).
			AddRow(int64(2), "Two", "draft", int64(2), nil))
	mock.ExpectQuery(q(selectArticles+" WHERE (status = ?) ORDER BY id ASC LIMIT 2 OFFSET 2")).
		WithArgs("draft").
		WillReturnRows(articleRows().
			AddRow(int64(3), "Three", "draft", int64(3), nil))

	rec := do(r, http.MethodGet, "/articles/export?status=draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 3)
	for i, title := range []string{"One", "Two", "Three"} {
		assert.Equal(t, title, records[i]["title"])
	}
}

func TestExportCSV(t *testing.T) {
	r, _, mock := mount(t, Config{ExportBatchSize: 10})

	mock.ExpectQuery(q(selectArticles + " ORDER BY id ASC LIMIT 10")).
		WillReturnRows(articleRows().
			AddRow(int64(1), "One, with comma", "draft", int64(1), "ada").
			AddRow(int64(2), "Two", "published", int64(2), "bob"))

	req := httptest.NewRequest(http.MethodGet, "/articles/export", nil)
	req.Header.Set("Accept", "text/html, text/csv;q=0.9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id,title,status,view_count\n1,\"One, with comma\",draft,1\n2,Two,published,2\n", rec.Body.String())
}

func TestExportStopsWhenClientIsGone(t *testing.T) {
	r, _, _ := mount(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/articles/export", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Empty(t, rec.Body.String())
}

func TestExportFailureBeforeFirstBatch(t *testing.T) {
	r, _, mock := mount(t, Config{})

	mock.ExpectQuery(q(selectArticles + " ORDER BY id ASC LIMIT 500")).
		WillReturnError(assert.AnError)

	rec := do(r, http.MethodGet, "/articles/export", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestDisabledOperationsAndOverrides(t *testing.T) {
	var entity map[string]interface{}
	r, res, mock := mount(t, Config{
		Disable: []router.CRUDOperation{router.OpDelete, router.OpImport, router.OpExport},
		Overrides: router.ResourceHandlers{
			router.OpList: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("custom list"))
			}),
			router.OpShow: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				entity, _ = fetch.FromContext(r.Context())
				w.WriteHeader(http.StatusAccepted)
			}),
		},
	})

	assert.False(t, res.Enabled(router.OpDelete))
	assert.True(t, res.Enabled(router.OpList))
	assert.Len(t, res.Handlers(), 5)

	_, err := r.GetRoute("Article.import")
	assert.Error(t, err)

	rec := do(r, http.MethodDelete, "/articles/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(r, http.MethodGet, "/articles", "")
	assert.Equal(t, "custom list", rec.Body.String())

	mock.ExpectQuery(q(selectArticles + " WHERE id = ? LIMIT 1")).
		WithArgs(int64(1)).
		WillReturnRows(articleRows().AddRow(int64(1), "One", "draft", int64(1), nil))

	rec = do(r, http.MethodGet, "/articles/1", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "One", entity["title"])
}

func TestMountErrors(t *testing.T) {
	store, _ := newStore(t)

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown operation", Config{Operations: []router.CRUDOperation{router.CRUDOperation(99)}}, "unknown operation"},
		{"unknown disabled operation", Config{Disable: []router.CRUDOperation{router.CRUDOperation(99)}}, "unknown operation"},
		{"bad default sort", Config{Sort: []string{"owner_id"}}, "default sort"},
		{"unknown filter", Config{Filters: []string{"missing"}}, "no exposed field"},
		{"bad base path", Config{BasePath: "articles"}, "base path"},
		{"bad exclude", Config{Shape: dto.Options{Exclude: []string{"nope"}}}, "exclude"},
		{"override for unknown operation", Config{Overrides: router.ResourceHandlers{router.CRUDOperation(99): http.NotFoundHandler()}}, "unknown operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Cache = dto.NewCache()
			_, err := Mount(router.NewRouter(), store, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Mount(nil, store, Config{})
	assert.ErrorContains(t, err, "router is required")

	_, err = Mount(router.NewRouter(), nil, Config{})
	assert.ErrorContains(t, err, "store is required")
}

func TestCustomShapes(t *testing.T) {
	store, _ := newStore(t)
	create, err := dto.Derive(store.Resource(), dto.Options{Exclude: []string{"status"}})
	require.NoError(t, err)

	res, err := New(store, Config{CreateShape: create, Cache: dto.NewCache()})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "view_count"}, res.Shapes().Create.Names())
	assert.Equal(t, "UpdateArticle", res.Shapes().Update.Name)
	assert.True(t, res.Shapes().Update.Optional)
}
