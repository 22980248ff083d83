package schema

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt" crud:"auto"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt" crud:"auto"`
}

type article struct {
	ID        int64          `db:"id" crud:"primary,auto"`
	Title     string         `db:"title" crud:"length=120"`
	Body      sql.NullString `db:"body"`
	Status    string         `db:"status" crud:"enum=draft|published"`
	AuthorID  uuid.UUID      `db:"author_id" crud:"belongs_to=Author"`
	Rating    *float64       `db:"rating"`
	Tags      []string       `db:"tags"`
	Secret    string         `db:"secret" json:"-"`
	Slug      string         `db:"slug" crud:"readonly,unique,doc=URL slug"`
	Ignored   string         `db:"-"`
	internal  string
	timestamps
}

type legacyAccount struct {
	Key  string `db:"account_key" crud:"primary"`
	Mail string `crud:"type=email"`
}

func (legacyAccount) TableName() string { return "tbl_accounts" }

func TestFromStruct(t *testing.T) {
	resource, err := FromStruct("Article", &article{})
	require.NoError(t, err)

	assert.Equal(t, "articles", resource.TableName)
	assert.Equal(t,
		[]string{"id", "title", "body", "status", "author_id", "rating", "tags", "secret", "slug", "created_at", "updated_at"},
		resource.FieldOrder)

	pk, err := resource.GetPrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "id", pk.Name)
	assert.Equal(t, TypeBigInt, pk.Type.BaseType)
	assert.True(t, pk.IsAuto())

	title := resource.Fields["title"]
	require.NotNil(t, title.Type.Length)
	assert.Equal(t, 120, *title.Type.Length)

	assert.True(t, resource.Fields["body"].Type.Nullable)
	assert.Equal(t, TypeString, resource.Fields["body"].Type.BaseType)

	status := resource.Fields["status"]
	assert.Equal(t, TypeEnum, status.Type.BaseType)
	assert.Equal(t, []string{"draft", "published"}, status.Type.EnumValues)

	assert.Equal(t, TypeUUID, resource.Fields["author_id"].Type.BaseType)
	rel, ok := resource.ForeignKeyRelationship("author_id")
	require.True(t, ok)
	assert.Equal(t, "Author", rel.TargetResource)
	assert.Equal(t, "author", rel.FieldName)

	assert.True(t, resource.Fields["rating"].Type.Nullable)
	assert.Equal(t, TypeFloat, resource.Fields["rating"].Type.BaseType)

	tags := resource.Fields["tags"]
	assert.Equal(t, TypeArray, tags.Type.BaseType)
	assert.Equal(t, TypeString, tags.Type.ArrayElement.BaseType)

	assert.True(t, resource.Fields["secret"].IsHidden())
	assert.True(t, resource.Fields["slug"].IsReadonly())
	assert.True(t, resource.Fields["slug"].HasAnnotation(AnnotationUnique))
	assert.Equal(t, "URL slug", resource.Fields["slug"].Documentation)

	assert.Equal(t, "createdAt", resource.Fields["created_at"].PublicName())

	require.NoError(t, NewSchemaValidator().ValidateStructural(resource))
}

func TestFromStructTableNameAndTypes(t *testing.T) {
	resource, err := FromStruct("", legacyAccount{})
	require.NoError(t, err)

	assert.Equal(t, "legacyAccount", resource.Name)
	assert.Equal(t, "tbl_accounts", resource.TableName)
	assert.Equal(t, TypeEmail, resource.Fields["mail"].Type.BaseType)
}

func TestFromStructErrors(t *testing.T) {
	_, err := FromStruct("Bad", 42)
	assert.Error(t, err)

	_, err = FromStruct("Bad", nil)
	assert.Error(t, err)

	type badTag struct {
		ID int `crud:"primary,sparkly"`
	}
	_, err = FromStruct("Bad", badTag{})
	assert.ErrorContains(t, err, "sparkly")

	type badChan struct {
		ID int      `crud:"primary"`
		C  chan int `db:"c"`
	}
	_, err = FromStruct("Bad", badChan{})
	assert.ErrorContains(t, err, "unsupported")
}
