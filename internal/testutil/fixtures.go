package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	treesql "github.com/pthm/categorytree/sql"
)

// Attribute ids installed by Attributes. They match the development
// fixtures.
const (
	AttrName          int64 = 45
	AttrIsActive      int64 = 46
	AttrDescription   int64 = 47
	AttrURLKey        int64 = 52
	AttrIsAnchor      int64 = 54
	AttrIncludeInMenu int64 = 67
)

// Catalog inserts categories and attribute values for a test.
type Catalog struct {
	tb  testing.TB
	db  *sql.DB
	ctx context.Context
}

// NewCatalog returns a Catalog writing to db. Failures fail tb.
func NewCatalog(tb testing.TB, ctx context.Context, db *sql.DB) *Catalog {
	return &Catalog{tb: tb, db: db, ctx: ctx}
}

// DB returns the database the catalog writes to.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Attributes installs the category attribute metadata.
func (c *Catalog) Attributes() *Catalog {
	c.tb.Helper()
	c.exec(`INSERT INTO eav_attribute (attribute_id, entity_type, attribute_code, backend_type) VALUES
		(41, 'catalog_category', 'path', 'static'),
		($1, 'catalog_category', 'name', 'varchar'),
		($2, 'catalog_category', 'is_active', 'int'),
		($3, 'catalog_category', 'description', 'text'),
		($4, 'catalog_category', 'url_key', 'varchar'),
		($5, 'catalog_category', 'is_anchor', 'int'),
		($6, 'catalog_category', 'include_in_menu', 'int')`,
		AttrName, AttrIsActive, AttrDescription, AttrURLKey, AttrIsAnchor, AttrIncludeInMenu)
	return c
}

// Fixtures loads the development catalog.
func (c *Catalog) Fixtures() *Catalog {
	c.tb.Helper()
	c.exec(treesql.FixturesSQL)
	return c
}

// Category inserts a category at path. The id is the last path segment;
// parent and level are derived from the path.
func (c *Catalog) Category(path string, position int) *Catalog {
	c.tb.Helper()
	segments := strings.Split(path, "/")
	id, err := strconv.ParseInt(segments[len(segments)-1], 10, 64)
	require.NoError(c.tb, err, "category path %q", path)

	var parent int64
	if len(segments) > 1 {
		parent, err = strconv.ParseInt(segments[len(segments)-2], 10, 64)
		require.NoError(c.tb, err, "category path %q", path)
	}

	c.exec(`INSERT INTO catalog_category_entity (entity_id, parent_id, path, level, position)
		VALUES ($1, $2, $3, $4, $5)`, id, parent, path, len(segments)-1, position)
	return c
}

// Name sets the name of id in store.
func (c *Catalog) Name(id, store int64, name string) *Catalog {
	c.tb.Helper()
	return c.Varchar(id, AttrName, store, name)
}

// Active sets is_active of id in the default store.
func (c *Catalog) Active(id int64, active bool) *Catalog {
	c.tb.Helper()
	v := int64(0)
	if active {
		v = 1
	}
	return c.Int(id, AttrIsActive, 0, v)
}

// Int sets an int attribute value.
func (c *Catalog) Int(id, attributeID, store, value int64) *Catalog {
	c.tb.Helper()
	c.value("int", id, attributeID, store, value)
	return c
}

// Varchar sets a varchar attribute value.
func (c *Catalog) Varchar(id, attributeID, store int64, value string) *Catalog {
	c.tb.Helper()
	c.value("varchar", id, attributeID, store, value)
	return c
}

// Text sets a text attribute value.
func (c *Catalog) Text(id, attributeID, store int64, value string) *Catalog {
	c.tb.Helper()
	c.value("text", id, attributeID, store, value)
	return c
}

// URLRewrite adds a request path for a category in store.
func (c *Catalog) URLRewrite(id, store int64, requestPath string) *Catalog {
	c.tb.Helper()
	c.exec(`INSERT INTO url_rewrite (entity_type, entity_id, store_id, request_path)
		VALUES ('category', $1, $2, $3)`, id, store, requestPath)
	return c
}

// Product assigns a product to a category.
func (c *Catalog) Product(categoryID, productID int64) *Catalog {
	c.tb.Helper()
	c.exec(`INSERT INTO catalog_category_product (category_id, product_id) VALUES ($1, $2)`,
		categoryID, productID)
	return c
}

func (c *Catalog) value(backend string, id, attributeID, store int64, value any) {
	c.tb.Helper()
	c.exec(fmt.Sprintf(`INSERT INTO catalog_category_entity_%s (entity_id, attribute_id, store_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id, attribute_id, store_id) DO UPDATE SET value = EXCLUDED.value`, backend),
		id, attributeID, store, value)
}

func (c *Catalog) exec(stmt string, args ...any) {
	c.tb.Helper()
	_, err := c.db.ExecContext(c.ctx, stmt, args...)
	require.NoError(c.tb, err)
}
