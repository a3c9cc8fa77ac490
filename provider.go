package categorytree

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	otelattribute "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/categorytree/internal/attribute"
	"github.com/pthm/categorytree/internal/collection"
	"github.com/pthm/categorytree/internal/joiner"
	"github.com/pthm/categorytree/internal/level"
	"github.com/pthm/categorytree/internal/logging"
	"github.com/pthm/categorytree/internal/metrics"
	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/selection"
	"github.com/pthm/categorytree/internal/treequery"
)

var tracer = otel.Tracer("github.com/pthm/categorytree")

// DefaultGlobalRootID is the conventional id of the tree root.
const DefaultGlobalRootID NodeID = 1

// CollectionProcessor applies search criteria to a query under
// construction. It may add joins, filters and sort orders; filters apply to
// every row, including the requested roots.
type CollectionProcessor interface {
	Process(ctx context.Context, b *QueryBuilder, criteria SearchCriteria, attributeNames []string, scope Scope) error
}

// Provider builds and runs category tree queries.
//
// A Provider holds only configuration and the attribute registry built at
// construction, so it is safe for concurrent use. Each call plans its own
// query; nothing is cached between calls.
type Provider struct {
	exec         Executor
	globalRootID NodeID
	maxDepth     int
	children     string
	processor    CollectionProcessor
	identifiers  IdentifierResolver
	attrs        []Attribute
	attrsSet     bool

	planner *treequery.Planner
}

// Option configures a Provider.
type Option func(*Provider)

// WithGlobalRootID sets the id of the tree root. The global root has level 0
// and is matched by a path pattern anchored at the start of the path.
func WithGlobalRootID(id NodeID) Option {
	return func(p *Provider) {
		p.globalRootID = id
	}
}

// WithMaxSelectionDepth caps how deep nested children selections are
// followed. Deeper nesting is clamped and logged.
func WithMaxSelectionDepth(n int) Option {
	return func(p *Provider) {
		p.maxDepth = n
	}
}

// WithChildrenField renames the relation field that nests child categories.
func WithChildrenField(name string) Option {
	return func(p *Provider) {
		p.children = name
	}
}

// WithCollectionProcessor replaces the default search criteria processor
// used by the filtered variants.
func WithCollectionProcessor(cp CollectionProcessor) Option {
	return func(p *Provider) {
		p.processor = cp
	}
}

// WithIdentifierResolver replaces the resolver naming the category
// identifier column (entity_id by default).
func WithIdentifierResolver(r IdentifierResolver) Option {
	return func(p *Provider) {
		p.identifiers = r
	}
}

// WithAttributes supplies the attribute metadata instead of loading it from
// eav_attribute.
func WithAttributes(attrs []Attribute) Option {
	return func(p *Provider) {
		p.attrs = attrs
		p.attrsSet = true
	}
}

// WithExecutor runs generated statements through e instead of the Querier.
func WithExecutor(e Executor) Option {
	return func(p *Provider) {
		p.exec = e
	}
}

// NewProvider creates a provider reading through q, which may be *sql.DB,
// *sql.Tx or *sql.Conn. Unless WithAttributes is given, the category
// attribute metadata is loaded from the database once, here.
func NewProvider(ctx context.Context, q Querier, opts ...Option) (*Provider, error) {
	p := &Provider{
		globalRootID: DefaultGlobalRootID,
		maxDepth:     selection.DefaultMaxDepth,
		children:     selection.DefaultChildrenField,
		identifiers:  attribute.DefaultIdentifiers(),
	}
	if q != nil {
		p.exec = query.DBExecutor{DB: q}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.exec == nil {
		return nil, fmt.Errorf("%w: no database handle", ErrUnresolvableMetadata)
	}

	idColumn, err := p.identifiers.IdentifierField(attribute.EntityTypeCategory)
	if err != nil {
		return nil, err
	}

	if !p.attrsSet {
		if q == nil {
			return nil, fmt.Errorf("%w: attribute metadata requires a Querier", ErrUnresolvableMetadata)
		}
		if p.attrs, err = LoadAttributes(ctx, q); err != nil {
			return nil, err
		}
	}

	reg := attribute.NewRegistry(idColumn, p.attrs, attribute.WithChildrenField(p.children))
	j := joiner.New(reg, idColumn)
	if p.processor == nil {
		p.processor = collection.NewProcessor(j)
	}
	p.planner = treequery.NewPlanner(
		treequery.Config{
			Table:        attribute.EntityTable,
			IDColumn:     idColumn,
			GlobalRootID: p.globalRootID,
			Selection: []selection.Option{
				selection.WithMaxDepth(p.maxDepth),
				selection.WithChildrenField(p.children),
			},
		},
		j,
		level.NewCalculator(p.exec, attribute.EntityTable, idColumn, p.globalRootID),
	)

	logging.Debug().
		Int64("global_root_id", p.globalRootID).
		Int("attributes", len(p.attrs)).
		Str("identifier", idColumn).
		Msg("category tree provider ready")
	return p, nil
}

// request is one planned call.
type request struct {
	op        string
	shape     string
	sel       Selection
	rootIDs   []NodeID
	scope     Scope
	filtered  bool
	criteria  SearchCriteria
	attrNames []string
}

// GetTree returns rootID and its active descendants, as deep as the
// selection nests children, with the selected attributes resolved for
// storeID. Rows are ordered by level ascending then position descending.
func (p *Provider) GetTree(ctx context.Context, sel Selection, rootID NodeID, storeID int64) iter.Seq2[Row, error] {
	return p.run(ctx, request{
		op:      "GetTree",
		shape:   metrics.ShapeSubtree,
		sel:     sel,
		rootIDs: []NodeID{rootID},
		scope:   Scope{StoreID: storeID},
	})
}

// GetFilteredTree is GetTree with search criteria applied through the
// collection processor. attributeNames are joined into every row in
// addition to the selection.
func (p *Provider) GetFilteredTree(ctx context.Context, sel Selection, rootID NodeID, criteria SearchCriteria, store Store, attributeNames []string) iter.Seq2[Row, error] {
	return p.run(ctx, request{
		op:        "GetFilteredTree",
		shape:     metrics.ShapeSubtree,
		sel:       sel,
		rootIDs:   []NodeID{rootID},
		scope:     store.Scope(),
		filtered:  true,
		criteria:  criteria,
		attrNames: attributeNames,
	})
}

// GetFlatCategoriesByRoots returns the union of the subtrees below rootIDs.
// A category reachable from several roots is returned once. An empty root
// set yields nothing and runs no query.
func (p *Provider) GetFlatCategoriesByRoots(ctx context.Context, sel Selection, rootIDs []NodeID, criteria SearchCriteria, store Store, attributeNames []string) iter.Seq2[Row, error] {
	if len(rootIDs) == 0 {
		return func(func(Row, error) bool) {}
	}
	return p.run(ctx, request{
		op:        "GetFlatCategoriesByRoots",
		shape:     metrics.ShapeMultiRoot,
		sel:       sel,
		rootIDs:   rootIDs,
		scope:     store.Scope(),
		filtered:  true,
		criteria:  criteria,
		attrNames: attributeNames,
	})
}

// SubtreeSQL builds, without running, the statement GetFilteredTree would
// execute. A nil criteria builds the unfiltered GetTree statement.
func (p *Provider) SubtreeSQL(ctx context.Context, sel Selection, rootID NodeID, store Store, criteria *SearchCriteria, attributeNames []string) (Query, error) {
	req := request{
		op:      "SubtreeSQL",
		shape:   metrics.ShapeSubtree,
		sel:     sel,
		rootIDs: []NodeID{rootID},
		scope:   store.Scope(),
	}
	if criteria != nil {
		req.filtered = true
		req.criteria = *criteria
		req.attrNames = attributeNames
	}
	q, err := p.build(ctx, req)
	return q, mapError(req.op, err)
}

// MultiRootSQL builds, without running, the statement
// GetFlatCategoriesByRoots would execute.
func (p *Provider) MultiRootSQL(ctx context.Context, sel Selection, rootIDs []NodeID, store Store, criteria SearchCriteria, attributeNames []string) (Query, error) {
	req := request{
		op:        "MultiRootSQL",
		shape:     metrics.ShapeMultiRoot,
		sel:       sel,
		rootIDs:   rootIDs,
		scope:     store.Scope(),
		filtered:  true,
		criteria:  criteria,
		attrNames: attributeNames,
	}
	q, err := p.build(ctx, req)
	return q, mapError(req.op, err)
}

// BuildSubtreeQuery plans the unfinalized subtree query so callers can
// extend it before calling Finalize.
func (p *Provider) BuildSubtreeQuery(ctx context.Context, sel Selection, rootID NodeID, scope Scope) (*QueryBuilder, error) {
	b, _, err := p.planner.Subtree(ctx, sel, rootID, scope)
	return b, mapError("BuildSubtreeQuery", err)
}

// BuildMultiRootQuery plans the unfinalized multi-root query.
func (p *Provider) BuildMultiRootQuery(ctx context.Context, sel Selection, rootIDs []NodeID, scope Scope) (*QueryBuilder, error) {
	b, _, err := p.planner.MultiRoot(ctx, sel, rootIDs, scope)
	return b, mapError("BuildMultiRootQuery", err)
}

func (p *Provider) build(ctx context.Context, req request) (q Query, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBuild(req.shape, start, err) }()

	var (
		b      *query.Builder
		bounds treequery.Bounds
	)
	if req.shape == metrics.ShapeMultiRoot {
		b, bounds, err = p.planner.MultiRoot(ctx, req.sel, req.rootIDs, req.scope)
	} else {
		b, bounds, err = p.planner.Subtree(ctx, req.sel, req.rootIDs[0], req.scope)
	}
	if err != nil {
		return Query{}, err
	}
	metrics.SelectionDepth.Observe(float64(bounds.Depth))
	trace.SpanFromContext(ctx).SetAttributes(
		otelattribute.Int("categorytree.depth", bounds.Depth),
		otelattribute.Int("categorytree.root_level", bounds.RootLevel),
	)

	if req.filtered {
		if err = p.processor.Process(ctx, b, req.criteria, req.attrNames, req.scope); err != nil {
			return Query{}, err
		}
	}

	if q, err = b.Finalize(); err != nil {
		return Query{}, err
	}
	logging.Ctx(ctx).Debug().
		Str("op", req.op).
		Ints64("roots", req.rootIDs).
		Int("depth", bounds.Depth).
		Int("root_level", bounds.RootLevel).
		Str("sql", q.SQL()).
		Msg("built category tree query")
	return q, nil
}

// run plans and executes req when the sequence is first pulled.
func (p *Provider) run(ctx context.Context, req request) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		ctx, span := tracer.Start(ctx, req.op, trace.WithAttributes(
			otelattribute.Int64Slice("categorytree.root_ids", req.rootIDs),
			otelattribute.Int64("categorytree.store_id", req.scope.StoreID),
		))
		defer span.End()

		fail := func(err error) {
			err = mapError(req.op, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(Row{}, err)
		}

		q, err := p.build(ctx, req)
		if err != nil {
			fail(err)
			return
		}

		var n int
		defer func() {
			metrics.RowsReturned.WithLabelValues(req.shape).Add(float64(n))
			span.SetAttributes(otelattribute.Int("categorytree.rows", n))
		}()
		for row, err := range query.Stream(ctx, p.exec, q, scanRow(q.Columns())) {
			if err != nil {
				fail(err)
				return
			}
			n++
			if !yield(row, nil) {
				return
			}
		}
	}
}

// scanRow reads the core columns into Row and every further column into
// Attributes under its alias.
func scanRow(columns []string) func(Rows) (Row, error) {
	extra := columns[len(treequery.CoreColumns):]
	return func(rows Rows) (Row, error) {
		var (
			r              Row
			parent, anchor sql.NullInt64
		)
		values := make([]any, len(extra))
		dest := make([]any, 0, len(columns))
		dest = append(dest, &r.ID, &parent, &r.Path, &r.Level, &r.Position, &anchor)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return Row{}, err
		}

		r.ParentID = parent.Int64
		r.IsAnchor = anchor.Valid && anchor.Int64 != 0
		r.Attributes = make(map[string]any, len(extra))
		for i, name := range extra {
			if b, ok := values[i].([]byte); ok {
				r.Attributes[name] = string(b)
				continue
			}
			r.Attributes[name] = values[i]
		}
		return r, nil
	}
}
