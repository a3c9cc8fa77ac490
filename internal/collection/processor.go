package collection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/pthm/categorytree/internal/joiner"
	"github.com/pthm/categorytree/internal/logging"
	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/sqlgen/sqldsl"
	"github.com/pthm/categorytree/internal/treeerr"
)

// ErrUnsupportedCondition is returned for filter conditions the processor
// does not implement.
var ErrUnsupportedCondition = errors.New("categorytree: unsupported filter condition")

// FieldResolver joins attributes on demand.
type FieldResolver interface {
	Value(b *query.Builder, name string, scope joiner.Scope) (sqldsl.Expr, error)
	Select(b *query.Builder, name string, scope joiner.Scope) (sqldsl.Expr, error)
}

// Processor applies SearchCriteria through the attribute joiner.
type Processor struct {
	fields FieldResolver
}

// NewProcessor creates a Processor.
func NewProcessor(fields FieldResolver) *Processor {
	return &Processor{fields: fields}
}

// Process selects attributeNames, filters by every group and appends the
// sort orders. Unknown attribute names are skipped like unknown
// selections; unknown filter or sort fields fail with ErrUnknownField.
func (p *Processor) Process(ctx context.Context, b *query.Builder, criteria SearchCriteria, attributeNames []string, scope joiner.Scope) error {
	for _, name := range attributeNames {
		_, err := p.fields.Select(b, name, scope)
		if errors.Is(err, treeerr.ErrUnknownField) {
			logging.Ctx(ctx).Debug().Str("attribute", name).Msg("requested attribute is not defined, skipping")
			continue
		}
		if err != nil {
			return err
		}
	}

	for _, group := range criteria.FilterGroups {
		preds := make([]sqldsl.Expr, 0, len(group.Filters))
		for _, f := range group.Filters {
			pred, err := p.filter(b, f, scope)
			if err != nil {
				return err
			}
			preds = append(preds, pred)
		}
		if len(preds) > 0 {
			b.Filter(sqldsl.Or(preds...))
		}
	}

	for _, s := range criteria.SortOrders {
		expr, err := p.value(b, s.Field, scope)
		if err != nil {
			return err
		}
		b.OrderBy(sqldsl.Ordered{Expr: expr, Desc: strings.EqualFold(string(s.Direction), string(Desc))})
	}
	return nil
}

func (p *Processor) value(b *query.Builder, field string, scope joiner.Scope) (sqldsl.Expr, error) {
	expr, err := p.fields.Value(b, field, scope)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, fmt.Errorf("%w: %q has no value", treeerr.ErrUnknownField, field)
	}
	return expr, nil
}

func (p *Processor) filter(b *query.Builder, f Filter, scope joiner.Scope) (sqldsl.Expr, error) {
	expr, err := p.value(b, f.Field, scope)
	if err != nil {
		return nil, err
	}

	switch f.Condition {
	case "", CondEq:
		return sqldsl.Eq{Left: expr, Right: sqldsl.Bind(f.Value)}, nil
	case CondNeq:
		return sqldsl.Ne{Left: expr, Right: sqldsl.Bind(f.Value)}, nil
	case CondIn:
		return sqldsl.In{Expr: expr, Values: toList(f.Value)}, nil
	case CondNin:
		return sqldsl.NotIn{Expr: expr, Values: toList(f.Value)}, nil
	case CondLike:
		return sqldsl.Like{Expr: expr, Pattern: sqldsl.Bind(f.Value)}, nil
	case CondGt:
		return sqldsl.Gt{Left: expr, Right: sqldsl.Bind(f.Value)}, nil
	case CondGteq:
		return sqldsl.Gte{Left: expr, Right: sqldsl.Bind(f.Value)}, nil
	case CondLt:
		return sqldsl.Lt{Left: expr, Right: sqldsl.Bind(f.Value)}, nil
	case CondLteq:
		return sqldsl.Lte{Left: expr, Right: sqldsl.Bind(f.Value)}, nil
	case CondNull:
		return sqldsl.IsNull{Expr: expr}, nil
	case CondNotNull:
		return sqldsl.IsNotNull{Expr: expr}, nil
	default:
		return nil, fmt.Errorf("%w: %q on field %q", ErrUnsupportedCondition, f.Condition, f.Field)
	}
}

// toList spreads a slice value into IN arguments. Strings are split on
// commas.
func toList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case string:
		parts := strings.Split(t, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
