package attribute

import (
	"slices"

	"github.com/pthm/categorytree/internal/logging"
)

var staticColumns = []string{
	"entity_id",
	"parent_id",
	"path",
	"level",
	"position",
	"created_at",
	"updated_at",
}

// Registry maps selection names to attributes. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	byCode map[string]Attribute
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	childrenField string
}

// WithChildrenField renames the nested children relation.
func WithChildrenField(name string) RegistryOption {
	return func(c *registryConfig) {
		if name != "" {
			c.childrenField = name
		}
	}
}

// NewRegistry builds the resolution table. Static columns and the computed
// fields are registered first; EAV attributes never shadow them. idColumn is
// the entity identifier column, exposed as "id".
func NewRegistry(idColumn string, eav []Attribute, opts ...RegistryOption) *Registry {
	cfg := registryConfig{childrenField: "children"}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{byCode: make(map[string]Attribute, len(staticColumns)+len(eav)+6)}
	r.byCode["id"] = Attribute{Code: "id", Kind: KindStatic, Backend: BackendStatic, Column: idColumn}
	for _, c := range staticColumns {
		r.byCode[c] = Attribute{Code: c, Kind: KindStatic, Backend: BackendStatic, Column: c}
	}
	r.add("children_count", KindChildCount)
	r.add("product_count", KindProductCount)
	r.add("url_path", KindURL)
	r.add("canonical_url", KindURL)
	r.add(cfg.childrenField, KindRelation)

	for _, a := range eav {
		if _, taken := r.byCode[a.Code]; taken {
			continue
		}
		if a.Backend == BackendStatic || !a.Backend.Valid() {
			logging.Debug().Str("attribute", a.Code).Str("backend", string(a.Backend)).
				Msg("skipping attribute without a value table")
			continue
		}
		a.Kind = KindEAV
		r.byCode[a.Code] = a
	}
	return r
}

func (r *Registry) add(code string, kind Kind) {
	r.byCode[code] = Attribute{Code: code, Kind: kind}
}

// Lookup returns the attribute registered for name.
func (r *Registry) Lookup(name string) (Attribute, bool) {
	a, ok := r.byCode[name]
	return a, ok
}

// Codes returns every registered name, sorted.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.byCode))
	for c := range r.byCode {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
