package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/pthm/categorytree"
	"github.com/pthm/categorytree/internal/cli"
)

// requestFlags are the selection and scope flags shared by tree and sql.
type requestFlags struct {
	queryFile    string
	selection    string
	field        string
	roots        []int64
	store        int64
	criteriaFile string
	attributes   []string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.queryFile, "query", "", "file holding a GraphQL document (- for stdin)")
	fs.StringVar(&f.selection, "selection", "", "inline GraphQL document")
	fs.StringVar(&f.field, "field", "", "name of the category field in the document (default from config)")
	fs.Int64SliceVar(&f.roots, "root", nil, "root category id; repeat for a multi-root query (default: the global root)")
	fs.Int64Var(&f.store, "store", -1, "store id attribute values are resolved for (default from config)")
	fs.StringVar(&f.criteriaFile, "criteria", "", "YAML or JSON file holding search criteria")
	fs.StringSliceVar(&f.attributes, "attributes", nil, "extra attribute codes to join")
}

// request is a parsed set of request flags. A nil criteria selects the
// unfiltered subtree query.
type request struct {
	selection  categorytree.Selection
	roots      []categorytree.NodeID
	store      categorytree.Store
	criteria   *categorytree.SearchCriteria
	attributes []string
}

func (r request) multiRoot() bool {
	return len(r.roots) > 1
}

func (r request) searchCriteria() categorytree.SearchCriteria {
	if r.criteria == nil {
		return categorytree.SearchCriteria{}
	}
	return *r.criteria
}

func (f *requestFlags) resolve() (request, error) {
	doc, err := f.document()
	if err != nil {
		return request{}, err
	}
	field := resolveString(f.field, cfg.Tree.Field, "categories")
	sel, err := categorytree.ParseSelection(doc, field)
	if err != nil {
		return request{}, cli.QueryError("parsing selection", err)
	}

	storeID := cfg.StoreID
	if f.store >= 0 {
		storeID = f.store
	}

	roots := f.roots
	if len(roots) == 0 {
		roots = []int64{cfg.Tree.GlobalRootID}
	}

	req := request{
		selection:  sel,
		roots:      roots,
		store:      categorytree.Store{ID: storeID},
		attributes: f.attributes,
	}
	if f.criteriaFile != "" {
		criteria, err := readCriteria(f.criteriaFile)
		if err != nil {
			return request{}, err
		}
		req.criteria = &criteria
	}
	if req.criteria == nil && len(req.attributes) > 0 {
		req.criteria = &categorytree.SearchCriteria{}
	}
	return req, nil
}

func (f *requestFlags) document() (string, error) {
	switch {
	case f.selection != "" && f.queryFile != "":
		return "", cli.ConfigError("--query and --selection are mutually exclusive", nil)
	case f.selection != "":
		return f.selection, nil
	case f.queryFile == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", cli.GeneralError("reading stdin", err)
		}
		return string(b), nil
	case f.queryFile != "":
		b, err := os.ReadFile(f.queryFile)
		if err != nil {
			return "", cli.GeneralError(fmt.Sprintf("reading %s", f.queryFile), err)
		}
		return string(b), nil
	}
	return "", cli.ConfigError("a selection is required (use --query or --selection)", nil)
}

func readCriteria(path string) (categorytree.SearchCriteria, error) {
	var criteria categorytree.SearchCriteria
	b, err := os.ReadFile(path)
	if err != nil {
		return criteria, cli.GeneralError(fmt.Sprintf("reading %s", path), err)
	}
	if err := yaml.Unmarshal(b, &criteria); err != nil {
		return criteria, cli.ConfigError(fmt.Sprintf("parsing criteria %s", path), err)
	}
	return criteria, nil
}
