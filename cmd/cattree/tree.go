package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/categorytree"
	"github.com/pthm/categorytree/internal/cli"
)

var (
	treeFlags  requestFlags
	treeDB     string
	treeFormat string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Resolve a category tree",
	Long: `Resolve the categories a GraphQL selection needs and print them.

With one --root the subtree under that category is returned, bounded by the
depth of nested children selections. With several roots every root and all
of their descendants are returned once.`,
	Example: `  # Resolve the menu under the global root
  cattree tree --selection '{ categories { name children { name } } }'

  # Resolve two subtrees for store 1 as JSON
  cattree tree --query menu.graphql --root 10 --root 11 --store 1 --format json

  # Filter with search criteria
  cattree tree --query menu.graphql --root 2 --criteria criteria.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := treeFlags.resolve()
		if err != nil {
			return err
		}
		return runTree(cmd, req)
	},
}

func init() {
	f := treeCmd.Flags()
	treeFlags.register(f)
	f.StringVar(&treeDB, "db", "", "database URL")
	f.StringVar(&treeFormat, "format", "tree", "output format: tree, yaml or json")
}

func runTree(cmd *cobra.Command, req request) error {
	ctx := cmd.Context()

	db, err := openDB(ctx, treeDB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	provider, err := newProvider(ctx, db)
	if err != nil {
		return err
	}

	var seq iter.Seq2[categorytree.Row, error]
	switch {
	case req.multiRoot():
		seq = provider.GetFlatCategoriesByRoots(ctx, req.selection, req.roots, req.searchCriteria(), req.store, req.attributes)
	case req.criteria != nil:
		seq = provider.GetFilteredTree(ctx, req.selection, req.roots[0], *req.criteria, req.store, req.attributes)
	default:
		seq = provider.GetTree(ctx, req.selection, req.roots[0], req.store.ID)
	}

	var rows []categorytree.Row
	for row, err := range seq {
		if err != nil {
			return cli.QueryError("resolving tree", err)
		}
		rows = append(rows, row)
	}

	return writeRows(os.Stdout, treeFormat, rows)
}

// rowDoc is the serialized form of a row.
type rowDoc struct {
	ID         int64          `json:"id"`
	ParentID   int64          `json:"parent_id"`
	Path       string         `json:"path"`
	Level      int            `json:"level"`
	Position   int            `json:"position"`
	IsAnchor   bool           `json:"is_anchor"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func toDoc(r categorytree.Row) rowDoc {
	return rowDoc{
		ID:         r.ID,
		ParentID:   r.ParentID,
		Path:       r.Path,
		Level:      r.Level,
		Position:   r.Position,
		IsAnchor:   r.IsAnchor,
		Attributes: r.Attributes,
	}
}

func writeRows(w io.Writer, format string, rows []categorytree.Row) error {
	docs := make([]rowDoc, len(rows))
	for i, r := range rows {
		docs[i] = toDoc(r)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case "yaml":
		out, err := yaml.Marshal(docs)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "tree":
		for _, root := range categorytree.BuildTree(rows) {
			printNode(w, root, 0)
		}
		return nil
	}
	return cli.ConfigError(fmt.Sprintf("unknown format %q (want tree, yaml or json)", format), nil)
}

func printNode(w io.Writer, n *categorytree.Node, depth int) {
	fmt.Fprintf(w, "%s%d", strings.Repeat("  ", depth), n.ID)
	if name, ok := n.Attributes["name"]; ok && name != nil {
		fmt.Fprintf(w, " %v", name)
	}

	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, " %s=%v", k, n.Attributes[k])
	}
	fmt.Fprintln(w)

	for _, c := range n.Children {
		printNode(w, c, depth+1)
	}
}
