// Package doctor provides health checks for a category catalog.
//
// The doctor command validates that a database can serve category tree
// queries: the catalog tables exist, the attributes the tree filter relies
// on are defined, and stored paths agree with levels and parents.
//
// Example usage:
//
//	d := doctor.New(query.DBExecutor{DB: db}, 1)
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pthm/categorytree/internal/attribute"
	"github.com/pthm/categorytree/internal/query"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "schema", "functions", "tuples").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	// Print each category
	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				// Indent details
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on a category catalog.
type Doctor struct {
	exec         query.Executor
	globalRootID int64
}

// New creates a new Doctor instance.
func New(exec query.Executor, globalRootID int64) *Doctor {
	return &Doctor{exec: exec, globalRootID: globalRootID}
}

// Run executes all health checks and returns a report. Checks that depend
// on a missing category table are skipped.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	ok, err := d.checkTables(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("checking tables: %w", err)
	}
	if !ok {
		return report, nil
	}
	if err := d.checkAttributes(ctx, report); err != nil {
		return nil, fmt.Errorf("checking attributes: %w", err)
	}
	if err := d.checkTree(ctx, report); err != nil {
		return nil, fmt.Errorf("checking tree: %w", err)
	}
	return report, nil
}

// tableCheck describes one catalog table and the cost of it missing.
type tableCheck struct {
	name    string
	missing Status
	impact  string
}

var tables = []tableCheck{
	{attribute.EntityTable, StatusFail, "no tree queries can run"},
	{"eav_attribute", StatusFail, "attribute metadata cannot be loaded"},
	{attribute.EntityTable + "_int", StatusFail, "is_active and is_anchor cannot be joined"},
	{attribute.EntityTable + "_varchar", StatusWarn, "varchar attributes such as name return errors"},
	{attribute.EntityTable + "_text", StatusWarn, "text attributes such as description return errors"},
	{attribute.EntityTable + "_decimal", StatusWarn, "decimal attributes return errors"},
	{attribute.EntityTable + "_datetime", StatusWarn, "datetime attributes return errors"},
	{attribute.ProductTable, StatusWarn, "product_count cannot be selected"},
	{attribute.URLRewriteTable, StatusWarn, "url_path and canonical_url cannot be selected"},
}

// checkTables reports which catalog tables exist. It returns false when
// the category entity table is missing.
func (d *Doctor) checkTables(ctx context.Context, report *Report) (bool, error) {
	entityExists := false
	for _, tc := range tables {
		var exists bool
		if err := d.scalar(ctx, &exists, "SELECT to_regclass($1) IS NOT NULL", tc.name); err != nil {
			return false, fmt.Errorf("checking %s: %w", tc.name, err)
		}
		if tc.name == attribute.EntityTable {
			entityExists = exists
		}
		if exists {
			report.AddCheck(CheckResult{
				Category: "Tables",
				Name:     tc.name,
				Status:   StatusPass,
				Message:  fmt.Sprintf("%s exists", tc.name),
			})
			continue
		}
		report.AddCheck(CheckResult{
			Category: "Tables",
			Name:     tc.name,
			Status:   tc.missing,
			Message:  fmt.Sprintf("%s does not exist", tc.name),
			Details:  "Without it " + tc.impact,
			FixHint:  "Run 'cattree migrate' against a development database, or check search_path",
		})
	}
	return entityExists, nil
}

// checkAttributes verifies the attributes the tree query depends on.
func (d *Doctor) checkAttributes(ctx context.Context, report *Report) error {
	rows, err := d.exec.Query(ctx,
		"SELECT attribute_code, backend_type FROM eav_attribute WHERE entity_type = $1 ORDER BY attribute_code",
		attribute.EntityTypeCategory)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	backends := make(map[string]attribute.Backend)
	var unsupported []string
	for rows.Next() {
		var code, backend string
		if err := rows.Scan(&code, &backend); err != nil {
			return err
		}
		b := attribute.Backend(backend)
		backends[code] = b
		if !b.Valid() {
			unsupported = append(unsupported, fmt.Sprintf("%s (%s)", code, backend))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	report.AddCheck(CheckResult{
		Category: "Attributes",
		Name:     "count",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d category attributes defined", len(backends)),
	})

	for _, code := range []string{"is_active", "is_anchor"} {
		b, ok := backends[code]
		switch {
		case !ok:
			report.AddCheck(CheckResult{
				Category: "Attributes",
				Name:     code,
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s is not defined", code),
				FixHint:  fmt.Sprintf("Insert %s into eav_attribute with backend_type 'int'", code),
			})
		case b != attribute.BackendInt:
			report.AddCheck(CheckResult{
				Category: "Attributes",
				Name:     code,
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s has backend %q, expected int", code, b),
			})
		default:
			report.AddCheck(CheckResult{
				Category: "Attributes",
				Name:     code,
				Status:   StatusPass,
				Message:  fmt.Sprintf("%s is defined", code),
			})
		}
	}

	if len(unsupported) > 0 {
		slices.Sort(unsupported)
		report.AddCheck(CheckResult{
			Category: "Attributes",
			Name:     "backends",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d attributes have unsupported backends and cannot be selected", len(unsupported)),
			Details:  strings.Join(unsupported, "\n"),
		})
	}
	return nil
}

// treeCheck counts rows violating one path invariant.
type treeCheck struct {
	name    string
	message string
	query   string
	hint    string
}

var treeChecks = []treeCheck{
	{
		name:    "levels",
		message: "categories whose level does not match their path",
		query: "SELECT COUNT(*) FROM " + attribute.EntityTable +
			" WHERE level <> array_length(string_to_array(path, '/'), 1) - 1",
		hint: "level must equal the number of path segments minus one",
	},
	{
		name:    "paths",
		message: "categories whose path does not end with their own id",
		query: "SELECT COUNT(*) FROM " + attribute.EntityTable +
			" WHERE NOT (path = entity_id::text OR path LIKE '%/' || entity_id::text)",
		hint: "path must be the parent's path followed by /<id>",
	},
	{
		name:    "parents",
		message: "categories whose parent does not exist",
		query: "SELECT COUNT(*) FROM " + attribute.EntityTable + " AS c" +
			" WHERE c.entity_id <> $1 AND NOT EXISTS (SELECT 1 FROM " + attribute.EntityTable +
			" AS p WHERE p.entity_id = c.parent_id)",
		hint: "orphaned categories are never reached from the global root",
	},
}

// checkTree verifies the global root and the path invariants.
func (d *Doctor) checkTree(ctx context.Context, report *Report) error {
	var roots int64
	if err := d.scalar(ctx, &roots, "SELECT COUNT(*) FROM "+attribute.EntityTable+" WHERE entity_id = $1", d.globalRootID); err != nil {
		return err
	}
	if roots == 0 {
		report.AddCheck(CheckResult{
			Category: "Tree",
			Name:     "global_root",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Global root %d does not exist", d.globalRootID),
			FixHint:  "Set tree.global_root_id to the id of the catalog root",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Tree",
			Name:     "global_root",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Global root %d exists", d.globalRootID),
		})
	}

	for _, tc := range treeChecks {
		var args []any
		if strings.Contains(tc.query, "$1") {
			args = append(args, d.globalRootID)
		}
		var n int64
		if err := d.scalar(ctx, &n, tc.query, args...); err != nil {
			return fmt.Errorf("%s: %w", tc.name, err)
		}
		if n == 0 {
			report.AddCheck(CheckResult{
				Category: "Tree",
				Name:     tc.name,
				Status:   StatusPass,
				Message:  "No " + tc.message,
			})
			continue
		}
		report.AddCheck(CheckResult{
			Category: "Tree",
			Name:     tc.name,
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d %s", n, tc.message),
			FixHint:  tc.hint,
		})
	}
	return nil
}

// scalar reads a single value.
func (d *Doctor) scalar(ctx context.Context, dest any, stmt string, args ...any) error {
	rows, err := d.exec.Query(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no rows returned")
	}
	return rows.Scan(dest)
}
