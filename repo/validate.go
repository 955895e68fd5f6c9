package repo

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/relmap/builder"
	"github.com/syssam/relmap/schema"
	"github.com/syssam/relmap/schema/edge"
)

// ValidationError is a mismatch between a mapping and the database.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of a validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures Validate.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	ignoreUnmapped bool
}

// IgnoreUnmapped suppresses the warnings for table columns that no field
// maps.
func IgnoreUnmapped() ValidateOption {
	return func(c *validateConfig) {
		c.ignoreUnmapped = true
	}
}

// Validate checks the mapping of entities against the columns the database
// reports for their tables and many_to_many join tables. A mapped column
// missing from its table is an error; an unmapped table column is a
// warning. Mapping errors are returned as is.
//
//	result, err := client.Validate(ctx, Customer{}, Order{})
//	if err == nil && result.HasErrors() {
//	    log.Fatal(result)
//	}
func (c *Client) Validate(ctx context.Context, entities []any, opts ...ValidateOption) (*ValidationResult, error) {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	// table name => wanted columns, in mapping order
	want := make(map[string][]string)
	owners := make(map[string]string)
	var tables []string
	add := func(table, owner string, columns ...string) {
		if _, ok := want[table]; !ok {
			tables = append(tables, table)
			owners[table] = owner
		}
		for _, col := range columns {
			if !slices.Contains(want[table], col) {
				want[table] = append(want[table], col)
			}
		}
	}
	result := &ValidationResult{}
	for _, e := range entities {
		d, err := schema.DescribeOf(e)
		if err != nil {
			return nil, err
		}
		if prev, ok := owners[d.Table]; ok && prev != d.Name() {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   d.Table,
				Message: fmt.Sprintf("table is mapped by %s and %s", prev, d.Name()),
			})
		}
		columns, err := schema.ColumnsMap(d.Type)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(columns))
		for _, f := range d.Columns() {
			name, err := schema.ColumnName(f)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		add(d.Table, d.Name(), names...)
		for _, f := range d.Relations(edge.M2M) {
			jt, err := schema.JoinTable(f)
			if err != nil {
				return nil, err
			}
			add(jt.Name, d.Name()+"."+f.Name, jt.JoinColumn, jt.InverseJoinColumn)
		}
	}
	for _, table := range tables {
		have, err := c.tableColumns(ctx, table)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{Table: table, Message: "table cannot be read: " + err.Error()})
			continue
		}
		for _, col := range want[table] {
			if !slices.Contains(have, col) {
				result.Errors = append(result.Errors, &ValidationError{Table: table, Column: col, Message: "mapped column does not exist"})
			}
		}
		if cfg.ignoreUnmapped {
			continue
		}
		for _, col := range have {
			if !slices.Contains(want[table], col) {
				result.Warnings = append(result.Warnings, &ValidationError{Table: table, Column: col, Message: "column is not mapped"})
			}
		}
	}
	return result, nil
}

// tableColumns returns the result columns of table without reading rows.
func (c *Client) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.exec.Query(ctx, builder.SelectAll(table)+" WHERE 1 = 0")
	if err != nil {
		return nil, err
	}
	return rows.Columns()
}
