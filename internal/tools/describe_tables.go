package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
)

// DescribeTablesParams are the arguments for describe_tables.
type DescribeTablesParams struct {
	TableNames []string `json:"table_names" jsonschema:"description=Names of the tables to describe"`
}

// DescribeTablesTool reads dataset metadata and renders it for the model.
type DescribeTablesTool struct{}

func (t *DescribeTablesTool) Name() string { return "describe_tables" }

func (t *DescribeTablesTool) Description() string {
	return "Get detailed information about the requested tables."
}

func (t *DescribeTablesTool) ParameterSchema() *jsonschema.Schema {
	return GenerateSchema[DescribeTablesParams]()
}

func (t *DescribeTablesTool) Execute(ctx context.Context, res *Resources, _ string, toolCallID, argsJSON string) (chatter.Message, error) {
	params, err := decodeStrict[DescribeTablesParams](argsJSON)
	if err != nil {
		return chatter.Message{}, err
	}

	tables, err := res.PG.GetTableMetadata(ctx, params.TableNames)
	if err != nil {
		return chatter.Message{}, err
	}

	var out strings.Builder
	for _, table := range tables {
		out.WriteString(formatTable(table))
		out.WriteString("\n\n")
	}

	msg := chatter.ToolMessage(toolCallID, out.String(), chatter.Sidecar{Kind: chatter.SidecarDatabaseLookup})
	return msg, nil
}

func formatTable(table pg.TableDescription) string {
	md := table.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "Table: `%s` (for humans: %s)\n", table.TableName, md.Name)
	if md.Desc != nil {
		fmt.Fprintf(&b, "- Description: %s\n", *md.Desc)
	}
	if md.PrimaryKey != nil {
		fmt.Fprintf(&b, "- Primary key: %s\n", *md.PrimaryKey)
	}
	if len(md.Columns) == 0 {
		b.WriteString("- No columns found. This table is empty. Do not use this table in your queries.\n")
		return b.String()
	}
	b.WriteString("- Columns:\n")
	for _, col := range md.Columns {
		b.WriteString(FormatColumn(col))
	}
	b.WriteByte('\n')
	return b.String()
}

// FormatColumn renders one column with its annotations.
func FormatColumn(col pg.ColumnMetadata) string {
	out := fmt.Sprintf("  - `%s`", col.Name)
	if col.Desc != nil {
		out += fmt.Sprintf(": %s", *col.Desc)
	}
	annotations := []string{fmt.Sprintf("type: %s", col.DataType)}
	if col.ForeignKey != nil {
		annotations = append(annotations, fmt.Sprintf("foreign key: %q.%q", col.ForeignKey.ForeignTable, col.ForeignKey.ForeignColumn))
	}
	if len(col.EnumValues) > 0 {
		var values []string
		for _, ev := range col.EnumValues {
			s := fmt.Sprintf("`%s`", ev.Value)
			if ev.Desc != nil {
				s += fmt.Sprintf(": %s", *ev.Desc)
			}
			values = append(values, s)
		}
		annotations = append(annotations, fmt.Sprintf("possible values: %s", strings.Join(values, ", ")))
	}
	out += fmt.Sprintf(" (%s)\n", strings.Join(annotations, ", "))
	return out
}
