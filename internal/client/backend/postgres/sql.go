package postgres

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// where renders the filters as a conjunction, numbering placeholders from
// next. qualifier, when set, prefixes every column.
func where(filters []backend.Filter, qualifier string, next int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		col := ident(f.Column)
		if qualifier != "" {
			col = qualifier + "." + col
		}
		if f.Value == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", col, next))
		args = append(args, f.Value)
		next++
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func orderBy(orders []backend.Order) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		dir := "DESC"
		if o.Ascending {
			dir = "ASC"
		}
		parts = append(parts, ident(o.Column)+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// buildSelect returns a statement yielding the matched rows as one JSON
// array.
func buildSelect(table string, q backend.Query) (string, []any) {
	w, args := where(q.Filters, "", 1)
	inner := "SELECT * FROM " + ident(table) + w + orderBy(q.Orders)
	if q.Limit > 0 {
		inner += " LIMIT " + strconv.Itoa(q.Limit)
	}
	return "SELECT coalesce(json_agg(t), '[]'::json) FROM (" + inner + ") t", args
}

// columns returns the JSON object keys of row in a stable order together
// with its encoding.
func columns(row any) ([]string, []byte, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, nil, fmt.Errorf("encode row: %w", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, nil, fmt.Errorf("row must be a JSON object: %w", err)
	}
	cols := make([]string, 0, len(m))
	for k := range m {
		if !backend.ValidIdent(k) {
			return nil, nil, fmt.Errorf("%w: column %q", backend.ErrInvalidQuery, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, b, nil
}

func identList(cols []string, qualifier string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = ident(c)
		if qualifier != "" {
			parts[i] = qualifier + "." + parts[i]
		}
	}
	return strings.Join(parts, ", ")
}

// buildInsert casts the JSON payload to the table's row type so column
// types come from the schema, not from the client.
func buildInsert(table string, cols []string, returning bool) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + ident(table) + " AS r ")
	if len(cols) == 0 {
		sb.WriteString("DEFAULT VALUES")
	} else {
		sb.WriteString("(" + identList(cols, "") + ") SELECT " + identList(cols, "p") +
			" FROM json_populate_record(NULL::" + ident(table) + ", $1::json) AS p")
	}
	if returning {
		sb.WriteString(" RETURNING row_to_json(r)")
	}
	return sb.String()
}

func buildUpdate(table string, cols []string, q backend.Query) (string, []any) {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = ident(c) + " = p." + ident(c)
	}
	w, args := where(q.Filters, "r", 2)
	return "UPDATE " + ident(table) + " AS r SET " + strings.Join(sets, ", ") +
		" FROM json_populate_record(NULL::" + ident(table) + ", $1::json) AS p" + w, args
}

func buildDelete(table string, q backend.Query) (string, []any) {
	w, args := where(q.Filters, "", 1)
	return "DELETE FROM " + ident(table) + w, args
}
