// internal/catalog/sql.go
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereBuilder compiles a Filter into a parameterised PostgreSQL condition.
type whereBuilder struct {
	args []interface{}
}

func (w *whereBuilder) arg(v interface{}) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func textColumn(f Field) (string, error) {
	if !f.IsText() {
		return "", fmt.Errorf("%w: %q is not a text field", ErrUnknownField, f)
	}
	return string(f), nil
}

func numericColumn(f Field) (string, error) {
	if !f.IsNumeric() {
		return "", fmt.Errorf("%w: %q is not a numeric field", ErrUnknownField, f)
	}
	return string(f), nil
}

func (w *whereBuilder) build(f Filter) (string, error) {
	switch f := f.(type) {
	case nil:
		return "TRUE", nil
	case Contains:
		col, err := textColumn(f.Field)
		if err != nil {
			return "", err
		}
		return col + " ILIKE " + w.arg("%"+likeEscaper.Replace(f.Value)+"%"), nil
	case HasPrefix:
		col, err := textColumn(f.Field)
		if err != nil {
			return "", err
		}
		return col + " ILIKE " + w.arg(likeEscaper.Replace(f.Value)+"%"), nil
	case Equals:
		col, err := textColumn(f.Field)
		if err != nil {
			return "", err
		}
		return col + " = " + w.arg(f.Value), nil
	case In:
		col, err := textColumn(f.Field)
		if err != nil {
			return "", err
		}
		return col + " = ANY(" + w.arg(pq.Array(f.Values)) + ")", nil
	case IDIn:
		return "id = ANY(" + w.arg(pq.Array(idStrings(f.IDs))) + "::uuid[])", nil
	case IDNotIn:
		if len(f.IDs) == 0 {
			return "TRUE", nil
		}
		return "NOT (id = ANY(" + w.arg(pq.Array(idStrings(f.IDs))) + "::uuid[]))", nil
	case Range:
		col, err := numericColumn(f.Field)
		if err != nil {
			return "", err
		}
		switch {
		case f.Min != nil && f.Max != nil:
			return col + " BETWEEN " + w.arg(*f.Min) + " AND " + w.arg(*f.Max), nil
		case f.Min != nil:
			return col + " >= " + w.arg(*f.Min), nil
		case f.Max != nil:
			return col + " <= " + w.arg(*f.Max), nil
		}
		return "TRUE", nil
	case GreaterThan:
		col, err := numericColumn(f.Field)
		if err != nil {
			return "", err
		}
		return col + " > " + w.arg(f.Value), nil
	case And:
		return w.join(f, " AND ", "TRUE")
	case Or:
		return w.join(f, " OR ", "FALSE")
	}
	return "", fmt.Errorf("unsupported filter %T", f)
}

func (w *whereBuilder) join(clauses []Filter, op, empty string) (string, error) {
	if len(clauses) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		part, err := w.build(clause)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+part+")")
	}
	return strings.Join(parts, op), nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
