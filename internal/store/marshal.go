package store

import (
	"fmt"
	"strings"

	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/querysql"
)

// tableName is the quoted SQL table of a base relation.
func tableName(relation string) string {
	return querysql.Quote("rel_" + relation)
}

// cteName is the quoted common table expression of a derived relation.
func cteName(relation string) string {
	return querysql.Quote("derived_" + relation)
}

// columnType is the SQLite storage type of a relation column.
func columnType(t ir.Type) string {
	if t == ir.TypeInt {
		return "INTEGER"
	}
	return "TEXT"
}

// createTableSQL returns the DDL for a base relation.
func createTableSQL(name string, schema ir.Schema) string {
	var cols, unique []string
	if len(schema) == 0 {
		cols = []string{querysql.Column(0) + " INTEGER NOT NULL DEFAULT 0"}
		unique = []string{querysql.Column(0)}
	}
	for i, t := range schema {
		cols = append(cols, querysql.Column(i)+" "+columnType(t)+" NOT NULL")
		unique = append(unique, querysql.Column(i))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s, UNIQUE (%s))",
		tableName(name), strings.Join(cols, ", "), strings.Join(unique, ", "))
}

// marshalTuple converts a tuple to SQL parameters.
// A zero-arity tuple stores the placeholder 0.
func marshalTuple(tuple ir.Tuple) ([]any, error) {
	if len(tuple) == 0 {
		return []any{int64(0)}, nil
	}
	params := make([]any, len(tuple))
	for i, v := range tuple {
		p, err := querysql.Param(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		params[i] = p
	}
	return params, nil
}

// unmarshalTuple converts scanned columns back into a tuple of the schema.
func unmarshalTuple(raw []any, schema ir.Schema) (ir.Tuple, error) {
	tuple := make(ir.Tuple, len(schema))
	for i, t := range schema {
		v, err := unmarshalValue(t, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		tuple[i] = v
	}
	return tuple, nil
}

func unmarshalValue(t ir.Type, raw any) (ir.Value, error) {
	switch t {
	case ir.TypeInt:
		n, ok := raw.(int64)
		if !ok {
			return nil, fmt.Errorf("expected integer, got %T", raw)
		}
		return ir.Int(n), nil
	case ir.TypeString, ir.TypeSpan:
		var text string
		switch v := raw.(type) {
		case string:
			text = v
		case []byte:
			text = string(v)
		default:
			return nil, fmt.Errorf("expected text, got %T", raw)
		}
		if t == ir.TypeSpan {
			return ir.ParseSpan(text)
		}
		return ir.String(text), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", t)
	}
}
