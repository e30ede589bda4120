package evaluator

import (
	"encoding/json"
	"math"

	"github.com/kestrel-lang/kestrel/pkg/ast"
)

// ValueToJSON marshals a Value to JSON bytes. A nil Value is null. Floats
// keep their fractional part ("3.0"); NaN and infinities become strings.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case Int:
		return val.Value
	case Float:
		f := float64(val.Value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ast.FormatFloat(val.Value)
		}
		return json.Number(ast.FormatFloat(val.Value))
	case String:
		return val.Value
	case Bool:
		return val.Value
	}
	return nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
