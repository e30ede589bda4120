package stdlib

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/evaluator"
)

// RegisterDefaults adds the five builtins every program can call.
func RegisterDefaults(r *Registry) {
	r.Register(Fn{Name: "print", Summary: "write the value's text to stdout, no newline", Execute: builtinPrint})
	r.Register(Fn{Name: "int", Summary: "convert to int (parse, truncate, or 0/1)", Execute: builtinInt})
	r.Register(Fn{Name: "float", Summary: "convert to float (parse, widen, or 0.0/1.0)", Execute: builtinFloat})
	r.Register(Fn{Name: "string", Summary: "convert to the value's canonical text", Execute: builtinString})
	r.Register(Fn{Name: "bool", Summary: `convert to bool ("true"/"false", or > 0)`, Execute: builtinBool})
}

func builtinPrint(w io.Writer, arg evaluator.Value) (evaluator.Value, error) {
	if _, err := io.WriteString(w, printText(arg)); err != nil {
		return nil, &evaluator.InterpreterError{
			Code:    diagnostics.EIO,
			Message: fmt.Sprintf("print: %v", err),
		}
	}
	return nil, nil
}

// printText renders a value for print. Floats use six significant digits
// with no forced fraction and Bools print as 1 or 0.
func printText(v evaluator.Value) string {
	switch v := v.(type) {
	case evaluator.Float:
		return strconv.FormatFloat(float64(v.Value), 'g', 6, 32)
	case evaluator.Bool:
		if v.Value {
			return "1"
		}
		return "0"
	}
	return v.String()
}

func builtinInt(_ io.Writer, arg evaluator.Value) (evaluator.Value, error) {
	switch v := arg.(type) {
	case evaluator.Int:
		return v, nil
	case evaluator.Float:
		f := math.Trunc(float64(v.Value))
		if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return nil, fmt.Errorf("%s is out of int range", v)
		}
		return evaluator.NewInt(int32(f)), nil
	case evaluator.Bool:
		if v.Value {
			return evaluator.NewInt(1), nil
		}
		return evaluator.NewInt(0), nil
	case evaluator.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Value), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int", v.Value)
		}
		return evaluator.NewInt(int32(n)), nil
	}
	return nil, fmt.Errorf("unsupported argument %v", arg)
}

func builtinFloat(_ io.Writer, arg evaluator.Value) (evaluator.Value, error) {
	switch v := arg.(type) {
	case evaluator.Float:
		return v, nil
	case evaluator.Int:
		return evaluator.NewFloat(float32(v.Value)), nil
	case evaluator.Bool:
		if v.Value {
			return evaluator.NewFloat(1), nil
		}
		return evaluator.NewFloat(0), nil
	case evaluator.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 32)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float", v.Value)
		}
		return evaluator.NewFloat(float32(f)), nil
	}
	return nil, fmt.Errorf("unsupported argument %v", arg)
}

func builtinString(_ io.Writer, arg evaluator.Value) (evaluator.Value, error) {
	if s, ok := arg.(evaluator.String); ok {
		return s, nil
	}
	return evaluator.NewString(arg.String()), nil
}

func builtinBool(_ io.Writer, arg evaluator.Value) (evaluator.Value, error) {
	switch v := arg.(type) {
	case evaluator.Bool:
		return v, nil
	case evaluator.Int:
		return evaluator.NewBool(v.Value > 0), nil
	case evaluator.Float:
		return evaluator.NewBool(v.Value > 0), nil
	case evaluator.String:
		switch v.Value {
		case "true":
			return evaluator.NewBool(true), nil
		case "false":
			return evaluator.NewBool(false), nil
		}
		return nil, fmt.Errorf("cannot convert %q to bool", v.Value)
	}
	return nil, fmt.Errorf("unsupported argument %v", arg)
}
