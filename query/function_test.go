package query

import (
	"errors"
	"slices"
	"testing"

	"github.com/vegasq/qoq/relation"
)

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	registry.Register(&UpperFunc{name: "UPPER"})

	tests := []struct {
		name    string
		lookup  string
		wantErr bool
	}{
		{"exact", "UPPER", false},
		{"lowercase", "upper", false},
		{"mixed case", "UpPeR", false},
		{"unknown", "NONEXISTENT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := registry.Lookup(tt.lookup)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lookup(%q) error = %v, wantErr %v", tt.lookup, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFunction) {
					t.Errorf("Lookup(%q) error = %v, want ErrUnknownFunction", tt.lookup, err)
				}
				return
			}
			if fn.Name() != "UPPER" {
				t.Errorf("Lookup(%q).Name() = %s, want UPPER", tt.lookup, fn.Name())
			}
		})
	}
}

func TestFunctionRegistry_RegisterFunc(t *testing.T) {
	registry := NewFunctionRegistry()
	registry.RegisterFunc("double_it", 1, relation.TypeDouble, func(args []any) (any, error) {
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return n * 2, nil
	})

	fn, err := registry.Lookup("DOUBLE_IT")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if IsAggregate(fn) {
		t.Errorf("IsAggregate(DOUBLE_IT) = true, want false")
	}
	got, err := fn.Evaluate([]any{int32(21)})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != 42.0 {
		t.Errorf("Evaluate() = %v, want 42", got)
	}
	if fn.ReturnType(nil) != relation.TypeDouble {
		t.Errorf("ReturnType() = %v, want DOUBLE", fn.ReturnType(nil))
	}

	if !registry.Unregister("double_it") {
		t.Errorf("Unregister() = false, want true")
	}
	if registry.Unregister("double_it") {
		t.Errorf("second Unregister() = true, want false")
	}
	if _, err := registry.Lookup("DOUBLE_IT"); err == nil {
		t.Errorf("Lookup() after Unregister succeeded")
	}
}

func TestFunctionRegistry_RegisterAggregateFunc(t *testing.T) {
	registry := NewFunctionRegistry()
	registry.RegisterAggregateFunc("product", 1, relation.TypeDouble, func(columns [][]any) (any, error) {
		p := 1.0
		for _, v := range columns[0] {
			if v == nil {
				continue
			}
			n, err := toNumber(v)
			if err != nil {
				return nil, err
			}
			p *= n
		}
		return p, nil
	})

	fn, err := registry.Lookup("product")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	agg, ok := fn.(AggregateFunction)
	if !ok {
		t.Fatalf("Lookup() = %T, want AggregateFunction", fn)
	}
	got, err := agg.Aggregate([][]any{{2.0, nil, int32(3), int64(4)}})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got != 24.0 {
		t.Errorf("Aggregate() = %v, want 24", got)
	}
}

func TestBuiltinRegistry(t *testing.T) {
	registry := NewBuiltinRegistry()
	names := registry.Names()

	if !slices.IsSorted(names) {
		t.Errorf("Names() not sorted: %v", names)
	}
	for _, name := range []string{
		"UPPER", "UCASE", "LOWER", "LCASE", "CONCAT", "LENGTH", "SUBSTRING",
		"ABS", "ROUND", "MOD", "SIN",
		"NOW", "CURRENT_TIMESTAMP", "DATE_ADD", "DATE_SUB", "YEAR",
		"CAST", "CONVERT", "COALESCE", "NULLIF",
		"COUNT", "MIN", "MAX", "SUM", "AVG", "GROUP_CONCAT", "STRING_AGG",
	} {
		if !slices.Contains(names, name) {
			t.Errorf("builtin %s not registered", name)
		}
	}

	for _, name := range []string{"COUNT", "SUM", "GROUP_CONCAT"} {
		fn, _ := registry.Lookup(name)
		if !IsAggregate(fn) {
			t.Errorf("IsAggregate(%s) = false, want true", name)
		}
	}
	for _, name := range []string{"UPPER", "COALESCE", "NOW"} {
		fn, _ := registry.Lookup(name)
		if IsAggregate(fn) {
			t.Errorf("IsAggregate(%s) = true, want false", name)
		}
	}
}

func TestCheckArity(t *testing.T) {
	tests := []struct {
		name    string
		fn      Function
		args    int
		wantErr bool
	}{
		{"exact ok", &UpperFunc{name: "UPPER"}, 1, false},
		{"exact too many", &UpperFunc{name: "UPPER"}, 2, true},
		{"exact too few", &UpperFunc{name: "UPPER"}, 0, true},
		{"range low", &SubstringFunc{}, 2, false},
		{"range high", &SubstringFunc{}, 3, false},
		{"range over", &SubstringFunc{}, 4, true},
		{"variadic", &ConcatFunc{}, 10, false},
		{"variadic too few", &ConcatFunc{}, 0, true},
		{"nullary", &NowFunc{name: "NOW"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkArity(tt.fn, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkArity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEvaluation) {
				t.Errorf("checkArity() error = %v, want ErrEvaluation", err)
			}
		})
	}
}

func TestFunctionCall_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  error
	}{
		{"unknown function", "SELECT NOPE(name) FROM users", ErrUnknownFunction},
		{"wrong arity", "SELECT UPPER(name, city) FROM users", ErrEvaluation},
		{"aggregate in WHERE", "SELECT name FROM users WHERE COUNT(*) > 1", ErrEvaluation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := queryError(t, tt.query)
			if !errors.Is(err, tt.want) {
				t.Errorf("Query() error = %v, want %v", err, tt.want)
			}
		})
	}
}
