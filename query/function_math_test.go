package query

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMathFunctions(t *testing.T) {
	tests := []struct {
		name    string
		fn      Function
		args    []any
		want    any
		wantErr bool
	}{
		{"abs int32", &AbsFunc{}, []any{int32(-5)}, int32(5), false},
		{"abs int64", &AbsFunc{}, []any{int64(-7)}, int64(7), false},
		{"abs float", &AbsFunc{}, []any{-2.5}, 2.5, false},
		{"abs numeric string", &AbsFunc{}, []any{"-3"}, 3.0, false},
		{"abs null", &AbsFunc{}, []any{nil}, nil, false},
		{"abs bad input", &AbsFunc{}, []any{"abc"}, nil, true},

		{"ceiling", &CeilingFunc{}, []any{4.2}, 5.0, false},
		{"ceiling negative", &CeilingFunc{}, []any{-4.2}, -4.0, false},
		{"floor", &FloorFunc{}, []any{4.8}, 4.0, false},
		{"floor int", &FloorFunc{}, []any{int32(3)}, 3.0, false},

		{"sqrt", &SqrtFunc{}, []any{16.0}, 4.0, false},
		{"sqrt negative", &SqrtFunc{}, []any{-1.0}, nil, true},
		{"exp zero", &ExpFunc{}, []any{int32(0)}, 1.0, false},
		{"sin zero", &trigFunc{name: "SIN"}, []any{0.0}, 0.0, false},
		{"cos zero", &trigFunc{name: "COS"}, []any{0.0}, 1.0, false},

		{"mod ints", &ModFunc{}, []any{int32(10), int32(3)}, int32(1), false},
		{"mod bigint", &ModFunc{}, []any{int64(10), int32(4)}, int64(2), false},
		{"mod floats", &ModFunc{}, []any{10.5, 3.0}, 1.5, false},
		{"mod by zero", &ModFunc{}, []any{int32(1), int32(0)}, nil, true},
		{"mod null", &ModFunc{}, []any{nil, int32(2)}, nil, false},

		{"power", &PowerFunc{}, []any{2.0, int32(10)}, 1024.0, false},
		{"power fractional", &PowerFunc{}, []any{9.0, 0.5}, 3.0, false},
		{"power bad base", &PowerFunc{}, []any{"x", 2.0}, nil, true},

		{"round", &RoundFunc{}, []any{2.5}, 3.0, false},
		{"round places", &RoundFunc{}, []any{3.14159, int32(2)}, 3.14, false},
		{"round negative places", &RoundFunc{}, []any{1234.0, int32(-2)}, 1200.0, false},
		{"round null places", &RoundFunc{}, []any{1.5, nil}, nil, false},

		{"sign positive", &SignFunc{}, []any{42.0}, int32(1), false},
		{"sign negative", &SignFunc{}, []any{int64(-3)}, int32(-1), false},
		{"sign zero", &SignFunc{}, []any{int32(0)}, int32(0), false},
		{"sign null", &SignFunc{}, []any{nil}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn.Evaluate(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("%s.Evaluate() error = %v, wantErr %v", tt.fn.Name(), err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if want, ok := tt.want.(float64); ok {
				f, ok := got.(float64)
				if !ok || math.Abs(f-want) > 1e-9 {
					t.Errorf("%s.Evaluate() = %v (%T), want %v", tt.fn.Name(), got, got, want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("%s.Evaluate() = %v (%T), want %v (%T)", tt.fn.Name(), got, got, tt.want, tt.want)
			}
		})
	}
}

func TestAbsFunc_Decimal(t *testing.T) {
	got, err := (&AbsFunc{}).Evaluate([]any{decimal.RequireFromString("-1.25")})
	if err != nil {
		t.Fatalf("ABS() error = %v", err)
	}
	d, ok := got.(decimal.Decimal)
	if !ok || !d.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("ABS() = %v (%T), want 1.25", got, got)
	}
}

func TestMathFunctions_InQuery(t *testing.T) {
	result := runQuery(t, "SELECT order_id, ROUND(amount * 1.1, 1) AS taxed FROM orders ORDER BY order_id")
	assertColumn(t, result, "taxed", 11.6, 22.0, 5.5, 7.7)

	// numeric literals are DOUBLE, so the remainder is too
	result = runQuery(t, "SELECT MOD(id, 2) AS parity FROM users")
	assertColumn(t, result, "parity", 1.0, 0.0, 1.0, 0.0)
}
