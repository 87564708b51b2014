package sqlbuilder

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlaceholders(t *testing.T) {
	q := New(PlaceholderQuestion)
	if q.Arg(1) != "?" || q.Arg("a") != "?" || q.Len() != 2 {
		t.Fatalf("unexpected question placeholders")
	}

	d := New(PlaceholderDollar)
	for i, want := range []string{"$1", "$2", "$3", "$4", "$5", "$6", "$7", "$8", "$9", "$10", "$11"} {
		if got := d.Arg(i); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
	if args := d.Args(); len(args) != 11 || args[10] != 10 {
		t.Fatalf("unexpected args %v", args)
	}
}

type level int

func TestValueBindsDriverTypes(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{level(3), int64(3)},
		{uint8(7), int64(7)},
		{uint64(1 << 63), "9223372036854775808"},
		{float32(1.5), float64(1.5)},
		{float32(0.1), float64(0.1)},
		{float32(16777216), float64(16777216)},
		{0.1, 0.1},
		{decimal.RequireFromString("1.50"), "1.5"},
		{"x", "x"},
		{true, true},
		{nil, nil},
	}
	for _, tc := range cases {
		if got := DriverValue(tc.in); got != tc.want {
			t.Errorf("DriverValue(%v) = %#v, want %#v", tc.in, got, tc.want)
		}
	}

	b := New(PlaceholderDollar)
	if got := b.Value(float32(0.1)); got != "$1" {
		t.Fatalf("expected $1, got %s", got)
	}
	if args := b.Args(); len(args) != 1 || args[0] != 0.1 {
		t.Fatalf("expected float64 0.1 bound, got %#v", args)
	}
}
