package tcp

import "testing"

func TestWrappingLT(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{0, 1, true},
		{1, 0, false},
		{0, 0, false},
		{0xffffffff, 0, true},  // wraps forward across zero
		{0, 0xffffffff, false}, // backward arc is shorter
		{1<<31 - 1, 1 << 31, true},
	}
	for _, c := range cases {
		if got := WrappingLT(c.a, c.b); got != c.want {
			t.Errorf("WrappingLT(%d, %d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestIsBetweenWrapped(t *testing.T) {
	if !IsBetweenWrapped(10, 11, 20) {
		t.Error("11 should be between 10 and 20")
	}
	if IsBetweenWrapped(10, 10, 20) {
		t.Error("start is exclusive")
	}
	if IsBetweenWrapped(10, 20, 20) {
		t.Error("end is exclusive")
	}
	// wraps around zero
	if !IsBetweenWrapped(0xfffffffe, 0xffffffff, 2) {
		t.Error("0xffffffff should be between 0xfffffffe and 2 across the wrap")
	}
}

func TestAddSizeof(t *testing.T) {
	v := Add(0xfffffffe, 4)
	if v != 2 {
		t.Errorf("Add wrapped incorrectly: got %d, want 2", v)
	}
	if s := Sizeof(0xfffffffe, 2); s != 4 {
		t.Errorf("Sizeof wrapped incorrectly: got %d, want 4", s)
	}
}
