package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive_Deterministic(t *testing.T) {
	a := Derive("alexnet.pdf", "localhost:8000")
	b := Derive("alexnet.pdf", "localhost:8000")
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 2*Size)
}

func TestDerive_Distinct(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]string
	}{
		{name: "origin isolates tenants", a: [2]string{"r", "host-a"}, b: [2]string{"r", "host-b"}},
		{name: "separator boundary", a: [2]string{"ab", "c"}, b: [2]string{"a", "bc"}},
		{name: "swapped fields", a: [2]string{"x", "y"}, b: [2]string{"y", "x"}},
		{name: "empty resource vs empty origin", a: [2]string{"", "z"}, b: [2]string{"z", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := Derive(tt.a[0], tt.a[1])
			kb := Derive(tt.b[0], tt.b[1])
			assert.NotEqual(t, ka, kb)
		})
	}
}

func TestDerive_EmptyInputs(t *testing.T) {
	assert.NotPanics(t, func() {
		k := Derive("", "")
		assert.NotEqual(t, CacheKey{}, k)
	})
}

func TestCompare(t *testing.T) {
	lo := CacheKey{0x01}
	hi := CacheKey{0x02}

	assert.Equal(t, -1, Compare(lo, hi))
	assert.Equal(t, 1, Compare(hi, lo))
	assert.Equal(t, 0, Compare(lo, lo))
}
