package eviction

import (
	"fmt"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/store"
	"github.com/krisalay/minicache/types"
)

type put struct {
	name string
	size int
	at   time.Duration
}

func fill(puts []put) *store.Store {
	s := store.New()
	for _, p := range puts {
		s.Put(keys.Derive(p.name, "o"), make([]byte, p.size), types.TickOf(p.at))
	}
	return s
}

// drain runs the engine's loop until the store fits in budget.
func drain(t *testing.T, p Policy, s *store.Store, budget int64, keep keys.CacheKey) []keys.CacheKey {
	t.Helper()
	var out []keys.CacheKey
	for s.TotalBytes() > budget {
		victim, ok := p.Next(s, keep)
		if !ok {
			break
		}
		require.NotEqual(t, keep, victim)
		require.True(t, s.Delete(victim))
		out = append(out, victim)
	}
	return out
}

func TestNewEvictionPolicy(t *testing.T) {
	tests := []struct {
		in      PolicyType
		want    Policy
		wantErr bool
	}{
		{in: "", want: OldestTouched{}},
		{in: Oldest, want: OldestTouched{}},
		{in: Largest, want: LargestFirst{}},
		{in: "lfu", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			p, err := NewEvictionPolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestOldestTouched_EvictsOldestFirst(t *testing.T) {
	s := fill([]put{
		{name: "first", size: 11, at: 1 * time.Second},
		{name: "second", size: 5, at: 2 * time.Second},
	})
	keep := keys.Derive("second", "o")

	evicted := drain(t, OldestTouched{}, s, 15, keep)

	assert.Equal(t, []keys.CacheKey{keys.Derive("first", "o")}, evicted)
	assert.Equal(t, int64(5), s.TotalBytes())
	assert.Equal(t, 1, s.Len())
}

func TestOldestTouched_NeverReturnsKeep(t *testing.T) {
	s := fill([]put{{name: "only", size: 20}})
	keep := keys.Derive("only", "o")

	_, ok := OldestTouched{}.Next(s, keep)
	assert.False(t, ok)
}

func TestOldestTouched_TiesAreDeterministic(t *testing.T) {
	var puts []put
	for i := 0; i < 6; i++ {
		puts = append(puts, put{name: fmt.Sprintf("r%d", i), size: 1, at: time.Second})
	}

	first := drain(t, OldestTouched{}, fill(puts), 0, keys.CacheKey{})
	second := drain(t, OldestTouched{}, fill(puts), 0, keys.CacheKey{})

	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.Negative(t, keys.Compare(first[i-1], first[i]))
	}
}

func TestLargestFirst(t *testing.T) {
	s := fill([]put{
		{name: "small", size: 2, at: 1 * time.Second},
		{name: "big", size: 10, at: 2 * time.Second},
		{name: "mid", size: 6, at: 3 * time.Second},
		{name: "new", size: 4, at: 4 * time.Second},
	})

	evicted := drain(t, LargestFirst{}, s, 12, keys.Derive("new", "o"))

	assert.Equal(t, []keys.CacheKey{keys.Derive("big", "o")}, evicted)
	assert.Equal(t, int64(12), s.TotalBytes())
}

func TestLargestFirst_EqualSizesPreferOlder(t *testing.T) {
	s := fill([]put{
		{name: "newer", size: 4, at: 2 * time.Second},
		{name: "older", size: 4, at: 1 * time.Second},
	})

	victim, ok := LargestFirst{}.Next(s, keys.CacheKey{})
	require.True(t, ok)
	assert.Equal(t, keys.Derive("older", "o"), victim)
}
