package aggregate

import (
	"sort"
	"strings"

	"analizador/internal/core"
)

// keySet remembers distinct group keys with the value they were first seen as,
// so numeric keys sort numerically.
type keySet struct {
	vals  []core.Value
	index map[string]struct{}
}

func newKeySet() *keySet { return &keySet{index: map[string]struct{}{}} }

func (k *keySet) add(v core.Value) {
	if _, ok := k.index[v.Text]; ok {
		return
	}
	k.index[v.Text] = struct{}{}
	k.vals = append(k.vals, v)
}

func (k *keySet) sorted() []string {
	vals := append([]core.Value(nil), k.vals...)
	sort.SliceStable(vals, func(i, j int) bool { return compareValues(vals[i], vals[j]) < 0 })
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.Text
	}
	return out
}

// compareValues orders numbers before text, numbers by value and text
// lexically. Month keys (YYYY-MM) therefore sort chronologically.
func compareValues(a, b core.Value) int {
	an, aok := a.Float()
	bn, bok := b.Float()
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return strings.Compare(a.Text, b.Text)
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a.Text, b.Text)
}
