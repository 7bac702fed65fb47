// Package registry holds the reference property registry as an immutable,
// pre-normalized snapshot that many goroutines can read at once.
package registry

import (
	"sort"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/core/normalize"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// Value is a column value prepared for comparison.
type Value struct {
	Raw    string
	Key    string
	Tokens []string
}

// Prepare builds the comparison forms of raw.
func Prepare(raw string) Value {
	return Value{Raw: raw, Key: normalize.Key(raw), Tokens: normalize.Tokens(raw)}
}

// Empty reports whether the value carries nothing to compare.
func (v Value) Empty() bool { return v.Key == "" }

// Registry is read-only after New. Nothing hands out mutable references to
// its internal state.
type Registry struct {
	records  []entity.PropertyRecord
	prepared []map[string]Value
	source   string
}

// New copies records into a snapshot and pre-normalizes every column.
func New(records []entity.PropertyRecord, source string) *Registry {
	r := &Registry{
		records:  make([]entity.PropertyRecord, len(records)),
		prepared: make([]map[string]Value, len(records)),
		source:   source,
	}
	for i, rec := range records {
		rec.Extra = copyMap(rec.Extra)
		r.records[i] = rec
		cols := make(map[string]Value, len(constants.RegistryColumns)+len(rec.Extra))
		for _, c := range constants.RegistryColumns {
			cols[c] = Prepare(rec.Column(c))
		}
		for k, v := range rec.Extra {
			cols[k] = Prepare(v)
		}
		r.prepared[i] = cols
	}
	return r
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Source names where the snapshot was loaded from.
func (r *Registry) Source() string { return r.source }

// Record returns a copy of the i-th record.
func (r *Registry) Record(i int) entity.PropertyRecord {
	rec := r.records[i]
	rec.Extra = copyMap(rec.Extra)
	return rec
}

// Records returns copies of every record in registry order.
func (r *Registry) Records() []entity.PropertyRecord {
	out := make([]entity.PropertyRecord, r.Len())
	for i := range out {
		out[i] = r.Record(i)
	}
	return out
}

// Value returns the prepared value of column for the i-th record.
func (r *Registry) Value(i int, column string) Value {
	return r.prepared[i][column]
}

// Columns lists every column present in the snapshot, sorted.
func (r *Registry) Columns() []string {
	seen := map[string]struct{}{}
	for _, c := range constants.RegistryColumns {
		seen[c] = struct{}{}
	}
	for _, rec := range r.records {
		for k := range rec.Extra {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
