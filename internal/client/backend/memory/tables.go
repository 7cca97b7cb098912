package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

// row is a stored record in its JSON shape.
type row map[string]any

func toRow(v any) (row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var r row
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("row must be a JSON object: %w", err)
	}
	return r, nil
}

// normalize converts a Go value to what it looks like after a JSON round trip.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

func equal(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	gt, ok1 := parseTime(got)
	wt, ok2 := parseTime(want)
	return ok1 && ok2 && gt.Equal(wt)
}

func (r row) matches(filters []backend.Filter) bool {
	for _, f := range filters {
		want := normalize(f.Value)
		got, ok := r[f.Column]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || !equal(got, want) {
			return false
		}
	}
	return true
}

// compare orders JSON scalars; nil sorts first, timestamps chronologically.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if at, ok := parseTime(a); ok {
		if bt, ok := parseTime(b); ok {
			return at.Compare(bt)
		}
	}

	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortRows(rows []row, orders []backend.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			c := compare(rows[i][o.Column], rows[j][o.Column])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func (b *Backend) stamp() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().UTC().Format(time.RFC3339Nano)
}

// fill assigns id and timestamps the way the hosted tables' defaults do.
func (b *Backend) fill(r row) {
	now := b.stamp()
	if v, ok := r["id"]; !ok || v == nil || v == "" {
		r["id"] = uuid.NewString()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = now
	}
	if _, ok := r["updated_at"]; !ok {
		r["updated_at"] = now
	}
}

// Seed stores rows directly, bypassing faults and call counting. Missing
// ids and timestamps are filled in.
func (b *Backend) Seed(table string, rows ...any) error {
	for _, v := range rows {
		r, err := toRow(v)
		if err != nil {
			return err
		}
		b.fill(r)
		b.mu.Lock()
		b.tables[table] = append(b.tables[table], r)
		b.mu.Unlock()
	}
	return nil
}

// Rows returns a copy of table decoded into dst (a pointer to a slice), in
// storage order.
func (b *Backend) Rows(table string, dst any) error {
	b.mu.Lock()
	raw := encodeRows(b.tables[table])
	b.mu.Unlock()
	return backend.DecodeRows(raw, backend.Query{}, dst)
}

func encodeRows(rows []row) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (b *Backend) Select(ctx context.Context, table string, q backend.Query, dst any) error {
	if err := q.Validate(table); err != nil {
		return err
	}
	if err := b.enter(OpSelect); err != nil {
		return err
	}

	b.mu.Lock()
	var matched []row
	for _, r := range b.tables[table] {
		if r.matches(q.Filters) {
			matched = append(matched, r)
		}
	}
	sortRows(matched, q.Orders)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	raw := encodeRows(matched)
	b.mu.Unlock()

	return backend.DecodeRows(raw, q, dst)
}

func (b *Backend) Insert(ctx context.Context, table string, v any, dst any) error {
	if err := (backend.Query{}).Validate(table); err != nil {
		return err
	}
	if err := b.enter(OpInsert); err != nil {
		return err
	}

	r, err := toRow(v)
	if err != nil {
		return err
	}
	b.fill(r)

	b.mu.Lock()
	b.tables[table] = append(b.tables[table], r)
	raw := encodeRows([]row{r})
	b.mu.Unlock()

	if dst == nil {
		return nil
	}
	return backend.DecodeRows(raw, backend.Query{Single: true}, dst)
}

func (b *Backend) Update(ctx context.Context, table string, q backend.Query, patch any) error {
	if err := q.Validate(table); err != nil {
		return err
	}
	if err := b.enter(OpUpdate); err != nil {
		return err
	}

	p, err := toRow(patch)
	if err != nil {
		return err
	}
	now := b.stamp()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.tables[table] {
		if !r.matches(q.Filters) {
			continue
		}
		for k, v := range p {
			r[k] = v
		}
		if _, ok := p["updated_at"]; !ok {
			r["updated_at"] = now
		}
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, table string, q backend.Query) error {
	if err := q.Validate(table); err != nil {
		return err
	}
	if err := b.enter(OpDelete); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.tables[table][:0]
	for _, r := range b.tables[table] {
		if !r.matches(q.Filters) {
			kept = append(kept, r)
		}
	}
	b.tables[table] = kept
	return nil
}
