package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memClient is an in-memory Client used for local development and
// tests. Transactions are serialized under a single mutex, which makes
// every commit trivially conflict-free while still enforcing the
// reads-before-writes discipline the production store requires.
type memClient struct {
	mu   sync.Mutex
	docs map[string]map[string]any // document path -> fields
}

// NewMemory creates an empty in-memory document store.
func NewMemory() Client {
	return &memClient{docs: make(map[string]map[string]any)}
}

func (c *memClient) Collection(name string) CollectionRef {
	return memCol{c: c, path: name}
}

func (c *memClient) Close() error { return nil }

func (c *memClient) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := &memTx{c: c}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.apply(time.Now().UTC())
	return nil
}

// getLocked returns a snapshot of the document at path. Caller holds c.mu.
func (c *memClient) getLocked(path string) Snapshot {
	id := path[strings.LastIndex(path, "/")+1:]
	data, ok := c.docs[path]
	if !ok {
		return Snapshot{ID: id, Exists: false}
	}
	return Snapshot{ID: id, Exists: true, Data: copyMap(data)}
}

// setLocked replaces or merges the document at path, resolving write
// sentinels against the current state. Caller holds c.mu.
func (c *memClient) setLocked(path string, data map[string]any, merge bool, now time.Time) {
	existing := c.docs[path]
	var next map[string]any
	if merge && existing != nil {
		next = copyMap(existing)
	} else {
		next = make(map[string]any, len(data))
	}
	for k, v := range data {
		switch sv := v.(type) {
		case serverTimestamp:
			next[k] = now
		case incrementValue:
			var base int64
			if existing != nil {
				base = Snapshot{Data: existing}.Int(k)
			}
			next[k] = base + sv.n
		case arrayUnion:
			var cur []any
			if existing != nil {
				cur, _ = existing[k].([]any)
			}
			next[k] = unionArrays(cur, sv.values)
		case map[string]any:
			next[k] = copyMap(sv)
		default:
			next[k] = v
		}
	}
	c.docs[path] = next
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if mv, ok := v.(map[string]any); ok {
			out[k] = copyMap(mv)
			continue
		}
		out[k] = v
	}
	return out
}

func unionArrays(cur []any, add []any) []any {
	out := append([]any(nil), cur...)
	for _, v := range add {
		seen := false
		for _, e := range out {
			if e == v {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

// memDoc addresses one in-memory document.
type memDoc struct {
	c    *memClient
	path string
}

func (d memDoc) ID() string   { return d.path[strings.LastIndex(d.path, "/")+1:] }
func (d memDoc) Path() string { return d.path }

func (d memDoc) Collection(name string) CollectionRef {
	return memCol{c: d.c, path: d.path + "/" + name}
}

func (d memDoc) Get(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	return d.c.getLocked(d.path), nil
}

func (d memDoc) Set(ctx context.Context, data map[string]any) error {
	return d.write(ctx, data, false)
}

func (d memDoc) Merge(ctx context.Context, data map[string]any) error {
	return d.write(ctx, data, true)
}

func (d memDoc) write(ctx context.Context, data map[string]any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	d.c.setLocked(d.path, data, merge, time.Now().UTC())
	return nil
}

func (d memDoc) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	delete(d.c.docs, d.path)
	return nil
}

type memFilter struct {
	field, op string
	value     any
}

type memOrder struct {
	field string
	dir   Direction
}

// memCol is both a CollectionRef and the root Query over it. Query
// methods return value copies, so chained queries never alias.
type memCol struct {
	c       *memClient
	path    string
	filters []memFilter
	order   *memOrder
	limit   int
}

func (q memCol) Doc(id string) DocRef { return memDoc{c: q.c, path: q.path + "/" + id} }
func (q memCol) NewDoc() DocRef       { return q.Doc(uuid.NewString()) }

func (q memCol) Where(field, op string, value any) Query {
	q.filters = append(append([]memFilter(nil), q.filters...), memFilter{field: field, op: op, value: value})
	return q
}

func (q memCol) OrderBy(field string, dir Direction) Query {
	q.order = &memOrder{field: field, dir: dir}
	return q
}

func (q memCol) Limit(n int) Query {
	q.limit = n
	return q
}

func (q memCol) Documents(ctx context.Context) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.c.mu.Lock()
	defer q.c.mu.Unlock()

	prefix := q.path + "/"
	var out []Snapshot
	for path := range q.c.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if strings.Contains(path[len(prefix):], "/") {
			continue // document of a nested subcollection
		}
		snap := q.c.getLocked(path)
		if q.matches(snap) {
			out = append(out, snap)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if q.order != nil {
			cmp := compareValues(out[i].Data[q.order.field], out[j].Data[q.order.field])
			if cmp != 0 {
				if q.order.dir == Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return out[i].ID < out[j].ID
	})

	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out, nil
}

func (q memCol) matches(snap Snapshot) bool {
	for _, f := range q.filters {
		v, ok := snap.Data[f.field]
		if !ok {
			return false
		}
		cmp := compareValues(v, f.value)
		switch f.op {
		case "==":
			if cmp != 0 {
				return false
			}
		case "<":
			if cmp >= 0 {
				return false
			}
		case "<=":
			if cmp > 0 {
				return false
			}
		case ">":
			if cmp <= 0 {
				return false
			}
		case ">=":
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	default:
		ai := Snapshot{Data: map[string]any{"v": a}}.Int("v")
		bi := Snapshot{Data: map[string]any{"v": b}}.Int("v")
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
}

type memWrite struct {
	path   string
	data   map[string]any
	merge  bool
	delete bool
}

// memTx buffers writes until commit. The client mutex is held for the
// whole callback, so reads observe a stable state.
type memTx struct {
	c      *memClient
	writes []memWrite
}

func (t *memTx) Get(ref DocRef) (Snapshot, error) {
	if len(t.writes) > 0 {
		return Snapshot{}, ErrReadAfterWrite
	}
	return t.c.getLocked(ref.Path()), nil
}

func (t *memTx) Set(ref DocRef, data map[string]any) {
	t.writes = append(t.writes, memWrite{path: ref.Path(), data: data})
}

func (t *memTx) Merge(ref DocRef, data map[string]any) {
	t.writes = append(t.writes, memWrite{path: ref.Path(), data: data, merge: true})
}

func (t *memTx) Delete(ref DocRef) {
	t.writes = append(t.writes, memWrite{path: ref.Path(), delete: true})
}

func (t *memTx) apply(now time.Time) {
	for _, w := range t.writes {
		if w.delete {
			delete(t.c.docs, w.path)
			continue
		}
		t.c.setLocked(w.path, w.data, w.merge, now)
	}
}
