package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// Memory is an in-process Store. Documents are kept as BSON so decoding
// behaves like the Mongo backend; Find returns them in insertion order.
// It backs tests and DB_DRIVER=memory.
type Memory struct {
	mu    sync.RWMutex
	colls map[string]*memColl
}

type memColl struct {
	order []string
	docs  map[string]bson.Raw
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{colls: make(map[string]*memColl)}
}

func (m *Memory) coll(name string) *memColl {
	c, ok := m.colls[name]
	if !ok {
		c = &memColl{docs: make(map[string]bson.Raw)}
		m.colls[name] = c
	}
	return c
}

// peek looks up a collection without creating it; safe under RLock.
func (m *Memory) peek(name string) *memColl {
	if c, ok := m.colls[name]; ok {
		return c
	}
	return &memColl{}
}

func (m *Memory) Insert(ctx context.Context, coll string, doc any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d, id, err := prepare(doc)
	if err != nil {
		return "", err
	}
	raw, err := bson.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("docstore: marshal: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(coll)
	if _, exists := c.docs[id]; exists {
		return "", ErrDuplicate
	}
	c.docs[id] = raw
	c.order = append(c.order, id)
	return id, nil
}

func (m *Memory) FindByID(ctx context.Context, coll, id string, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	raw, ok := m.peek(coll).docs[id]
	m.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return bson.Unmarshal(raw, dest)
}

func (m *Memory) Find(ctx context.Context, coll string, filter Filter, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := reflect.ValueOf(dest)
	if out.Kind() != reflect.Ptr || out.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("docstore: Find dest must be a pointer to a slice, got %T", dest)
	}

	f := bson.M(filter)
	if f == nil {
		f = bson.M{}
	}
	want, err := bson.Marshal(f)
	if err != nil {
		return fmt.Errorf("docstore: marshal filter: %w", err)
	}
	conds, err := bson.Raw(want).Elements()
	if err != nil {
		return err
	}

	m.mu.RLock()
	var matched []bson.Raw
	c := m.peek(coll)
	for _, id := range c.order {
		raw := c.docs[id]
		if matches(raw, conds) {
			matched = append(matched, raw)
		}
	}
	m.mu.RUnlock()

	slice := reflect.MakeSlice(out.Elem().Type(), 0, len(matched))
	elemType := out.Elem().Type().Elem()
	for _, raw := range matched {
		item := reflect.New(elemType)
		if err := bson.Unmarshal(raw, item.Interface()); err != nil {
			return fmt.Errorf("docstore: decode: %w", err)
		}
		slice = reflect.Append(slice, item.Elem())
	}
	out.Elem().Set(slice)
	return nil
}

func matches(doc bson.Raw, conds []bson.RawElement) bool {
	for _, cond := range conds {
		got, err := doc.LookupErr(cond.Key())
		if err != nil || !got.Equal(cond.Value()) {
			return false
		}
	}
	return true
}

func (m *Memory) Update(ctx context.Context, coll, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	set, err := toD(bson.M(fields))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(coll)
	raw, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}

next:
	for _, f := range set {
		if f.Key == "_id" {
			continue
		}
		for i := range doc {
			if doc[i].Key == f.Key {
				doc[i].Value = f.Value
				continue next
			}
		}
		doc = append(doc, f)
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	c.docs[id] = updated
	return nil
}

func (m *Memory) Delete(ctx context.Context, coll, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(coll)
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of documents in coll.
func (m *Memory) Count(coll string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peek(coll).docs)
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }
func (m *Memory) Close(_ context.Context) error  { return nil }

func toD(v any) (bson.D, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal: %w", err)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}
