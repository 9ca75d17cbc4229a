package storage

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
)

var errReadOnly = errors.New("storage: write in read-only transaction")

// MemoryStore keeps records in process memory. Writes of an update are
// staged and only become visible when the update returns nil.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[RecordKey][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	buckets := make(map[string]map[RecordKey][]byte, len(allNamespaces))
	for _, name := range allNamespaces {
		buckets[name] = make(map[RecordKey][]byte)
	}
	return &MemoryStore{buckets: buckets}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memTx{base: s.buckets, writes: make(map[string]map[RecordKey][]byte)}
	if err := fn(&recordTx{kv: staged}); err != nil {
		return err
	}

	for bucket, records := range staged.writes {
		for key, value := range records {
			s.buckets[bucket][key] = value
		}
	}
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&recordTx{kv: &memTx{base: s.buckets, readOnly: true}})
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	base     map[string]map[RecordKey][]byte
	writes   map[string]map[RecordKey][]byte
	readOnly bool
}

func (m *memTx) get(bucket string, key RecordKey) ([]byte, error) {
	if staged, ok := m.writes[bucket][key]; ok {
		return staged, nil
	}
	return m.base[bucket][key], nil
}

func (m *memTx) put(bucket string, key RecordKey, value []byte) error {
	if m.readOnly {
		return errReadOnly
	}
	records, ok := m.writes[bucket]
	if !ok {
		records = make(map[RecordKey][]byte)
		m.writes[bucket] = records
	}
	records[key] = value
	return nil
}

func (m *memTx) forEach(bucket string, fn func(value []byte) error) error {
	keys := make([]RecordKey, 0, len(m.base[bucket])+len(m.writes[bucket]))
	for key := range m.base[bucket] {
		keys = append(keys, key)
	}
	for key := range m.writes[bucket] {
		if _, ok := m.base[bucket][key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	for _, key := range keys {
		value, err := m.get(bucket, key)
		if err != nil {
			return err
		}
		if err := fn(value); err != nil {
			return err
		}
	}
	return nil
}
