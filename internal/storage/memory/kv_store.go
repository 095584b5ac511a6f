package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// kvStoreInMemory: in-memory реализация KeyValueStore; данные живут до остановки процесса.
type kvStoreInMemory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewKeyValueStore возвращает in-memory хранилище для локальной разработки и тестов.
func NewKeyValueStore() domain.KeyValueStore {
	return &kvStoreInMemory{
		values: make(map[string][]byte),
	}
}

// Get возвращает копию значения или ErrKeyNotFound.
func (s *kvStoreInMemory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set перезаписывает значение ключа копией переданных байт.
func (s *kvStoreInMemory) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *kvStoreInMemory) Ping(context.Context) error { return nil }

func (s *kvStoreInMemory) Close() error { return nil }

var _ domain.KeyValueStore = (*kvStoreInMemory)(nil)
