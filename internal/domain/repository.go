package domain

import "context"

// KeyValueStore описывает хранилище, в котором лежат сериализованные данные приложения.
// Каждый ключ хранит одно значение целиком; запись всегда перезаписывает прежнее.
type KeyValueStore interface {
	// Get возвращает значение ключа или ErrKeyNotFound, если его нет.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set перезаписывает значение ключа.
	Set(ctx context.Context, key string, value []byte) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close освобождает соединения.
	Close() error
}
