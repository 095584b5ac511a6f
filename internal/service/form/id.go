package form

import (
	"strconv"
	"sync"
	"time"
)

// IDPrefix: префикс идентификатора заказа.
const IDPrefix = "ORD-"

// IDGenerator выдаёт идентификаторы вида ORD-<unix ms>. В пределах процесса значения
// строго возрастают: повтор в ту же миллисекунду сдвигается на единицу.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDGenerator создаёт генератор; now == nil означает time.Now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next возвращает очередной идентификатор.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return IDPrefix + strconv.FormatInt(ms, 10)
}
