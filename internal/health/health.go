// Package health отдаёт liveness/readiness пробы и сводный статус зависимостей.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status: состояние одного компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

var severity = map[Status]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

// worse возвращает более тяжёлый из двух статусов.
func worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Check: результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response: тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет одну зависимость.
type Checker interface {
	Check() Check
}

// CheckFunc позволяет использовать функцию как Checker.
type CheckFunc func() Check

// Check вызывает f.
func (f CheckFunc) Check() Check { return f() }

// Handler сводит зарегистрированные проверки в общий статус сервиса.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startedAt time.Time
}

// NewHandler создаёт handler без проверок; пустой набор считается healthy.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startedAt: time.Now(),
	}
}

// RegisterChecker добавляет проверку; nil игнорируется, повтор имени заменяет прежнюю.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	if checker == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки и возвращает сводку.
func (h *Handler) Evaluate() Response {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	response := Response{
		Status:        StatusHealthy,
		Timestamp:     time.Now(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if len(checkers) > 0 {
		response.Checks = make(map[string]Check, len(checkers))
	}
	for name, checker := range checkers {
		check := checker.Check()
		response.Checks[name] = check
		response.Status = worse(response.Status, check.Status)
	}
	return response
}

// ServeHTTP отдаёт JSON-сводку; 503 только при unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	response := h.Evaluate()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler пропускает трафик, пока ни одна зависимость не unhealthy.
// Degraded сервис остаётся готовым.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if h.Evaluate().Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// DefaultPingTimeout ограничивает одну проверку хранилища.
const DefaultPingTimeout = 2 * time.Second

// Pinger: зависимость, доступность которой проверяется запросом.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker проверяет зависимость через Ping. Ответ медленнее половины
// таймаута помечается как degraded.
type PingChecker struct {
	name      string
	pinger    Pinger
	timeout   time.Duration
	slowAfter time.Duration
}

// NewPingChecker создаёт проверку; timeout <= 0 заменяется DefaultPingTimeout.
func NewPingChecker(name string, pinger Pinger, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &PingChecker{
		name:      name,
		pinger:    pinger,
		timeout:   timeout,
		slowAfter: timeout / 2,
	}
}

// Check выполняет Ping.
func (c *PingChecker) Check() Check {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	started := time.Now()
	err := c.pinger.Ping(ctx)
	elapsed := time.Since(started)

	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: elapsed.Milliseconds()}
	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	case elapsed > c.slowAfter:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("slow response: %s", elapsed.Round(time.Millisecond))
	}
	return check
}
