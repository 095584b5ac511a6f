package persistence

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// ThemeKey: ключ предпочтения темы оформления.
const ThemeKey = "theme"

// Theme: тема оформления интерфейса.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Valid сообщает, является ли значение известной темой.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// Opposite возвращает противоположную тему.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ParseTheme разбирает тему из пользовательского ввода.
func ParseTheme(raw string) (Theme, error) {
	theme := Theme(strings.ToLower(strings.TrimSpace(raw)))
	if !theme.Valid() {
		return "", fmt.Errorf("unknown theme %q", raw)
	}
	return theme, nil
}

// SystemTheme переводит системный сигнал prefers-dark в тему.
func SystemTheme(prefersDark bool) Theme {
	if prefersDark {
		return ThemeDark
	}
	return ThemeLight
}

// ThemeStore хранит явный выбор темы; без него используется системная тема.
type ThemeStore struct {
	mu     sync.Mutex
	kv     domain.KeyValueStore
	logger *log.Entry
}

// NewThemeStore создаёт хранилище темы поверх key-value хранилища.
func NewThemeStore(kv domain.KeyValueStore, logger *log.Entry) *ThemeStore {
	if logger == nil {
		logger = log.WithField("component", "theme-store")
	}
	return &ThemeStore{kv: kv, logger: logger}
}

// Load возвращает сохранённую тему, а при её отсутствии или порче возвращает системную.
func (s *ThemeStore) Load(ctx context.Context, systemPrefersDark bool) Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx, systemPrefersDark)
}

// Set сохраняет явный выбор темы.
func (s *ThemeStore) Set(ctx context.Context, theme Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("unknown theme %q", theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setLocked(ctx, theme)
}

// Toggle переключает текущую тему и сохраняет результат.
func (s *ThemeStore) Toggle(ctx context.Context, systemPrefersDark bool) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.loadLocked(ctx, systemPrefersDark).Opposite()
	if err := s.setLocked(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *ThemeStore) loadLocked(ctx context.Context, systemPrefersDark bool) Theme {
	fallback := SystemTheme(systemPrefersDark)

	data, err := s.kv.Get(ctx, ThemeKey)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.WithError(err).Warn("failed to read theme, using system preference")
		}
		return fallback
	}

	theme := Theme(strings.TrimSpace(string(data)))
	if !theme.Valid() {
		s.logger.WithField("value", string(data)).Warn("stored theme is unknown, using system preference")
		return fallback
	}
	return theme
}

func (s *ThemeStore) setLocked(ctx context.Context, theme Theme) error {
	if err := s.kv.Set(ctx, ThemeKey, []byte(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
