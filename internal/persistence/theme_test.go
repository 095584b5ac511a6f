package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
)

func TestThemeStore_FallsBackToSystemPreference(t *testing.T) {
	store := NewThemeStore(memory.NewKeyValueStore(), testLogger())
	ctx := context.Background()

	require.Equal(t, ThemeDark, store.Load(ctx, true))
	require.Equal(t, ThemeLight, store.Load(ctx, false))
}

func TestThemeStore_StoredValueWins(t *testing.T) {
	kv := memory.NewKeyValueStore()
	store := NewThemeStore(kv, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ThemeLight))
	require.Equal(t, ThemeLight, store.Load(ctx, true))

	raw, err := kv.Get(ctx, ThemeKey)
	require.NoError(t, err)
	require.Equal(t, "light", string(raw))
}

func TestThemeStore_ToggleRewritesKey(t *testing.T) {
	kv := memory.NewKeyValueStore()
	store := NewThemeStore(kv, testLogger())
	ctx := context.Background()

	theme, err := store.Toggle(ctx, true)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, theme)

	theme, err = store.Toggle(ctx, true)
	require.NoError(t, err)
	require.Equal(t, ThemeDark, theme)

	raw, err := kv.Get(ctx, ThemeKey)
	require.NoError(t, err)
	require.Equal(t, "dark", string(raw))
}

func TestThemeStore_UnknownStoredValueFallsBack(t *testing.T) {
	kv := memory.NewKeyValueStore()
	require.NoError(t, kv.Set(context.Background(), ThemeKey, []byte("sepia")))

	store := NewThemeStore(kv, testLogger())
	require.Equal(t, ThemeDark, store.Load(context.Background(), true))
}

func TestThemeStore_ReadAndWriteErrors(t *testing.T) {
	kv := &failingKV{getErr: errors.New("down"), setErr: errors.New("down")}
	store := NewThemeStore(kv, testLogger())
	ctx := context.Background()

	require.Equal(t, ThemeLight, store.Load(ctx, false))
	_, err := store.Toggle(ctx, false)
	require.Error(t, err)
	require.Error(t, store.Set(ctx, ThemeDark))
	require.Error(t, store.Set(ctx, Theme("blue")))
}

func TestParseTheme(t *testing.T) {
	theme, err := ParseTheme(" DARK ")
	require.NoError(t, err)
	require.Equal(t, ThemeDark, theme)

	_, err = ParseTheme("")
	require.Error(t, err)
}
