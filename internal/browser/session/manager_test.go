// internal/browser/session/manager_test.go
package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/inview/internal/config"
)

func TestAllocatorFlags(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		flags := allocatorFlags(config.NewDefaultConfig().BrowserCfg)
		assert.Equal(t, true, flags["headless"])
		assert.Equal(t, false, flags["hide-scrollbars"], "scrollbars must stay visible for geometry queries")
		assert.Equal(t, "1280,800", flags["window-size"])
		assert.NotContains(t, flags, "user-agent")
	})

	t.Run("HeadlessDisabled", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: false})
		assert.Equal(t, false, flags["headless"])
		assert.Equal(t, false, flags["disable-gpu"])
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		assert.Equal(t, true, flags["ignore-certificate-errors"])
	})

	t.Run("UserAgent", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{UserAgent: "Mozilla/5.0 (iPhone)"})
		assert.Equal(t, "Mozilla/5.0 (iPhone)", flags["user-agent"])
	})

	t.Run("PartialViewportIsIgnored", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{ViewportWidth: 800})
		assert.NotContains(t, flags, "window-size")
	})

	t.Run("WithCustomArgs", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{
			Args: []string{"--custom-arg1", "custom-arg2=value", "--lang=de-DE", "--", "--hide-scrollbars"},
		})
		assert.Equal(t, true, flags["custom-arg1"])
		assert.Equal(t, "value", flags["custom-arg2"])
		assert.Equal(t, "de-DE", flags["lang"])
		assert.NotContains(t, flags, "")
		assert.Equal(t, true, flags["hide-scrollbars"], "explicit args override the built in flags")
	})

	t.Run("ContainerFlagsOnLinux", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("container flags are Linux only")
		}
		flags := allocatorFlags(config.BrowserConfig{})
		assert.Equal(t, true, flags["no-sandbox"])
		assert.Equal(t, true, flags["disable-dev-shm-usage"])
	})

	t.Run("OptionsExtendDefaults", func(t *testing.T) {
		cfg := config.BrowserConfig{ExecPath: "/opt/chrome/chrome"}
		opts := buildAllocatorOptions(cfg)
		assert.Len(t, opts, len(chromedp.DefaultExecAllocatorOptions)+len(allocatorFlags(cfg))+1)
	})
}

// requireBrowser skips the test when no Chrome binary can be found.
func requireBrowser(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests are skipped in short mode")
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary found")
}

func TestManager_TabLifecycle(t *testing.T) {
	requireBrowser(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><p id="p">hello</p></body></html>`))
	}))
	defer server.Close()

	cfg := config.NewDefaultConfig().BrowserCfg
	cfg.PostLoadWait = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	m, err := NewManager(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	tab, err := m.NewTab(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tab.ID())

	require.NoError(t, tab.Navigate(ctx, server.URL))

	var text string
	require.NoError(t, chromedp.Run(tab.Context(), chromedp.Text("#p", &text, chromedp.ByQuery)))
	assert.Equal(t, "hello", text)

	require.NoError(t, tab.Close(ctx))
	assert.NoError(t, tab.Close(ctx), "closing twice is a no-op")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	require.NoError(t, m.Shutdown(shutdownCtx))
}

func TestManager_NewTabHonoursCancelledContext(t *testing.T) {
	requireBrowser(t)

	m, err := NewManager(context.Background(), config.NewDefaultConfig().BrowserCfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.NewTab(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
