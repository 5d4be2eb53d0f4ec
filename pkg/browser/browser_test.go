package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shopscraper/pkg/config"
	"shopscraper/pkg/logger"
)

func TestScopeEndsWithCaller(t *testing.T) {
	session, cancelSession := context.WithCancel(context.Background())
	defer cancelSession()

	caller, cancelCaller := context.WithCancel(context.Background())
	ctx, cancel := scope(caller, session)
	defer cancel()

	cancelCaller()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scoped context should end when the caller is cancelled")
	}
	assert.NoError(t, session.Err(), "session must outlive the caller")
}

func TestScopeEndsWithSession(t *testing.T) {
	session, cancelSession := context.WithCancel(context.Background())
	ctx, cancel := scope(context.Background(), session)
	defer cancel()

	cancelSession()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestScopeKeepsCallerDeadline(t *testing.T) {
	caller, cancelCaller := context.WithTimeout(context.Background(), time.Minute)
	defer cancelCaller()

	ctx, cancel := scope(caller, context.Background())
	defer cancel()

	want, _ := caller.Deadline()
	got, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFakeProviderAcquireHook(t *testing.T) {
	p := NewFakeProvider()
	p.AcquireHook = func(n int) error {
		if n == 2 {
			return errors.New("chrome failed to start")
		}
		return nil
	}

	s1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, err = p.Acquire(context.Background())
	require.Error(t, err)

	require.NoError(t, s1.Close())
	require.NoError(t, s1.Close())
	assert.Equal(t, 2, p.Acquired())
	assert.Equal(t, 1, p.Closed())
}

func TestFakeSessionScripts(t *testing.T) {
	p := NewFakeProvider()
	p.AddPage("https://shop.test/ca/en/men/tops", &FakePage{
		Title:   "Men Tops",
		Heights: []int{1000, 2000},
		Elements: map[string]FakeElement{
			"#consent": {Dismiss: true},
			".name":    {Text: "Oxford Shirt"},
			"img":      {Attrs: map[string]string{"src": "https://img.test/1.jpg"}},
		},
	})

	ctx := context.Background()
	s, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Navigate(ctx, "https://shop.test/ca/en/men/tops"))
	assert.Error(t, s.Navigate(ctx, "https://shop.test/missing"))
	require.NoError(t, s.Navigate(ctx, "https://shop.test/ca/en/men/tops"))
	assert.Equal(t, 2, p.Visits("https://shop.test/ca/en/men/tops"))

	var h int
	require.NoError(t, s.Evaluate(ctx, ScriptScrollHeight, &h))
	assert.Equal(t, 1000, h)
	require.NoError(t, s.Evaluate(ctx, ScriptScrollToBottom, nil))
	require.NoError(t, s.Evaluate(ctx, ScriptScrollToBottom, nil))
	require.NoError(t, s.Evaluate(ctx, ScriptScrollHeight, &h))
	assert.Equal(t, 2000, h)

	assert.Error(t, s.WaitNotVisible(ctx, "#consent"))
	require.NoError(t, s.Click(ctx, "#consent"))
	assert.NoError(t, s.WaitNotVisible(ctx, "#consent"))

	text, err := s.Text(ctx, ".name")
	require.NoError(t, err)
	assert.Equal(t, "Oxford Shirt", text)

	src, ok, err := s.Attribute(ctx, "img", "src")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://img.test/1.jpg", src)

	err = s.WaitPresent(ctx, ".missing")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestChromeProvider needs a local Chrome and runs only when
// SHOPSCRAPER_CHROME_TESTS is set.
func TestChromeProvider(t *testing.T) {
	if os.Getenv("SHOPSCRAPER_CHROME_TESTS") == "" {
		t.Skip("set SHOPSCRAPER_CHROME_TESTS=1 to run against a real Chrome")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Grid</title></head><body>
<div class="grid"><div><a href="/ca/en/products/E1-000/00">one</a></div></div>
<p id="price">$19.90</p></body></html>`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig().Browser
	p := NewChromeProvider(cfg, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Navigate(ctx, server.URL))
	require.NoError(t, s.WaitPresent(ctx, ".grid"))

	title, err := s.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Grid", title)

	price, err := s.Text(ctx, "#price")
	require.NoError(t, err)
	assert.Equal(t, "$19.90", price)

	var height int
	require.NoError(t, s.Evaluate(ctx, ScriptScrollHeight, &height))
	assert.Greater(t, height, 0)

	png, err := s.Screenshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestNewChromeProviderLogsSettings(t *testing.T) {
	log := logger.NewTestLogger()
	NewChromeProvider(config.BrowserConfig{Headless: true, NoSandbox: true}, log)

	msgs := log.GetMessagesByLevel("INFO")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Component started", msgs[0].Message)
	assert.Equal(t, "browser", msgs[0].Fields["component"])
	assert.Equal(t, true, msgs[0].Fields["headless"])
}
