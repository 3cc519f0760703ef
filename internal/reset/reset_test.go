package reset

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/nvs"
)

type recordingRestarter struct {
	reasons []string
}

func (r *recordingRestarter) Restart(reason string) error {
	r.reasons = append(r.reasons, reason)
	return nil
}

type harness struct {
	clock     *clock.Fake
	mem       *nvs.Memory
	store     *credstore.Store
	restarter *recordingRestarter
	button    *gpio.SimInput
	resets    []Trigger
	arbiter   *Arbiter
}

func newHarness(t *testing.T, b *config.Builder) *harness {
	t.Helper()
	cfg, err := b.Build()
	require.NoError(t, err)

	h := &harness{
		clock:     clock.NewFake(0),
		mem:       nvs.NewMemory(),
		restarter: &recordingRestarter{},
		button:    gpio.NewSimInput(true),
	}
	h.store = credstore.New(h.mem)
	h.arbiter = New(cfg, Deps{
		Store:     h.store,
		Clock:     h.clock,
		Restarter: h.restarter,
		Button:    h.button,
		OnReset: func(trigger Trigger, reason string) {
			h.resets = append(h.resets, trigger)
		},
	})
	return h
}

func (h *harness) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.Save("home", "secret123"))
	require.NoError(t, h.store.SaveResetSecret("letmein"))
}

func postReset(a *Arbiter, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.ServeReset(rec, req)
	return rec
}

func TestPerformResetOrder(t *testing.T) {
	h := newHarness(t, config.NewBuilder())
	h.seed(t)

	var storeAtHook bool
	h.arbiter.deps.OnReset = func(Trigger, string) {
		_, storeAtHook = credstore.New(h.mem).Load()
	}

	h.arbiter.PerformReset(TriggerManual, "test")

	assert.True(t, storeAtHook, "reset hook must run before the wipe")
	_, present := credstore.New(h.mem).Load()
	assert.False(t, present)
	assert.False(t, h.store.HasResetSecret())
	assert.Equal(t, SettleDelay, h.clock.Now(), "settle delay before restart")
	assert.Len(t, h.restarter.reasons, 1)
	assert.True(t, h.arbiter.Restarted())

	h.arbiter.PerformReset(TriggerManual, "again")
	assert.Len(t, h.restarter.reasons, 1, "restart is terminal")
}

func TestButtonFiresOncePerPress(t *testing.T) {
	hold := 5 * time.Second
	h := newHarness(t, config.NewBuilder().HardwareReset(0, hold, true))
	step := 10 * time.Millisecond

	h.button.Set(false) // active low: pressed
	for h.clock.Now() < hold {
		require.False(t, h.arbiter.Poll(), "fired early at %v", h.clock.Now())
		h.clock.Advance(step)
	}
	require.True(t, h.arbiter.Poll())
	h.clock.Advance(step)
	require.True(t, h.arbiter.Poll(), "restarting stays latched")
	assert.Equal(t, []Trigger{TriggerButton}, h.resets)
	assert.Len(t, h.restarter.reasons, 1)
}

func TestButtonRearmsAfterRelease(t *testing.T) {
	hold := 100 * time.Millisecond
	b := NewButton(gpio.NewSimInput(false), hold, false)
	pin := b.pin.(*gpio.SimInput)
	now := time.Duration(0)

	fire := func() int {
		n := 0
		for i := 0; i < 50; i++ {
			if b.Update(now) {
				n++
			}
			now += 10 * time.Millisecond
		}
		return n
	}

	pin.Set(true)
	assert.Equal(t, 1, fire(), "one fire for a long hold")
	pin.Set(false)
	assert.Equal(t, 0, fire())
	pin.Set(true)
	assert.Equal(t, 1, fire(), "re-armed after release")
}

func TestButtonShortPressIgnored(t *testing.T) {
	b := NewButton(gpio.NewSimInput(true), time.Second, true)
	pin := b.pin.(*gpio.SimInput)
	pin.Set(false)
	assert.False(t, b.Update(0))
	assert.False(t, b.Update(900*time.Millisecond))
	pin.Set(true)
	assert.False(t, b.Update(1200*time.Millisecond))
	assert.False(t, b.Pressed())
}

func TestHTTPResetDisabled(t *testing.T) {
	h := newHarness(t, config.NewBuilder())
	rec := postReset(h.arbiter, url.Values{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Reset disabled", strings.TrimSpace(rec.Body.String()))
	assert.False(t, h.arbiter.Pending())
}

func TestHTTPResetUnauthenticated(t *testing.T) {
	h := newHarness(t, config.NewBuilder().HTTPReset(true))
	h.seed(t)

	rec := postReset(h.arbiter, url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Resetting device...", rec.Body.String())
	assert.Empty(t, h.restarter.reasons, "reset must not run inside the response")

	h.clock.Advance(HTTPDelay - time.Millisecond)
	assert.False(t, h.arbiter.Poll())
	h.clock.Advance(time.Millisecond)
	assert.True(t, h.arbiter.Poll())
	assert.Equal(t, []Trigger{TriggerHTTP}, h.resets)
	_, present := h.store.Load()
	assert.False(t, present)
}

func TestHTTPResetAuthenticated(t *testing.T) {
	tests := []struct {
		name     string
		seed     bool
		form     url.Values
		wantCode int
		wantBody string
	}{
		{"missing", true, url.Values{}, http.StatusUnauthorized, "Password required"},
		{"wrong", true, url.Values{"password": {"guess"}}, http.StatusUnauthorized, "Invalid password"},
		{"prefix", true, url.Values{"password": {"letmei"}}, http.StatusUnauthorized, "Invalid password"},
		{"nothing stored", false, url.Values{"password": {"letmein"}}, http.StatusUnauthorized, "Invalid password"},
		{"correct", true, url.Values{"password": {"letmein"}}, http.StatusOK, "Resetting device..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, config.NewBuilder().AuthenticatedHTTPReset(true))
			if tt.seed {
				h.seed(t)
			}
			rec := postReset(h.arbiter, tt.form)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
			assert.Equal(t, tt.wantCode == http.StatusOK, h.arbiter.Pending())
		})
	}
}

func TestScheduledRestartKeepsStore(t *testing.T) {
	h := newHarness(t, config.NewBuilder())
	h.seed(t)

	h.arbiter.ScheduleRestart("configuration saved", 2*time.Second)
	h.clock.Advance(time.Second)
	assert.False(t, h.arbiter.Poll())
	h.clock.Advance(time.Second)
	assert.True(t, h.arbiter.Poll())

	assert.Equal(t, []string{"configuration saved"}, h.restarter.reasons)
	assert.Empty(t, h.resets)
	_, present := credstore.New(h.mem).Load()
	assert.True(t, present)
}

func TestRestartDoesNotDowngradeReset(t *testing.T) {
	h := newHarness(t, config.NewBuilder())
	h.arbiter.ScheduleReset(TriggerHTTP, "HTTP reset", time.Second)
	h.arbiter.ScheduleRestart("configuration saved", time.Second)
	h.clock.Advance(time.Second)
	require.True(t, h.arbiter.Poll())
	assert.Equal(t, []Trigger{TriggerHTTP}, h.resets)
}

func TestDoubleReboot(t *testing.T) {
	window := 10 * time.Second

	t.Run("disabled does nothing", func(t *testing.T) {
		h := newHarness(t, config.NewBuilder())
		assert.False(t, h.arbiter.CheckDoubleReboot())
		m, err := h.store.BootMarker()
		require.NoError(t, err)
		assert.Zero(t, m.Count)
	})

	t.Run("first boot only counts", func(t *testing.T) {
		h := newHarness(t, config.NewBuilder().DoubleRebootDetect(window))
		h.clock.Set(50 * time.Millisecond)
		assert.False(t, h.arbiter.CheckDoubleReboot())
		m, err := h.store.BootMarker()
		require.NoError(t, err)
		assert.Equal(t, credstore.BootMarker{Count: 1, LastBootMillis: 50}, m)
	})

	t.Run("second boot inside window resets", func(t *testing.T) {
		h := newHarness(t, config.NewBuilder().DoubleRebootDetect(window))
		h.seed(t)
		require.NoError(t, h.store.SaveBootMarker(credstore.BootMarker{Count: 1, LastBootMillis: 40}))
		h.clock.Set(60 * time.Millisecond)

		assert.True(t, h.arbiter.CheckDoubleReboot())
		assert.Equal(t, []Trigger{TriggerDoubleReboot}, h.resets)
		m, err := h.store.BootMarker()
		require.NoError(t, err)
		assert.Zero(t, m.Count)
		_, present := h.store.Load()
		assert.False(t, present)
	})

	t.Run("outside window keeps counting", func(t *testing.T) {
		h := newHarness(t, config.NewBuilder().DoubleRebootDetect(window))
		require.NoError(t, h.store.SaveBootMarker(credstore.BootMarker{Count: 4, LastBootMillis: 1000}))
		h.clock.Set(20 * time.Second)

		assert.False(t, h.arbiter.CheckDoubleReboot())
		m, err := h.store.BootMarker()
		require.NoError(t, err)
		assert.Equal(t, uint32(5), m.Count)
	})

	t.Run("clock behind last boot wraps", func(t *testing.T) {
		h := newHarness(t, config.NewBuilder().DoubleRebootDetect(window))
		require.NoError(t, h.store.SaveBootMarker(credstore.BootMarker{Count: 1, LastBootMillis: 5000}))
		h.clock.Set(100 * time.Millisecond)

		assert.False(t, h.arbiter.CheckDoubleReboot(), "uint32 wraparound puts this far outside the window")
	})

	t.Run("store unavailable skips", func(t *testing.T) {
		h := newHarness(t, config.NewBuilder().DoubleRebootDetect(window))
		h.mem.Unavailable = true
		assert.False(t, h.arbiter.CheckDoubleReboot())
		assert.Empty(t, h.restarter.reasons)
	})
}

func TestAuthorize(t *testing.T) {
	h := newHarness(t, config.NewBuilder())
	req := func(pw string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/?password="+url.QueryEscape(pw), nil)
	}
	assert.Error(t, h.arbiter.Authorize(req("letmein")), "no stored secret fails closed")
	h.seed(t)
	assert.NoError(t, h.arbiter.Authorize(req("letmein")))
	assert.Error(t, h.arbiter.Authorize(req("")))
}
