package provisioner

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/events"
	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/metrics"
	"github.com/muurk/wifiprov/internal/nvs"
	"github.com/muurk/wifiprov/internal/radio/sim"
	"github.com/muurk/wifiprov/internal/state"
)

var rigMAC = net.HardwareAddr{0x24, 0x6f, 0x28, 0xa1, 0xb2, 0xc3}

type recordingRestarter struct {
	reasons []string
}

func (r *recordingRestarter) Restart(reason string) error {
	r.reasons = append(r.reasons, reason)
	return nil
}

type fakeAdvertiser struct {
	names  []string
	active bool
}

func (f *fakeAdvertiser) Advertise(name string, port int, ip net.IP) error {
	f.names = append(f.names, name)
	f.active = true
	return nil
}

func (f *fakeAdvertiser) Shutdown() { f.active = false }

// flakyAP fails the first failures StartAP calls.
type flakyAP struct {
	*sim.Radio
	failures int
	calls    []time.Duration
	clock    *clock.Fake
}

func (f *flakyAP) StartAP(name, password string) (net.IP, error) {
	f.calls = append(f.calls, f.clock.Now())
	if len(f.calls) <= f.failures {
		return nil, fmt.Errorf("radio busy")
	}
	return f.Radio.StartAP(name, password)
}

type hookLog struct {
	connected int
	failed    []int
	apStarted []string
	resets    int
}

type rig struct {
	t         *testing.T
	clock     *clock.Fake
	radio     *sim.Radio
	mem       *nvs.Memory
	restarter *recordingRestarter
	hooks     *hookLog
	phases    []string
	events    <-chan events.Event
	coord     *Coordinator
}

// testBuilder binds every listener to an ephemeral loopback port.
func testBuilder() *config.Builder {
	return config.NewBuilder().HTTPPort(0).DNSPort(0)
}

func newRig(t *testing.T, b *config.Builder, customize ...func(*Options)) *rig {
	t.Helper()
	cfg, err := b.Build()
	require.NoError(t, err)

	r := &rig{
		t:         t,
		clock:     clock.NewFake(0),
		mem:       nvs.NewMemory(),
		restarter: &recordingRestarter{},
		hooks:     &hookLog{},
	}
	r.radio = sim.New(r.clock, rigMAC)

	opts := Options{
		Events:     events.NewHub(),
		Radio:      r.radio,
		Store:      r.mem,
		Clock:      r.clock,
		Restarter:  r.restarter,
		ListenHost: "127.0.0.1",
		Hooks: Hooks{
			Connected:     func() { r.hooks.connected++ },
			Failed:        func(n int) { r.hooks.failed = append(r.hooks.failed, n) },
			APModeStarted: func(name string, _ net.IP) { r.hooks.apStarted = append(r.hooks.apStarted, name) },
			Reset:         func() { r.hooks.resets++ },
		},
	}
	for _, fn := range customize {
		fn(&opts)
	}

	if opts.Events != nil {
		var cancel func()
		r.events, cancel = opts.Events.Subscribe()
		t.Cleanup(cancel)
	}

	r.coord, err = New(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(r.coord.Close)
	return r
}

func (r *rig) storeCreds(ssid, password string) {
	require.NoError(r.t, credstore.New(r.mem).Save(ssid, password))
}

// tick runs one Tick, records phase changes and advances the clock by step.
func (r *rig) tick(step time.Duration) {
	r.coord.Tick()
	r.drainEvents()
	r.clock.Advance(step)
}

func (r *rig) drainEvents() {
	for {
		select {
		case e, ok := <-r.events:
			if !ok {
				return
			}
			if e.Type == events.TypePhase {
				r.phases = append(r.phases, e.Phase)
			}
		default:
			return
		}
	}
}

// runUntil ticks until cond holds or limit of simulated time passes.
func (r *rig) runUntil(step, limit time.Duration, cond func() bool) bool {
	end := r.clock.Now() + limit
	for r.clock.Now() <= end {
		r.tick(step)
		if cond() {
			return true
		}
	}
	return false
}

func (r *rig) phaseIs(p state.Phase) func() bool {
	return func() bool { return r.coord.Phase() == p }
}

func TestNoCredentialsGoesToProvisioning(t *testing.T) {
	r := newRig(t, testBuilder())

	require.True(t, r.runUntil(10*time.Millisecond, time.Second, r.phaseIs(state.PhaseProvisioningActive)))
	r.runUntil(10*time.Millisecond, 2*time.Second, func() bool { return false })

	assert.NotContains(t, r.phases, "Connecting")
	assert.Equal(t, []string{"LoadConfig", "Provisioning", "ProvisioningActive"}, r.phases)
	assert.Equal(t, []string{"ESP32-Config-A1B2C3"}, r.hooks.apStarted)
	assert.True(t, r.coord.IsProvisioning())
	assert.Equal(t, sim.DefaultAPAddress.String(), r.coord.APAddress().String())
	assert.Zero(t, r.radio.Connects())
}

func TestStoreUnavailableGoesToProvisioning(t *testing.T) {
	r := newRig(t, testBuilder())
	r.mem.Unavailable = true

	require.True(t, r.runUntil(10*time.Millisecond, time.Second, r.phaseIs(state.PhaseProvisioningActive)))
	assert.NotContains(t, r.phases, "Connecting")
}

func TestConnectsWithStoredCredentials(t *testing.T) {
	adv := &fakeAdvertiser{}
	r := newRig(t, testBuilder().MDNS("garage").HTTPReset(true), func(o *Options) { o.Advertiser = adv })
	r.radio.AddNetwork("home", "secret123", 80)
	r.storeCreds("home", "secret123")

	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))
	assert.True(t, r.coord.IsConnected())
	assert.Equal(t, 1, r.hooks.connected)
	assert.Empty(t, r.hooks.failed)
	assert.Equal(t, "home", r.coord.SSID())
	assert.NotNil(t, r.coord.LocalIP())
	assert.Equal(t, []string{"garage"}, adv.names)
	assert.True(t, adv.active)
	assert.NotNil(t, r.coord.SurfaceAddr(), "HTTP reset needs the connected surface")
}

func TestNoConnectedSurfaceWithoutFeatures(t *testing.T) {
	r := newRig(t, testBuilder())
	r.radio.AddNetwork("home", "pw", 80)
	r.storeCreds("home", "pw")

	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))
	assert.Nil(t, r.coord.SurfaceAddr())
}

func TestLinkLossReconnects(t *testing.T) {
	adv := &fakeAdvertiser{}
	r := newRig(t, testBuilder().MDNS("esp32"), func(o *Options) { o.Advertiser = adv })
	r.radio.AddNetwork("home", "pw", 80)
	r.storeCreds("home", "pw")
	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))

	r.radio.DropLink()
	r.tick(10 * time.Millisecond)
	assert.Equal(t, state.PhaseConnecting, r.coord.Phase())
	assert.False(t, adv.active, "advertisement withdrawn on link loss")
	assert.Zero(t, r.coord.RetryCount())

	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))
	assert.Equal(t, 2, r.hooks.connected)
}

func TestFailedHookCountsEveryRetry(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			r := newRig(t, testBuilder().MaxRetries(n).RetryDelay(time.Second))
			r.storeCreds("unreachable", "pw")

			require.True(t, r.runUntil(100*time.Millisecond, time.Duration(n)*time.Minute, r.phaseIs(state.PhaseProvisioning)))

			want := make([]int, n)
			for i := range want {
				want[i] = i + 1
			}
			assert.Equal(t, want, r.hooks.failed)
			assert.Equal(t, n, r.radio.Connects(), "attempts before giving up")
		})
	}
}

func TestMaxRetriesWithAutoWipe(t *testing.T) {
	m := metrics.New(false)
	r := newRig(t, testBuilder().MaxRetries(3), func(o *Options) { o.Metrics = m })
	r.storeCreds("home", "pw")
	require.NoError(t, credstore.New(r.mem).SaveResetSecret("letmein"))

	require.True(t, r.runUntil(100*time.Millisecond, 2*time.Minute, r.phaseIs(state.PhaseProvisioning)))

	assert.Equal(t, []int{1, 2, 3}, r.hooks.failed)
	_, present := credstore.New(r.mem).Load()
	assert.False(t, present, "credentials wiped")
	assert.False(t, credstore.New(r.mem).HasResetSecret())
	assert.Empty(t, r.restarter.reasons, "auto-wipe does not restart")
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP wifiprov_connect_attempts_total Finished connection attempts by result.
# TYPE wifiprov_connect_attempts_total counter
wifiprov_connect_attempts_total{result="failed"} 3
`), "wifiprov_connect_attempts_total"))
}

func TestMaxRetriesWithoutAutoWipeKeepsCycling(t *testing.T) {
	r := newRig(t, testBuilder().MaxRetries(2).RetryDelay(time.Second).AutoWipeOnMaxRetries(false))
	r.storeCreds("home", "pw")

	require.True(t, r.runUntil(100*time.Millisecond, 5*time.Minute, func() bool { return len(r.hooks.failed) >= 5 }))
	assert.Equal(t, []int{1, 2, 1, 2, 1}, r.hooks.failed)
	assert.NotContains(t, r.phases, "Provisioning")
	_, present := credstore.New(r.mem).Load()
	assert.True(t, present)
}

func TestRetryWaitHonoursDelay(t *testing.T) {
	r := newRig(t, testBuilder().RetryDelay(3*time.Second))
	r.storeCreds("home", "pw")

	require.True(t, r.runUntil(100*time.Millisecond, time.Minute, r.phaseIs(state.PhaseRetryWait)))
	failedAt := r.clock.Now()
	require.True(t, r.runUntil(100*time.Millisecond, time.Minute, r.phaseIs(state.PhaseConnecting)))
	assert.GreaterOrEqual(t, r.clock.Now()-failedAt, 3*time.Second)
	assert.Less(t, r.clock.Now()-failedAt, 3*time.Second+300*time.Millisecond)
}

func TestAPTimeoutWithCredentials(t *testing.T) {
	r := newRig(t, testBuilder().APTimeout(180*time.Second))
	require.True(t, r.runUntil(time.Second, 5*time.Second, r.phaseIs(state.PhaseProvisioningActive)))
	started := r.clock.Now()

	require.NoError(t, r.coord.SetCredentials("home", "pw", false))
	require.True(t, r.runUntil(time.Second, 200*time.Second, r.phaseIs(state.PhaseConnecting)))
	assert.GreaterOrEqual(t, r.clock.Now()-started, 180*time.Second)
	_, apUp := r.radio.AP()
	assert.False(t, apUp, "portal torn down before connecting")
	assert.Nil(t, r.coord.APAddress())
}

func TestPortalStartFailureRetriesAfterDelay(t *testing.T) {
	var flaky *flakyAP
	r := newRig(t, testBuilder().RetryDelay(3*time.Second), func(o *Options) {
		flaky = &flakyAP{Radio: o.Radio.(*sim.Radio), failures: 2, clock: o.Clock.(*clock.Fake)}
		o.Radio = flaky
	})

	require.True(t, r.runUntil(100*time.Millisecond, time.Second, func() bool { return len(flaky.calls) == 1 }))
	assert.Equal(t, state.PhaseProvisioning, r.coord.Phase())

	// No second attempt inside the retry delay.
	r.runUntil(100*time.Millisecond, 2*time.Second, func() bool { return false })
	assert.Len(t, flaky.calls, 1)
	assert.Equal(t, state.PhaseProvisioning, r.coord.Phase())
	assert.Empty(t, r.hooks.apStarted)

	require.True(t, r.runUntil(100*time.Millisecond, 10*time.Second, r.phaseIs(state.PhaseProvisioningActive)))
	require.Len(t, flaky.calls, 3)
	for i := 1; i < len(flaky.calls); i++ {
		gap := flaky.calls[i] - flaky.calls[i-1]
		assert.GreaterOrEqual(t, gap, 3*time.Second, "attempt %d came too early", i+1)
		assert.Less(t, gap, 3*time.Second+200*time.Millisecond, "attempt %d came too late", i+1)
	}
	assert.Equal(t, []string{"ESP32-Config-A1B2C3"}, r.hooks.apStarted)
	_, apUp := r.radio.AP()
	assert.True(t, apUp)
}

func TestAPTimeoutWithoutCredentialsKeepsPortal(t *testing.T) {
	r := newRig(t, testBuilder().APTimeout(180*time.Second))
	require.True(t, r.runUntil(time.Second, 5*time.Second, r.phaseIs(state.PhaseProvisioningActive)))

	assert.False(t, r.runUntil(time.Second, 600*time.Second, func() bool {
		return r.coord.Phase() != state.PhaseProvisioningActive
	}))
	_, apUp := r.radio.AP()
	assert.True(t, apUp)
	assert.Len(t, r.hooks.apStarted, 1)
}

func TestButtonHoldRestartsOnce(t *testing.T) {
	button := gpio.NewSimInput(true)
	r := newRig(t, testBuilder().HardwareReset(4, 5*time.Second, true), func(o *Options) { o.Button = button })
	r.radio.AddNetwork("home", "pw", 80)
	r.storeCreds("home", "pw")
	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))

	button.Set(false)
	r.runUntil(10*time.Millisecond, 5*time.Second+50*time.Millisecond, func() bool { return false })
	r.runUntil(10*time.Millisecond, 10*time.Second, func() bool { return false })

	assert.Len(t, r.restarter.reasons, 1)
	assert.Equal(t, 1, r.hooks.resets)
	assert.True(t, r.coord.Restarting())
	_, present := credstore.New(r.mem).Load()
	assert.False(t, present)
}

func TestTickIsNoopAfterRestart(t *testing.T) {
	r := newRig(t, testBuilder())
	r.coord.Begin()
	r.coord.Reset()
	require.Len(t, r.restarter.reasons, 1)

	phase := r.coord.Phase()
	r.runUntil(10*time.Millisecond, time.Second, func() bool { return false })
	assert.Equal(t, phase, r.coord.Phase())
	assert.Len(t, r.restarter.reasons, 1)
	_, apUp := r.radio.AP()
	assert.False(t, apUp)
}

func TestDoubleRebootAtBegin(t *testing.T) {
	r := newRig(t, testBuilder().DoubleRebootDetect(10*time.Second))
	r.storeCreds("home", "pw")
	require.NoError(t, credstore.New(r.mem).SaveBootMarker(credstore.BootMarker{Count: 1}))
	r.clock.Set(20 * time.Millisecond)

	r.coord.Begin()
	assert.Len(t, r.restarter.reasons, 1)
	assert.Equal(t, 1, r.hooks.resets)
	_, present := credstore.New(r.mem).Load()
	assert.False(t, present)
	assert.Equal(t, state.PhaseInit, r.coord.Phase())
}

func TestPortalSaveRestarts(t *testing.T) {
	r := newRig(t, testBuilder().AuthenticatedHTTPReset(true))
	require.True(t, r.runUntil(10*time.Millisecond, time.Second, r.phaseIs(state.PhaseProvisioningActive)))
	addr := r.coord.PortalAddr()
	require.NotNil(t, addr)

	form := url.Values{"ssid": {"home"}, "password": {"secret123"}, "reset_password": {"letmein"}}
	status, body := postWhileTicking(t, r, "http://"+addr.String()+"/save", form)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Configuration saved. Rebooting...", body)

	require.True(t, r.runUntil(10*time.Millisecond, 3*time.Second, func() bool { return len(r.restarter.reasons) > 0 }))
	assert.Equal(t, []string{"configuration saved"}, r.restarter.reasons)
	creds, present := credstore.New(r.mem).Load()
	assert.True(t, present)
	assert.Equal(t, "home", creds.SSID)
	assert.NoError(t, credstore.New(r.mem).VerifyResetSecret("letmein"))
	assert.Zero(t, r.hooks.resets)
}

func TestConnectedHTTPReset(t *testing.T) {
	hub := events.NewHub()
	sub, cancel := hub.Subscribe()
	defer cancel()

	r := newRig(t, testBuilder().HTTPReset(true), func(o *Options) { o.Events = hub })
	r.radio.AddNetwork("home", "pw", 80)
	r.storeCreds("home", "pw")
	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))

	addr := r.coord.SurfaceAddr()
	require.NotNil(t, addr)
	status, body := postWhileTicking(t, r, "http://"+addr.String()+"/reset", url.Values{})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Resetting device...", body)
	assert.Empty(t, r.restarter.reasons)

	require.True(t, r.runUntil(10*time.Millisecond, 2*time.Second, func() bool { return len(r.restarter.reasons) > 0 }))
	assert.Equal(t, 1, r.hooks.resets)
	_, present := credstore.New(r.mem).Load()
	assert.False(t, present)

	var types []string
	for len(sub) > 0 {
		types = append(types, (<-sub).Type)
	}
	assert.Contains(t, types, events.TypeConnected)
	assert.Contains(t, types, events.TypeReset)
	assert.Contains(t, types, events.TypeRestart)
}

func TestLEDFollowsPhase(t *testing.T) {
	led := gpio.NewSimOutput()
	r := newRig(t, testBuilder().LED(2, false), func(o *Options) { o.LED = led })
	r.radio.AddNetwork("home", "pw", 80)
	r.storeCreds("home", "pw")

	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))
	r.tick(10 * time.Millisecond)
	r.tick(10 * time.Millisecond)
	assert.True(t, led.Level(), "solid on while connected")
}

func TestSetCredentialsWithReboot(t *testing.T) {
	r := newRig(t, testBuilder())
	r.coord.Begin()
	require.NoError(t, r.coord.SetCredentials("home", "pw", true))
	assert.Empty(t, r.restarter.reasons)

	r.clock.Advance(ManualRebootDelay)
	r.coord.Tick()
	assert.Equal(t, []string{"credentials set"}, r.restarter.reasons)
	_, present := credstore.New(r.mem).Load()
	assert.True(t, present)
}

func TestSetCredentialsRejectsEmptySSID(t *testing.T) {
	r := newRig(t, testBuilder())
	assert.Error(t, r.coord.SetCredentials("", "pw", true))
	assert.Empty(t, r.restarter.reasons)
}

func TestClearCredentials(t *testing.T) {
	r := newRig(t, testBuilder())
	r.storeCreds("home", "pw")
	require.NoError(t, r.coord.ClearCredentials(false))
	_, present := credstore.New(r.mem).Load()
	assert.False(t, present)
	assert.Empty(t, r.restarter.reasons)
}

func TestRouteIntrospection(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}

	r := newRig(t, testBuilder())
	assert.False(t, r.coord.HasCustomRoutes())

	r = newRig(t, testBuilder().Get("/a", noop, config.ConnectedOnly, false))
	assert.True(t, r.coord.HasCustomRoutes())
	assert.True(t, r.coord.HasConnectedOnlyRoutes())
	assert.False(t, r.coord.HasProvisioningOnlyRoutes())

	r = newRig(t, testBuilder().Get("/b", noop, config.Both, false))
	assert.False(t, r.coord.HasConnectedOnlyRoutes())
	assert.False(t, r.coord.HasProvisioningOnlyRoutes())
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(config.Default(), Options{})
	assert.Error(t, err)
}

func TestMetricsFollowTransitions(t *testing.T) {
	m := metrics.New(false)
	r := newRig(t, testBuilder(), func(o *Options) { o.Metrics = m })
	r.radio.AddNetwork("home", "pw", 80)
	r.storeCreds("home", "pw")
	require.True(t, r.runUntil(10*time.Millisecond, 5*time.Second, r.phaseIs(state.PhaseConnected)))

	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP wifiprov_connect_attempts_total Finished connection attempts by result.
# TYPE wifiprov_connect_attempts_total counter
wifiprov_connect_attempts_total{result="succeeded"} 1
`), "wifiprov_connect_attempts_total"))
}

// postWhileTicking sends a form from another goroutine and keeps ticking until
// the response arrives.
func postWhileTicking(t *testing.T, r *rig, target string, form url.Values) (int, string) {
	t.Helper()
	type result struct {
		status int
		body   string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.PostForm(target, form)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		done <- result{status: resp.StatusCode, body: string(body), err: err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.tick(time.Millisecond)
		select {
		case res := <-done:
			require.NoError(t, res.err)
			return res.status, res.body
		case <-time.After(time.Millisecond):
		}
	}
	t.Fatal("request never completed")
	return 0, ""
}
