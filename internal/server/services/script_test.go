package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/analytics"
	"github.com/dmitrijs2005/scriptguard/internal/server/assets"
	"github.com/dmitrijs2005/scriptguard/internal/server/composer"
	"github.com/dmitrijs2005/scriptguard/internal/server/config"
	"github.com/dmitrijs2005/scriptguard/internal/server/gate"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body  []byte
	err   error
	calls int
	last  assets.Locator
}

func (f *stubFetcher) Fetch(_ context.Context, loc assets.Locator) ([]byte, error) {
	f.calls++
	f.last = loc
	return f.body, f.err
}

type recordingObserver struct {
	mu             sync.Mutex
	decisions      []string
	fetches        []bool
	analyticsError int
}

func (o *recordingObserver) ObserveDecision(kind, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, kind+"/"+reason)
}

func (o *recordingObserver) ObserveFetch(_ string, ok bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches = append(o.fetches, ok)
}

func (o *recordingObserver) AnalyticsError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.analyticsError++
}

type scriptFixture struct {
	svc     *ScriptService
	rm      *fakeRepoManager
	fetcher *stubFetcher
	obs     *recordingObserver
}

func newScriptFixture(t *testing.T, defaultProject string) *scriptFixture {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	f := &stubFetcher{body: []byte("print('hello')\n")}
	obs := &recordingObserver{}
	cfg := &config.Config{ProjectID: defaultProject, FetchTimeout: time.Second}

	svc := NewScriptService(db, rm, gate.New(rm.keys), f, composer.New("Hub"),
		analytics.NewPostgresRecorder(rm.executions), obs, logging.Nop(), cfg)
	return &scriptFixture{svc: svc, rm: rm, fetcher: f, obs: obs}
}

func (fx *scriptFixture) addProject(t *testing.T, id string, mode models.LicenseMode) *models.Project {
	t.Helper()
	p, err := fx.rm.projects.Create(context.Background(), &models.Project{
		ID:          id,
		Name:        "Demo",
		LicenseMode: mode,
		AssetSource: models.AssetSourceGitHub,
		AssetOwner:  "octo",
		AssetRepo:   "scripts",
		AssetPath:   "main.lua",
	})
	require.NoError(t, err)
	return p
}

func (fx *scriptFixture) addKey(t *testing.T, projectID, key string) {
	t.Helper()
	require.NoError(t, fx.rm.keys.Create(context.Background(), &models.Key{
		ProjectID:     projectID,
		Key:           key,
		Type:          models.KeyTypePermanent,
		OwnerIdentity: "42",
		DisplayName:   "bob",
	}))
}

func TestServe_GrantedRecordsExecution(t *testing.T) {
	fx := newScriptFixture(t, "")
	p := fx.addProject(t, "proj-1", models.LicenseModePaid)
	fx.addKey(t, p.ID, "key-1")

	out := fx.svc.Serve(context.Background(), ScriptRequest{
		ProjectID:   p.ID,
		Fingerprint: "hwid-1",
		Key:         "key-1",
		UserAgent:   "Roblox/WinInet Windows",
	})

	require.Equal(t, composer.KindGranted, out.Kind)
	body := string(out.Body)
	assert.Contains(t, body, `userid = "42"`)
	assert.Contains(t, body, `hwid = "hwid-1"`)
	assert.True(t, strings.HasSuffix(body, "print('hello')\n"))

	assert.Equal(t, 1, fx.fetcher.calls)
	assert.Equal(t, "scripts", fx.fetcher.last.Repo)

	execs, _ := fx.rm.executions.List(context.Background(), p.ID, 10)
	require.Len(t, execs, 1)
	assert.Equal(t, "42", execs[0].OwnerIdentity)
	assert.Equal(t, models.ExecutionDesktop, execs[0].Type)

	assert.Equal(t, []string{"granted/"}, fx.obs.decisions)
	assert.Equal(t, []bool{true}, fx.obs.fetches)
}

func TestServe_DeniedDoesNotFetchOrRecord(t *testing.T) {
	fx := newScriptFixture(t, "")
	p := fx.addProject(t, "proj-1", models.LicenseModePaid)

	out := fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: p.ID, Fingerprint: "hwid-1"})

	assert.Equal(t, composer.KindDenied, out.Kind)
	assert.Equal(t, gate.ReasonMissingKey, out.Reason)
	assert.Contains(t, string(out.Body), "No key provided")
	assert.Zero(t, fx.fetcher.calls)
	n, _ := fx.rm.executions.Count(context.Background(), p.ID)
	assert.Zero(t, n)
	assert.Equal(t, []string{"denied/missing_key"}, fx.obs.decisions)
}

func TestServe_FreePaywall(t *testing.T) {
	fx := newScriptFixture(t, "")
	p := fx.addProject(t, "free", models.LicenseModeFreePaywall)

	out := fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: p.ID, Fingerprint: "hwid-1"})

	require.Equal(t, composer.KindGranted, out.Kind)
	assert.Contains(t, string(out.Body), "is_premium = false")
	n, _ := fx.rm.executions.Count(context.Background(), p.ID)
	assert.Equal(t, int64(1), n)
}

func TestServe_NoProjectIsNotConfigured(t *testing.T) {
	fx := newScriptFixture(t, "")

	out := fx.svc.Serve(context.Background(), ScriptRequest{Fingerprint: "hwid-1"})
	assert.Equal(t, gate.ReasonNotConfigured, out.Reason)

	out = fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: "nope", Fingerprint: "hwid-1"})
	assert.Equal(t, gate.ReasonNotConfigured, out.Reason)
}

func TestServe_ProjectResolution(t *testing.T) {
	t.Run("oldest project when nothing is configured", func(t *testing.T) {
		fx := newScriptFixture(t, "")
		fx.addProject(t, "first", models.LicenseModeFreePaywall)
		fx.addProject(t, "second", models.LicenseModePaid)

		out := fx.svc.Serve(context.Background(), ScriptRequest{Fingerprint: "hwid-1"})
		assert.Equal(t, composer.KindGranted, out.Kind)
	})

	t.Run("configured default project", func(t *testing.T) {
		fx := newScriptFixture(t, "second")
		fx.addProject(t, "first", models.LicenseModeFreePaywall)
		fx.addProject(t, "second", models.LicenseModePaid)

		out := fx.svc.Serve(context.Background(), ScriptRequest{Fingerprint: "hwid-1"})
		assert.Equal(t, gate.ReasonMissingKey, out.Reason)
	})
}

func TestServe_FetchFailure(t *testing.T) {
	fx := newScriptFixture(t, "")
	p := fx.addProject(t, "free", models.LicenseModeFreePaywall)
	p.CompanionLink = "https://discord.gg/x"
	require.NoError(t, fx.rm.projects.Update(context.Background(), p))
	fx.fetcher.err = assets.ErrNotFound

	out := fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: p.ID, Fingerprint: "hwid-1"})

	assert.Equal(t, composer.KindFetchFailure, out.Kind)
	assert.Equal(t, gate.ReasonFetchFailure, out.Reason)
	assert.Contains(t, string(out.Body), "Failed to fetch script")
	assert.Contains(t, string(out.Body), "setclipboard")
	assert.Equal(t, []bool{false}, fx.obs.fetches)
}

func TestServe_ProjectLookupErrorAborts(t *testing.T) {
	fx := newScriptFixture(t, "")
	fx.rm.projects.failGet = errors.New("db down")

	out := fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: "p", Fingerprint: "hwid-1"})

	assert.Equal(t, composer.KindDenied, out.Kind)
	assert.Equal(t, gate.ReasonInternal, out.Reason)
	assert.Equal(t, []string{"denied/internal"}, fx.obs.decisions)
}

func TestServe_RecorderErrorStillGrants(t *testing.T) {
	fx := newScriptFixture(t, "")
	p := fx.addProject(t, "free", models.LicenseModeFreePaywall)
	fx.rm.executions.err = errors.New("insert failed")

	out := fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: p.ID, Fingerprint: "hwid-1"})

	assert.Equal(t, composer.KindGranted, out.Kind)
	assert.Equal(t, 1, fx.obs.analyticsError)
}

type hangingWriter struct{}

func (hangingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func (hangingWriter) Close() error { return nil }

func TestServe_StalledAnalyticsDoesNotDelayGrant(t *testing.T) {
	fx := newScriptFixture(t, "")
	p := fx.addProject(t, "free", models.LicenseModeFreePaywall)

	kr := analytics.NewKafkaRecorder(hangingWriter{}, logging.Nop(), analytics.WithWriteTimeout(time.Second))
	fx.svc.recorder = analytics.MultiRecorder{analytics.NewPostgresRecorder(fx.rm.executions), kr}

	start := time.Now()
	for i := 0; i < 3; i++ {
		out := fx.svc.Serve(context.Background(), ScriptRequest{ProjectID: p.ID, Fingerprint: "hwid-1"})
		assert.Equal(t, composer.KindGranted, out.Kind)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, 3, fx.fetcher.calls)

	require.NoError(t, kr.Close())
}
