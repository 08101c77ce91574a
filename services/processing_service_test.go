package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg/metrics"
	"github.com/cargaslack/carga/pkg/sheets"
	"github.com/cargaslack/carga/ws"
)

type processingFixture struct {
	env       *testEnv
	svc       ProcessingService
	notifier  *fakeNotifier
	publisher *fakePublisher
	metrics   *metrics.Metrics
}

func newProcessingFixture(t *testing.T, interval time.Duration) *processingFixture {
	t.Helper()
	return newProcessingFixtureWith(t, interval, &fakeReader{books: map[string]*sheets.Workbook{sheetURL: reportWorkbook()}})
}

func newProcessingFixtureWith(t *testing.T, interval time.Duration, reader SheetFetcher) *processingFixture {
	t.Helper()
	ctx := context.Background()
	env := newTestEnv(t)

	squads := NewSquadService(env.squads, nil, nop)
	sites := NewSiteService(env.db.Conn, env.sites, &fakeReader{}, nop)

	_, err := squads.Create(ctx, &models.CreateSquadRequest{Name: "Alpha", WebhookURL: "https://hooks.example.com/alpha"})
	require.NoError(t, err)

	_, err = sites.Create(ctx, newSiteRequest("boa", "Alpha", 5))
	require.NoError(t, err)
	_, err = sites.Create(ctx, newSiteRequest("quebrada", "Alpha", 12))
	require.NoError(t, err)
	paused := newSiteRequest("pausada", "Alpha", 5)
	paused.Status = models.SiteInactive
	_, err = sites.Create(ctx, paused)
	require.NoError(t, err)

	f := &processingFixture{
		env:       env,
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		metrics:   metrics.New(),
	}
	f.svc = NewProcessingService(ProcessingDeps{
		Sites:     env.sites,
		Logs:      env.logs,
		Squads:    squads,
		Reader:    reader,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Metrics:   f.metrics,
	}, interval, 2, nop)
	t.Cleanup(f.svc.Stop)
	return f
}

func TestProcessingRun(t *testing.T) {
	ctx := context.Background()
	f := newProcessingFixture(t, 0)

	summary, err := f.svc.Run(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sites)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	logs, err := f.env.logs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	bySite := make(map[string]models.ProcessingLog)
	for _, l := range logs {
		assert.Equal(t, summary.RunID, l.RunID)
		bySite[l.SiteName] = l
	}

	ok := bySite["boa"]
	assert.Equal(t, models.LogSuccess, ok.Status)
	assert.Equal(t, "Inv: R$ 50,00 | Rec: R$ 150,00 | ROAS: 3,00 | MC: R$ 100,00", ok.Message)

	failed := bySite["quebrada"]
	assert.Equal(t, models.LogError, failed.Status)
	assert.Contains(t, failed.Message, "column 12")

	squad := bySite["[SQUAD] Alpha"]
	assert.Equal(t, models.LogInfo, squad.Status)
	assert.Equal(t, "ROAS 3.00, MC 100.00", squad.Message)

	// The squad row is written after every site row.
	assert.Equal(t, "[SQUAD] Alpha", logs[0].SiteName)

	require.Len(t, f.notifier.posts, 1)
	assert.Equal(t, "https://hooks.example.com/alpha", f.notifier.posts[0].webhook)
	assert.Equal(t, "*boa*\nROAS: 3,00\nMC: R$ 100,00", f.notifier.posts[0].text)

	ops := f.publisher.ops()
	require.Len(t, ops, 5)
	assert.Equal(t, ws.OpProcessingStarted, ops[0])
	assert.Equal(t, ws.OpProcessingFinished, ops[4])
	assert.ElementsMatch(t, []string{ws.OpLogCreated, ws.OpLogCreated, ws.OpLogCreated}, ops[1:4])

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProcessRuns.WithLabelValues("manual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SiteResults.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SlackPosts.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SheetFetches.WithLabelValues("ok")))
}

func TestProcessingSlackFailureDoesNotFailSite(t *testing.T) {
	f := newProcessingFixture(t, 0)
	f.notifier.err = errors.New("invalid_token")

	summary, err := f.svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SlackPosts.WithLabelValues("error")))
}

func TestProcessingSingleFlight(t *testing.T) {
	f := newProcessingFixture(t, 0)
	p := f.svc.(*processingService)

	held, err := p.begin()
	require.NoError(t, err)
	assert.True(t, f.svc.Running())

	_, err = f.svc.Run(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrRunInProgress)

	runID, started, err := f.svc.RunAsync(TriggerManual)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, held, runID)

	p.finish()
	assert.False(t, f.svc.Running())
}

func TestProcessingRunAsyncAndStop(t *testing.T) {
	f := newProcessingFixture(t, 0)

	runID, started, err := f.svc.RunAsync(TriggerManual)
	require.NoError(t, err)
	require.True(t, started)
	assert.NotEmpty(t, runID)

	require.Eventually(t, func() bool { return !f.svc.Running() }, 5*time.Second, 10*time.Millisecond)

	f.svc.Stop()
	_, _, err = f.svc.RunAsync(TriggerManual)
	assert.ErrorIs(t, err, ErrProcessingStopped)
}

func TestProcessingScheduler(t *testing.T) {
	f := newProcessingFixture(t, 20*time.Millisecond)
	f.svc.Start()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.ProcessRuns.WithLabelValues("schedule")) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	f.svc.Stop()
}

// cachingReader behaves like sheets.Client: Workbook keeps the first copy it
// saw, Fetch always returns the current one.
type cachingReader struct {
	mu      sync.Mutex
	current *sheets.Workbook
	cached  *sheets.Workbook
}

func (c *cachingReader) Workbook(context.Context, string) (*sheets.Workbook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		c.cached = c.current
	}
	return c.cached, nil
}

func (c *cachingReader) Fetch(context.Context, string) (*sheets.Workbook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = c.current
	return c.current, nil
}

func (c *cachingReader) set(wb *sheets.Workbook) {
	c.mu.Lock()
	c.current = wb
	c.mu.Unlock()
}

func TestProcessingReadsFreshSheetEachRun(t *testing.T) {
	ctx := context.Background()
	reader := &cachingReader{current: reportWorkbook()}
	f := newProcessingFixtureWith(t, 0, reader)

	// A header lookup warms the cache before the first run.
	_, err := reader.Workbook(ctx, sheetURL)
	require.NoError(t, err)

	_, err = f.svc.Run(ctx, TriggerManual)
	require.NoError(t, err)

	edited := reportWorkbook()
	edited.Tabs[0].Rows = append(edited.Tabs[0].Rows,
		[]string{"03/01", "R$ 80,00", "", "R$ 400,00", "5,00", "R$ 320,00"})
	reader.set(edited)

	_, err = f.svc.Run(ctx, TriggerManual)
	require.NoError(t, err)

	logs, err := f.env.logs.ListRecent(ctx, 10)
	require.NoError(t, err)
	var latest *models.ProcessingLog
	for i := range logs {
		if logs[i].SiteName == "boa" {
			latest = &logs[i]
			break
		}
	}
	require.NotNil(t, latest)
	assert.Equal(t, "Inv: R$ 80,00 | Rec: R$ 400,00 | ROAS: 5,00 | MC: R$ 320,00", latest.Message)

	require.Len(t, f.notifier.posts, 2)
	assert.Equal(t, "*boa*\nROAS: 5,00\nMC: R$ 320,00", f.notifier.posts[1].text)
}

func TestStopWaitsForClaimedRun(t *testing.T) {
	f := newProcessingFixture(t, 0)
	p := f.svc.(*processingService)

	_, err := p.begin()
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		f.svc.Stop()
		close(stopped)
	}()

	isClosed := func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}
	require.Never(t, isClosed, 100*time.Millisecond, 10*time.Millisecond)

	p.finish()
	require.Eventually(t, isClosed, 5*time.Second, 10*time.Millisecond)

	_, _, err = f.svc.RunAsync(TriggerManual)
	assert.ErrorIs(t, err, ErrProcessingStopped)
}
