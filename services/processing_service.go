package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cargaslack/carga/dashboard"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg/metrics"
	"github.com/cargaslack/carga/pkg/sheets"
	"github.com/cargaslack/carga/pkg/slack"
	"github.com/cargaslack/carga/repository"
	"github.com/cargaslack/carga/ws"
)

// Trigger says what started a processing run.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerSchedule Trigger = "schedule"
)

// ErrRunInProgress is returned by Run while another run is active.
var ErrRunInProgress = errors.New("a processing run is already in progress")

// ErrProcessingStopped is returned once Stop has been called.
var ErrProcessingStopped = errors.New("processing service is stopped")

// RunSummary describes a finished run.
type RunSummary struct {
	RunID     string
	Trigger   Trigger
	Sites     int
	Succeeded int
	Failed    int
	Took      time.Duration
}

// ProcessingService is the batch job: for every active site it reads the
// last row of the mapped sheet, logs the four values and posts a summary to
// the squad's Slack webhook. At most one run is active at a time.
type ProcessingService interface {
	// Start launches the scheduler; a zero interval leaves only manual runs.
	Start()
	// Stop cancels an in-flight run and waits for it to return.
	Stop()
	// Run processes synchronously.
	Run(ctx context.Context, trigger Trigger) (*RunSummary, error)
	// RunAsync starts a run in the background. When one is already active
	// it returns that run's ID and started=false.
	RunAsync(trigger Trigger) (runID string, started bool, err error)
	Running() bool
}

type processingService struct {
	siteRepo  repository.SiteRepository
	logRepo   repository.LogRepository
	squads    SquadService
	reader    SheetFetcher
	notifier  slack.Notifier
	publisher ws.EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	interval time.Duration
	workers  int

	// Runs inherit baseCtx so Stop can cancel them.
	baseCtx context.Context
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	running  bool
	stopped  bool
	runID    string
	stopOnce sync.Once
}

// ProcessingDeps groups the collaborators of the processing service.
type ProcessingDeps struct {
	Sites     repository.SiteRepository
	Logs      repository.LogRepository
	Squads    SquadService
	Reader    SheetFetcher
	Notifier  slack.Notifier
	Publisher ws.EventPublisher
	Metrics   *metrics.Metrics
}

// NewProcessingService wires the job. workers bounds how many sheets are
// read at once.
func NewProcessingService(deps ProcessingDeps, interval time.Duration, workers int, logger *zap.Logger) ProcessingService {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &processingService{
		siteRepo:  deps.Sites,
		logRepo:   deps.Logs,
		squads:    deps.Squads,
		reader:    deps.Reader,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    logger,
		interval:  interval,
		workers:   workers,
		baseCtx:   ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
	}
}

func (p *processingService) Start() {
	if p.interval <= 0 {
		p.logger.Info("scheduler disabled, manual runs only")
		return
	}

	p.logger.Info("scheduler started", zap.Duration("interval", p.interval), zap.Int("workers", p.workers))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, started, err := p.RunAsync(TriggerSchedule); err == nil && !started {
					p.logger.Info("scheduled run skipped, previous run still active")
				}
			case <-p.stopCh:
				return
			}
		}
	}()
}

func (p *processingService) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		close(p.stopCh)
		p.cancel()
		p.wg.Wait()
		p.logger.Info("processing stopped")
	})
}

func (p *processingService) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *processingService) Run(ctx context.Context, trigger Trigger) (*RunSummary, error) {
	runID, err := p.begin()
	if err != nil {
		return nil, err
	}
	defer p.finish()
	return p.run(ctx, runID, trigger), nil
}

func (p *processingService) RunAsync(trigger Trigger) (string, bool, error) {
	runID, err := p.begin()
	if errors.Is(err, ErrRunInProgress) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.runID, false, nil
	}
	if err != nil {
		return "", false, err
	}

	go func() {
		defer p.finish()
		p.run(p.baseCtx, runID, trigger)
	}()
	return runID, true, nil
}

// begin claims the single run slot. The WaitGroup is incremented under the
// same lock that checks stopped, so once Stop has set the flag no new run
// can slip in after wg.Wait returns. Every successful begin must be paired
// with finish.
func (p *processingService) begin() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return "", ErrProcessingStopped
	}
	if p.running {
		return "", ErrRunInProgress
	}
	p.running = true
	p.runID = uuid.NewString()
	p.wg.Add(1)
	return p.runID, nil
}

func (p *processingService) finish() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.wg.Done()
}

// siteOutcome is what one worker reports back for aggregation.
type siteOutcome struct {
	site       models.Site
	financials dashboard.Financials
	ok         bool
}

func (p *processingService) run(ctx context.Context, runID string, trigger Trigger) *RunSummary {
	start := time.Now()
	logger := p.logger.With(zap.String("run_id", runID), zap.String("trigger", string(trigger)))
	summary := &RunSummary{RunID: runID, Trigger: trigger}

	if p.metrics != nil {
		p.metrics.ProcessRuns.WithLabelValues(string(trigger)).Inc()
	}

	sites, err := p.siteRepo.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list active sites", zap.Error(err))
		sites = nil
	}
	summary.Sites = len(sites)

	p.publish(ws.Event{Op: ws.OpProcessingStarted, Data: ws.ProcessingStartedData{
		RunID:     runID,
		Trigger:   string(trigger),
		Sites:     len(sites),
		StartedAt: start.UTC(),
	}})
	logger.Info("processing started", zap.Int("sites", len(sites)))

	hooks, err := p.squads.Webhooks(ctx)
	if err != nil {
		logger.Warn("failed to load squad webhooks, slack posts skipped", zap.Error(err))
		hooks = map[string]string{}
	}

	outcomes := make([]siteOutcome, len(sites))
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i := range sites {
		site := sites[i]
		g.Go(func() error {
			outcomes[i] = p.processSite(ctx, runID, site, hooks[site.SquadName], logger)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	p.writeSquadSummaries(ctx, runID, outcomes, logger)

	summary.Took = time.Since(start)
	if p.metrics != nil {
		p.metrics.ProcessTime.Observe(summary.Took.Seconds())
	}

	p.publish(ws.Event{Op: ws.OpProcessingFinished, Data: ws.ProcessingFinishedData{
		RunID:      runID,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		FinishedAt: time.Now().UTC(),
	}})
	logger.Info("processing finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", summary.Took))

	return summary
}

func (p *processingService) processSite(ctx context.Context, runID string, site models.Site, webhook string, logger *zap.Logger) siteOutcome {
	outcome := siteOutcome{site: site}

	f, err := p.readFinancials(ctx, &site)
	if err != nil {
		logger.Warn("site failed", zap.String("site", site.Name), zap.Error(err))
		p.countSite(models.LogError)
		p.writeLog(ctx, &models.ProcessingLog{
			SiteName: site.Name,
			Status:   models.LogError,
			Message:  "Erro: " + err.Error(),
			RunID:    runID,
		})
		return outcome
	}

	outcome.financials = f
	outcome.ok = true
	p.countSite(models.LogSuccess)
	p.writeLog(ctx, &models.ProcessingLog{
		SiteName: site.Name,
		Status:   models.LogSuccess,
		Message:  dashboard.FormatFinancials(f),
		RunID:    runID,
	})

	if webhook != "" {
		err := p.notifier.Post(ctx, webhook, slack.SummaryText(site.Name, f.ROAS, f.MC))
		if p.metrics != nil {
			p.metrics.SlackPosts.WithLabelValues(metrics.Result(err)).Inc()
		}
		if err != nil {
			logger.Warn("slack post failed", zap.String("site", site.Name), zap.String("squad", site.SquadName), zap.Error(err))
		}
	}
	return outcome
}

// readFinancials takes the four mapped cells of the last data row, read
// fresh on every run.
func (p *processingService) readFinancials(ctx context.Context, site *models.Site) (dashboard.Financials, error) {
	wb, err := p.reader.Fetch(ctx, site.SheetURL)
	if p.metrics != nil {
		p.metrics.SheetFetches.WithLabelValues(metrics.Result(err)).Inc()
	}
	if err != nil {
		return dashboard.Financials{}, err
	}

	tab, err := siteTab(wb, site)
	if err != nil {
		return dashboard.Financials{}, err
	}
	row, ok := tab.LastRow()
	if !ok {
		return dashboard.Financials{}, fmt.Errorf("sheet %q has no data rows", tab.Name)
	}

	values := make([]string, 0, 4)
	for _, m := range siteMetrics(site) {
		v, ok := sheets.Cell(row, m.index)
		if !ok {
			return dashboard.Financials{}, fmt.Errorf("column %d (%s) is outside the last row", m.index, m.metric)
		}
		values = append(values, v)
	}
	return dashboard.Financials{
		Investimento: values[0],
		Receita:      values[1],
		ROAS:         values[2],
		MC:           values[3],
	}, nil
}

// writeSquadSummaries adds one "[SQUAD] name" info row per squad with at
// least one successful site, in site order.
func (p *processingService) writeSquadSummaries(ctx context.Context, runID string, outcomes []siteOutcome, logger *zap.Logger) {
	var order []string
	totals := make(map[string]*dashboard.SquadRollup)

	for _, o := range outcomes {
		if !o.ok || o.site.SquadName == "" {
			continue
		}
		r, ok := totals[o.site.SquadName]
		if !ok {
			r = &dashboard.SquadRollup{Squad: o.site.SquadName}
			totals[o.site.SquadName] = r
			order = append(order, o.site.SquadName)
		}
		inv, rec, _, _ := o.financials.Numbers()
		r.Investimento += inv
		r.Receita += rec
		r.Sites++
	}

	for _, name := range order {
		r := totals[name]
		p.writeLog(ctx, &models.ProcessingLog{
			SiteName: models.SquadSummaryName(name),
			Status:   models.LogInfo,
			Message:  fmt.Sprintf("ROAS %s, MC %s", dashboard.FormatRatio(r.ROAS()), dashboard.FormatRatio(r.MC())),
			RunID:    runID,
		})
		logger.Debug("squad summary written", zap.String("squad", name), zap.Int("sites", r.Sites))
	}
}

// writeLog persists a row and pushes it to websocket clients. A run that
// was cancelled still records its rows.
func (p *processingService) writeLog(ctx context.Context, log *models.ProcessingLog) {
	if err := p.logRepo.Create(context.WithoutCancel(ctx), log); err != nil {
		p.logger.Error("failed to write processing log", zap.String("site", log.SiteName), zap.Error(err))
		return
	}
	p.publish(ws.Event{Op: ws.OpLogCreated, Data: *log})
}

func (p *processingService) publish(event ws.Event) {
	if p.publisher != nil {
		p.publisher.BroadcastToAll(event)
	}
}

func (p *processingService) countSite(status models.LogStatus) {
	if p.metrics != nil {
		p.metrics.SiteResults.WithLabelValues(string(status)).Inc()
	}
}
