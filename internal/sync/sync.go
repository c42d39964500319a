package sync

import (
	"cmp"
	"context"
	"slices"
	stdsync "sync"
	"time"

	"codeberg.org/mutker/healthsync/internal/aggregate"
	"codeberg.org/mutker/healthsync/internal/api"
	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/store"
)

// Backend is the part of the API client the orchestrator calls
type Backend interface {
	PostDaily(ctx context.Context, upload api.DailyUpload) (api.DailyAck, error)
	PostBatch(ctx context.Context, upload api.BatchUpload) (api.BatchAck, error)
	History(ctx context.Context, start, end time.Time, granularity string) (api.HistoryPage, error)
	Latest(ctx context.Context) (api.Latest, error)
	DeleteRange(ctx context.Context, start, end time.Time, all bool) (int, error)
}

// Collector produces the record for one day
type Collector interface {
	Day(ctx context.Context, day time.Time) (health.DailyRecord, aggregate.Report)
}

// Recorder receives sync outcomes for metrics
type Recorder interface {
	SyncAttempt(mode, result string)
	RecordsSynced(n int)
}

// Outcome labels passed to Recorder
const (
	ModeBatch = "batch"
	ModeToday = "today"

	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultThrottled = "throttled"
	ResultDisabled  = "disabled"
	ResultEmpty     = "empty"
)

type Options struct {
	// DaysBack overrides the configured window; capped at MaxDaysBack
	DaysBack int
	// Force skips the throttle check
	Force bool
}

// Result is returned on every path. Failures carry Err and a message fit
// for end users; they are never returned as a Go error.
type Result struct {
	Success   bool
	Synced    int
	Skipped   int
	Errors    []api.BatchError
	Throttled bool
	Disabled  bool
	Err       errors.Error
	Message   string
}

type Status struct {
	Enabled     bool
	LastSync    time.Time
	HasSynced   bool
	NextAllowed time.Time
	Pending     int
}

type Orchestrator struct {
	cfg       Config
	loc       *time.Location
	collector Collector
	backend   Backend
	store     store.Store
	clock     clock.Clock
	logger    logger.Logger
	recorder  Recorder

	// held for a whole run so concurrent callers cannot both pass the throttle
	mu stdsync.Mutex
}

type Option func(*Orchestrator)

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

func New(cfg Config, collector Collector, backend Backend, st store.Store, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := time.LoadLocation(cfg.Timezone)

	o := &Orchestrator{
		cfg:       cfg,
		loc:       loc,
		collector: collector,
		backend:   backend,
		store:     st,
		clock:     clock.System(),
		logger:    log,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SyncBatch collects recent days and uploads them in one request
func (o *Orchestrator) SyncBatch(ctx context.Context, opts Options) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	if res, done := o.gate(ctx, ModeBatch, now, opts.Force); done {
		return res
	}

	days := opts.DaysBack
	if days <= 0 {
		days = o.cfg.DaysBack
	}
	days = min(days, MaxDaysBack)

	records, oldest := o.collect(ctx, now, days)
	records, err := o.withLeftovers(ctx, records, oldest)
	if err != nil {
		return o.fail(ModeBatch, err)
	}
	if len(records) == 0 {
		o.logger.Debug().Int("days", days).Msg("No health data to sync")
		o.recorder.SyncAttempt(ModeBatch, ResultEmpty)
		return Result{Success: true}
	}

	upload := api.BatchUpload{Upload: o.upload(), Records: make([]api.BatchRecord, 0, len(records))}
	for _, r := range records {
		upload.Records = append(upload.Records, api.BatchRecord{
			RecordedAt: o.recordedAt(r),
			Metrics:    r,
		})
	}

	ack, err := o.backend.PostBatch(ctx, upload)
	if err != nil {
		return o.fail(ModeBatch, err)
	}

	o.confirm(ctx, now, records)
	o.recorder.SyncAttempt(ModeBatch, ResultSuccess)
	o.recorder.RecordsSynced(ack.Synced)

	o.logger.Info().
		Int("sent", len(records)).
		Int("synced", ack.Synced).
		Int("skipped", ack.Skipped).
		Int("errors", len(ack.Errors)).
		Msg("Batch sync complete")

	return Result{
		Success: true,
		Synced:  ack.Synced,
		Skipped: ack.Skipped,
		Errors:  ack.Errors,
	}
}

// SyncToday uploads the current day's record on its own. It shares the
// cursor with SyncBatch, so either path throttles the other.
func (o *Orchestrator) SyncToday(ctx context.Context, force bool) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	if res, done := o.gate(ctx, ModeToday, now, force); done {
		return res
	}

	records, _ := o.collect(ctx, now, 1)
	if len(records) == 0 {
		o.recorder.SyncAttempt(ModeToday, ResultEmpty)
		return Result{Success: true}
	}
	record := records[0]

	_, err := o.backend.PostDaily(ctx, api.DailyUpload{
		Upload:     o.upload(),
		RecordedAt: o.recordedAt(record),
		Metrics:    record,
	})
	if err != nil {
		return o.fail(ModeToday, err)
	}

	o.confirm(ctx, now, records)
	o.recorder.SyncAttempt(ModeToday, ResultSuccess)
	o.recorder.RecordsSynced(1)
	o.logger.Info().Str("date", record.Date).Msg("Today's health data synced")

	return Result{Success: true, Synced: 1}
}

// gate applies the enabled flag and the throttle. done is true when the
// run must stop with res.
func (o *Orchestrator) gate(ctx context.Context, mode string, now time.Time, force bool) (res Result, done bool) {
	enabled, err := o.store.SyncEnabled(ctx)
	if err != nil {
		return o.fail(mode, errors.New().Wrap(ErrStateRead, err)), true
	}
	if !enabled {
		o.logger.Debug().Str("mode", mode).Msg("Sync disabled, skipping")
		o.recorder.SyncAttempt(mode, ResultDisabled)
		return Result{Success: true, Disabled: true}, true
	}

	if force {
		return Result{}, false
	}

	last, ok, err := o.store.LastSync(ctx)
	if err != nil {
		return o.fail(mode, errors.New().Wrap(ErrStateRead, err)), true
	}
	if ok && now.Sub(last) < o.cfg.Throttle {
		o.logger.Debug().
			Str("mode", mode).
			Time("last_sync", last).
			Dur("since", now.Sub(last)).
			Msg("Sync throttled")
		o.recorder.SyncAttempt(mode, ResultThrottled)
		return Result{Success: true, Throttled: true}, true
	}

	return Result{}, false
}

// collect aggregates today and the days before it, newest first. Days
// with data are saved as pending. Pending rows for days that now aggregate
// empty are superseded and dropped. oldest is the first date of the window.
func (o *Orchestrator) collect(ctx context.Context, now time.Time, days int) (records []health.DailyRecord, oldest string) {
	today := now.In(o.loc)
	oldest = health.DateOf(today.AddDate(0, 0, -(days - 1)))

	var empty []string
	for i := range days {
		if ctx.Err() != nil {
			break
		}
		day := today.AddDate(0, 0, -i)
		record, _ := o.collector.Day(ctx, day)
		if record.IsEmpty() {
			empty = append(empty, health.DateOf(day))
			continue
		}
		records = append(records, record.WithScore())
	}

	if len(records) > 0 {
		if err := o.store.SavePending(ctx, records); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to save pending records")
		}
	}
	if len(empty) > 0 {
		if err := o.store.DeletePending(ctx, empty); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to drop superseded pending records")
		}
	}
	return records, oldest
}

// withLeftovers appends pending records dated before oldest, newest first,
// until the batch holds MaxDaysBack records. The rest stay pending.
func (o *Orchestrator) withLeftovers(ctx context.Context, records []health.DailyRecord, oldest string) ([]health.DailyRecord, error) {
	pending, err := o.store.Pending(ctx)
	if err != nil {
		return nil, errors.New().Wrap(ErrStateRead, err)
	}

	var older []health.DailyRecord
	for _, p := range pending {
		if p.Date < oldest && !p.IsEmpty() {
			older = append(older, p)
		}
	}
	slices.SortFunc(older, func(a, b health.DailyRecord) int {
		return cmp.Compare(b.Date, a.Date)
	})

	room := MaxDaysBack - len(records)
	if room <= 0 {
		return records, nil
	}
	if len(older) > room {
		o.logger.Debug().
			Int("deferred", len(older)-room).
			Msg("Batch full, leaving older pending records for the next run")
		older = older[:room]
	}
	return append(records, older...), nil
}

// confirm moves the cursor and drops the records the backend accepted
func (o *Orchestrator) confirm(ctx context.Context, now time.Time, sent []health.DailyRecord) {
	if err := o.store.SetLastSync(ctx, now); err != nil {
		o.logger.ErrorWithContext(errors.New().Wrap(ErrStateWrite, err), "sync", "set_cursor").
			Msg("Failed to persist sync cursor")
	}

	dates := make([]string, 0, len(sent))
	for _, r := range sent {
		dates = append(dates, r.Date)
	}
	if err := o.store.DeletePending(ctx, dates); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to clear pending records")
	}
}

func (o *Orchestrator) fail(mode string, err error) Result {
	classified := errors.FromTransport(err)
	o.recorder.SyncAttempt(mode, ResultFailure)
	o.logger.ErrorWithContext(classified, "sync", mode).
		Bool("retryable", classified.IsRetryable()).
		Msg("Sync failed")

	return Result{
		Err:     classified,
		Message: classified.UserMessage(),
	}
}

func (o *Orchestrator) upload() api.Upload {
	return api.Upload{
		Source:     o.cfg.Source,
		DeviceType: o.cfg.DeviceType,
		Timezone:   o.cfg.Timezone,
	}
}

func (o *Orchestrator) recordedAt(r health.DailyRecord) string {
	t, err := r.RecordedAt(o.loc)
	if err != nil {
		return r.Date
	}
	return t.Format(time.RFC3339)
}

// Status reports the local sync state without touching the network
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	enabled, err := o.store.SyncEnabled(ctx)
	if err != nil {
		return Status{}, errors.New().Wrap(ErrStateRead, err)
	}
	last, ok, err := o.store.LastSync(ctx)
	if err != nil {
		return Status{}, errors.New().Wrap(ErrStateRead, err)
	}
	pending, err := o.store.Pending(ctx)
	if err != nil {
		return Status{}, errors.New().Wrap(ErrStateRead, err)
	}

	st := Status{
		Enabled:   enabled,
		HasSynced: ok,
		Pending:   len(pending),
	}
	if ok {
		st.LastSync = last
		st.NextAllowed = last.Add(o.cfg.Throttle)
	}
	return st, nil
}

func (o *Orchestrator) SetEnabled(ctx context.Context, enabled bool) error {
	if err := o.store.SetSyncEnabled(ctx, enabled); err != nil {
		return errors.New().Wrap(ErrStateWrite, err)
	}
	o.logger.Info().Bool("enabled", enabled).Msg("Sync setting changed")
	return nil
}

// History returns the backend's daily records for the last days days
func (o *Orchestrator) History(ctx context.Context, days int) (api.HistoryPage, error) {
	end := o.clock.Now().In(o.loc)
	start := end.AddDate(0, 0, -max(days-1, 0))
	return o.backend.History(ctx, start, end, "day")
}

func (o *Orchestrator) Latest(ctx context.Context) (api.Latest, error) {
	return o.backend.Latest(ctx)
}

// DeleteRemote removes stored records for the last days days, or all of
// them when days is zero or less
func (o *Orchestrator) DeleteRemote(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return o.backend.DeleteRange(ctx, time.Time{}, time.Time{}, true)
	}
	end := o.clock.Now().In(o.loc)
	return o.backend.DeleteRange(ctx, end.AddDate(0, 0, -(days-1)), end, false)
}

type nopRecorder struct{}

func (nopRecorder) SyncAttempt(string, string) {}
func (nopRecorder) RecordsSynced(int)          {}
