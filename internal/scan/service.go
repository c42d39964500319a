package scan

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/healthsync/internal/api"
	"codeberg.org/mutker/healthsync/internal/cache"
	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/ratelimit"
)

// Type is the kind of scan reported by the backend
type Type string

const (
	TypeBarcode      Type = "barcode"
	TypeFoodPhoto    Type = "food_photo"
	TypePill         Type = "pill"
	TypeProductLabel Type = "product_label"
	// legacy names still present in stored history
	TypeImage Type = "image"
	TypeLabel Type = "label"
)

// Backend is the part of the API client the service calls
type Backend interface {
	ScanBarcode(ctx context.Context, req api.BarcodeRequest) (json.RawMessage, error)
	ScanFoodPhoto(ctx context.Context, req api.ImageRequest) (json.RawMessage, error)
	ScanProductLabel(ctx context.Context, req api.ImageRequest) (json.RawMessage, error)
	ScanPill(ctx context.Context, req api.PillRequest) (json.RawMessage, error)
	ConfirmPill(ctx context.Context, req api.PillConfirmRequest) (api.PillConfirmResponse, error)
	ScanHistory(ctx context.Context, userID string, limit int, scanType string) (api.ScanHistoryResponse, error)
	DeleteScan(ctx context.Context, scanID int64, userID string) error
}

// Recorder receives scan outcomes for metrics
type Recorder interface {
	ScanCompleted(scanType, result string)
}

// Outcome is implemented by every result type so WithRetry can inspect
// failures that were captured rather than returned.
type Outcome interface {
	Failure() errors.Error
}

// Result is the outcome of a scan. Failures are captured here; only a
// refused rate limit or a missing user comes back as an error.
type Result struct {
	Success        bool
	Data           json.RawMessage
	ProcessingTime time.Duration
	Err            errors.Error
	Message        string
}

func (r Result) Failure() errors.Error {
	return r.Err
}

type PillConfirmation struct {
	Success         bool
	MedicationAdded bool
	Err             errors.Error
	Message         string
}

func (p PillConfirmation) Failure() errors.Error {
	return p.Err
}

type DeleteResult struct {
	Success bool
	Err     errors.Error
	Message string
}

func (d DeleteResult) Failure() errors.Error {
	return d.Err
}

// PillHints narrow down a pill identification
type PillHints struct {
	Imprint string
	Color   string
	Shape   string
}

type Service struct {
	cfg      Config
	loc      *time.Location
	backend  Backend
	limiter  *ratelimit.Limiter
	cache    cache.Store[HistoryResult]
	identity Identity
	clock    clock.Clock
	logger   logger.Logger
	recorder Recorder
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func New(
	cfg Config,
	backend Backend,
	limiter *ratelimit.Limiter,
	store cache.Store[HistoryResult],
	identity Identity,
	log logger.Logger,
	opts ...Option,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := time.LoadLocation(cfg.Timezone)

	s := &Service{
		cfg:      cfg,
		loc:      loc,
		backend:  backend,
		limiter:  limiter,
		cache:    store,
		identity: identity,
		clock:    clock.System(),
		logger:   log,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ScanBarcode looks up a product. With trackHistory the scan is stored
// server-side and the cached history is dropped.
func (s *Service) ScanBarcode(ctx context.Context, barcode string, trackHistory bool) (Result, error) {
	if barcode == "" {
		return Result{}, errors.New().WithMessage(ErrInvalidInput, "barcode is required")
	}
	return s.scan(ctx, TypeBarcode, trackHistory, func(userID string) (json.RawMessage, error) {
		return s.backend.ScanBarcode(ctx, api.BarcodeRequest{
			Barcode: barcode,
			UserContext: api.UserContext{
				UserID:             userID,
				TrackHistory:       trackHistory,
				IncludeCharts:      true,
				IncludeIngredients: true,
			},
		})
	})
}

func (s *Service) ScanFoodPhoto(ctx context.Context, image []byte, trackHistory bool) (Result, error) {
	if len(image) == 0 {
		return Result{}, errors.New().WithMessage(ErrInvalidInput, "image is required")
	}
	return s.scan(ctx, TypeFoodPhoto, trackHistory, func(userID string) (json.RawMessage, error) {
		return s.backend.ScanFoodPhoto(ctx, api.ImageRequest{
			Image: dataURI(image),
			UserContext: api.UserContext{
				UserID:        userID,
				TrackHistory:  trackHistory,
				IncludeCharts: true,
			},
		})
	})
}

func (s *Service) ScanProductLabel(ctx context.Context, image []byte, trackHistory bool) (Result, error) {
	if len(image) == 0 {
		return Result{}, errors.New().WithMessage(ErrInvalidInput, "image is required")
	}
	return s.scan(ctx, TypeProductLabel, trackHistory, func(userID string) (json.RawMessage, error) {
		return s.backend.ScanProductLabel(ctx, api.ImageRequest{
			Image: dataURI(image),
			UserContext: api.UserContext{
				UserID:       userID,
				TrackHistory: trackHistory,
			},
		})
	})
}

// ScanPill identifies a pill. Pill scans are not part of the scan
// history, so the cache is left alone.
func (s *Service) ScanPill(ctx context.Context, image []byte, hints PillHints) (Result, error) {
	if len(image) == 0 {
		return Result{}, errors.New().WithMessage(ErrInvalidInput, "image is required")
	}
	return s.scan(ctx, TypePill, false, func(userID string) (json.RawMessage, error) {
		return s.backend.ScanPill(ctx, api.PillRequest{
			Images: []string{dataURI(image)},
			Context: api.PillContext{
				UserID:  userID,
				Imprint: hints.Imprint,
				Color:   hints.Color,
				Shape:   hints.Shape,
			},
		})
	})
}

func (s *Service) ConfirmPill(ctx context.Context, scanID, rxcui string) (PillConfirmation, error) {
	userID, err := s.admit(ctx)
	if err != nil {
		return PillConfirmation{}, err
	}

	resp, err := s.backend.ConfirmPill(ctx, api.PillConfirmRequest{
		ScanID:        scanID,
		SelectedRxcui: rxcui,
		UserID:        userID,
	})
	if err != nil {
		classified := s.failed(TypePill, "confirm", err)
		s.recorder.ScanCompleted("pill_confirm", "failure")
		return PillConfirmation{Err: classified, Message: classified.UserMessage()}, nil
	}

	s.recorder.ScanCompleted("pill_confirm", "success")
	return PillConfirmation{
		Success:         resp.Success,
		MedicationAdded: resp.MedicationAdded,
		Message:         resp.Error,
	}, nil
}

// DeleteScan removes one scan and drops the user's cached history
func (s *Service) DeleteScan(ctx context.Context, scanID int64) (DeleteResult, error) {
	userID, err := s.identity.UserID(ctx)
	if err != nil {
		return DeleteResult{}, err
	}

	if err := s.backend.DeleteScan(ctx, scanID, userID); err != nil {
		classified := s.failed("", "delete", err)
		return DeleteResult{Err: classified, Message: classified.UserMessage()}, nil
	}

	s.invalidate(ctx, userID)
	s.logger.Info().Int64("scan_id", scanID).Msg("Scan deleted")
	return DeleteResult{Success: true}, nil
}

// ClearCache drops the signed-in user's cached history
func (s *Service) ClearCache(ctx context.Context) error {
	userID, err := s.identity.UserID(ctx)
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) scan(ctx context.Context, kind Type, trackHistory bool, call func(userID string) (json.RawMessage, error)) (Result, error) {
	userID, err := s.admit(ctx)
	if err != nil {
		return Result{}, err
	}

	started := s.clock.Now()
	data, err := call(userID)
	if err != nil {
		classified := s.failed(kind, "scan", err)
		s.recorder.ScanCompleted(string(kind), "failure")
		return Result{Err: classified, Message: classified.UserMessage()}, nil
	}
	elapsed := s.clock.Now().Sub(started)

	if trackHistory {
		s.invalidate(ctx, userID)
	}

	s.recorder.ScanCompleted(string(kind), "success")
	s.logger.Debug().
		Str("type", string(kind)).
		Dur("elapsed", elapsed).
		Msg("Scan completed")

	return Result{Success: true, Data: data, ProcessingTime: elapsed}, nil
}

// admit passes the rate limiter and resolves the user, in that order
func (s *Service) admit(ctx context.Context) (string, error) {
	if !consumeReservation(ctx) && !s.limiter.CanMakeRequest() {
		return "", ratelimit.Limited()
	}
	return s.identity.UserID(ctx)
}

func (s *Service) failed(kind Type, op string, err error) errors.Error {
	classified := errors.FromTransport(err)
	s.logger.ErrorWithContext(classified, "scan", op).
		Str("type", string(kind)).
		Bool("retryable", classified.IsRetryable()).
		Msg("Scan request failed")
	return classified
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to invalidate scan history cache")
	}
}

func dataURI(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

type nopRecorder struct{}

func (nopRecorder) ScanCompleted(string, string) {}
