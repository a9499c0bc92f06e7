// Package prediction runs the crop, fertilizer and plant disease pipelines: input
// validation, feature assembly, model inference, label decoding, result persistence
// and history queries.
package prediction

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agridoctor-back/internal/database"
	"agridoctor-back/internal/events"
	"agridoctor-back/internal/metrics"
	"agridoctor-back/internal/ml"
)

const (
	DefaultTopK         = 5
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
	defaultMaxImageSize = 10 * 1024 * 1024

	kindCrop       = "crop"
	kindFertilizer = "fertilizer"
	kindDisease    = "disease"
)

var tracer = otel.Tracer("agridoctor-back/prediction")

// ImageArchive keeps a copy of uploaded leaf images.
type ImageArchive interface {
	UploadFromReader(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// Caller identifies the authenticated user a prediction is recorded for.
type Caller struct {
	ID    string
	Email string
}

// Deps are the collaborators of a Service. Tabular and Image may be nil when the
// corresponding model is not loaded; Archive, Events and Metrics are optional.
type Deps struct {
	Tabular      ml.TabularModel
	Image        ml.ImageModel
	Store        database.Store
	Archive      ImageArchive
	Events       events.Publisher
	Metrics      *metrics.Metrics
	MaxImageSize int64
	TopK         int
	Now          func() time.Time
}

type Service struct {
	tabular      ml.TabularModel
	image        ml.ImageModel
	store        database.Store
	archive      ImageArchive
	events       events.Publisher
	metrics      *metrics.Metrics
	maxImageSize int64
	topK         int
	now          func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		tabular:      d.Tabular,
		image:        d.Image,
		store:        d.Store,
		archive:      d.Archive,
		events:       d.Events,
		metrics:      d.Metrics,
		maxImageSize: d.MaxImageSize,
		topK:         d.TopK,
		now:          d.Now,
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.maxImageSize <= 0 {
		s.maxImageSize = defaultMaxImageSize
	}
	if s.topK <= 0 {
		s.topK = DefaultTopK
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Status reports which models are loaded.
type Status struct {
	CropModel    bool `json:"crop_model"`
	DiseaseModel bool `json:"disease_model"`
}

func (s *Service) Status() Status {
	return Status{CropModel: s.tabular != nil, DiseaseModel: s.image != nil}
}

func (s *Service) MaxImageSize() int64 { return s.maxImageSize }

// persist stores a finished prediction and announces it. Failures are logged and
// counted; the caller still receives its result.
func (s *Service) persist(ctx context.Context, kind string, save func(context.Context) error, payload any) bool {
	err := save(ctx)
	s.metrics.ObserveStorage("save_"+kind, err)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save prediction", "kind", kind, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return false
	}

	err = s.events.PublishPrediction(ctx, kind, payload)
	s.metrics.ObserveEvent(events.Subject(kind), err)
	if err != nil {
		slog.WarnContext(ctx, "failed to publish prediction event", "kind", kind, "error", err)
	}
	return true
}

// fail marks the span and counts the outcome of a rejected request.
func (s *Service) fail(span trace.Span, kind, outcome string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	s.metrics.ObservePrediction(kind, outcome)
	return err
}

// ClampLimit maps a requested history size onto [1, MaxHistoryLimit], with zero or
// negative meaning DefaultHistoryLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
