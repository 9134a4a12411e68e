package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"image-captioner/internal/domain"
	"image-captioner/internal/imageprep"
)

const (
	maxLabels        = 3
	minConfidence    = 70
	defaultMaxTokens = 100
	defaultMaxEdge   = 1568

	paramModelID   = "model_id"
	paramMaxTokens = "max_tokens"
)

type Classifier interface {
	DetectLabels(ctx context.Context, bucket, key string, maxLabels int, minConfidence float32) ([]domain.Label, error)
}

type ObjectFetcher interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

type CaptionModel interface {
	Caption(ctx context.Context, model string, req domain.CaptionRequest) (string, error)
}

type CaptionStore interface {
	SaveCaption(ctx context.Context, bucket, key string, labels []domain.Label, caption, modelID, requestID string) error
}

type ParamLoader interface {
	LoadPrefix(ctx context.Context, prefix string) (map[string]string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Options configures a CaptionService. Store and Params are optional.
type Options struct {
	ModelID            string
	MaxTokens          int
	ContinueOnNonImage bool
	AttachImage        bool
	MaxImageEdge       int
	Store              CaptionStore
	Params             ParamLoader
	ParamPrefix        string
	Logger             *slog.Logger
}

type CaptionService struct {
	classifier Classifier
	fetcher    ObjectFetcher
	model      CaptionModel
	store      CaptionStore
	params     ParamLoader
	prepare    func(data []byte, maxEdge int) (domain.Image, error)
	log        *slog.Logger

	paramPrefix        string
	continueOnNonImage bool
	attachImage        bool
	maxImageEdge       int

	settingsMu     sync.RWMutex
	settingsLoaded bool
	modelID        string
	maxTokens      int
}

type ProcessInput struct {
	RequestID string
	Records   []domain.Notification
}

type ProcessOutput struct {
	// Completed is false when a non-image record ended the batch early.
	Completed bool
	Results   []RecordResult
}

type RecordResult struct {
	Bucket  string
	Key     string
	Skipped bool
	Labels  []domain.Label
	Caption string
}

type captionSettings struct {
	modelID   string
	maxTokens int
}

func NewCaptionService(c Classifier, f ObjectFetcher, m CaptionModel, opts Options) (*CaptionService, error) {
	if c == nil {
		return nil, errors.New("usecase: classifier must not be nil")
	}
	if f == nil {
		return nil, errors.New("usecase: object fetcher must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: caption model must not be nil")
	}
	modelID := strings.TrimSpace(opts.ModelID)
	if modelID == "" {
		return nil, errors.New("usecase: model id must not be empty")
	}
	paramPrefix := strings.TrimRight(strings.TrimSpace(opts.ParamPrefix), "/")
	if opts.Params != nil && paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty when params are configured")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.MaxImageEdge <= 0 {
		opts.MaxImageEdge = defaultMaxEdge
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CaptionService{
		classifier:         c,
		fetcher:            f,
		model:              m,
		store:              opts.Store,
		params:             opts.Params,
		prepare:            imageprep.Prepare,
		log:                opts.Logger,
		paramPrefix:        paramPrefix,
		continueOnNonImage: opts.ContinueOnNonImage,
		attachImage:        opts.AttachImage,
		maxImageEdge:       opts.MaxImageEdge,
		modelID:            modelID,
		maxTokens:          opts.MaxTokens,
	}, nil
}

// Process captions every record in order. The first failing record aborts
// the batch. A non-image record also ends the batch unless
// ContinueOnNonImage is set, in which case it is skipped.
func (s *CaptionService) Process(ctx context.Context, in ProcessInput) (ProcessOutput, error) {
	log := s.log.With("request_id", in.RequestID)
	out := ProcessOutput{Results: make([]RecordResult, 0, len(in.Records))}

	for _, n := range in.Records {
		res, err := s.processRecord(ctx, log, in.RequestID, n)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, res)
		if res.Skipped && !s.continueOnNonImage {
			return out, nil
		}
	}
	out.Completed = true
	return out, nil
}

func (s *CaptionService) processRecord(ctx context.Context, log *slog.Logger, requestID string, n domain.Notification) (RecordResult, error) {
	key, err := decodeKey(n.Key)
	if err != nil {
		return RecordResult{}, newError(ErrorDecode, "invalid_object_key", err)
	}
	log = log.With("bucket", n.Bucket, "key", key)
	log.Info("processing file")

	res := RecordResult{Bucket: n.Bucket, Key: key}
	if !isImageKey(key) {
		log.Info("not an image file, skipping")
		res.Skipped = true
		return res, nil
	}

	labels, err := s.classifier.DetectLabels(ctx, n.Bucket, key, maxLabels, minConfidence)
	if err != nil {
		return RecordResult{}, newError(ErrorClassification, upstreamReason("rekognition", err), err)
	}
	log.Info("top classifications", "labels", formatLabels(labels))

	data, err := s.fetcher.GetObject(ctx, n.Bucket, key)
	if err != nil {
		return RecordResult{}, newError(ErrorFetch, upstreamReason("s3", err), err)
	}
	log.Debug("image fetched", "bytes", len(data))

	settings, err := s.ensureSettings(ctx)
	if err != nil {
		return RecordResult{}, newError(ErrorConfig, "ssm_load_error", err)
	}

	req := domain.CaptionRequest{
		Prompt:    buildCaptionPrompt(labels),
		MaxTokens: settings.maxTokens,
	}
	if s.attachImage {
		img, err := s.prepare(data, s.maxImageEdge)
		if err != nil {
			return RecordResult{}, newError(ErrorCaption, "image_prepare_error", err)
		}
		req.Image = &img
	}

	caption, err := s.model.Caption(ctx, settings.modelID, req)
	if err != nil {
		return RecordResult{}, newError(ErrorCaption, upstreamReason("bedrock", err), err)
	}
	log.Info("caption generated", "labels", formatLabels(labels), "caption", caption)

	if s.store != nil {
		if err := s.store.SaveCaption(ctx, n.Bucket, key, labels, caption, settings.modelID, requestID); err != nil {
			return RecordResult{}, newError(ErrorCaption, "dynamodb_write_error", err)
		}
	}

	res.Labels = labels
	res.Caption = caption
	return res, nil
}

// ensureSettings resolves the model id and token limit, applying Parameter
// Store overrides once per process. A failed load is retried on the next call.
func (s *CaptionService) ensureSettings(ctx context.Context) (captionSettings, error) {
	s.settingsMu.RLock()
	if s.params == nil || s.settingsLoaded {
		defer s.settingsMu.RUnlock()
		return captionSettings{modelID: s.modelID, maxTokens: s.maxTokens}, nil
	}
	s.settingsMu.RUnlock()

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	if !s.settingsLoaded {
		if err := s.loadOverrides(ctx); err != nil {
			return captionSettings{}, err
		}
		s.settingsLoaded = true
	}
	return captionSettings{modelID: s.modelID, maxTokens: s.maxTokens}, nil
}

func (s *CaptionService) loadOverrides(ctx context.Context) error {
	vals, err := s.params.LoadPrefix(ctx, s.paramPrefix)
	if err != nil {
		return fmt.Errorf("usecase: load overrides: %w", err)
	}
	modelID := s.modelID
	if v := strings.TrimSpace(vals[paramModelID]); v != "" {
		modelID = v
	}
	maxTokens := s.maxTokens
	if v := strings.TrimSpace(vals[paramMaxTokens]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("usecase: invalid %s override %q", paramMaxTokens, v)
		}
		maxTokens = n
	}
	s.modelID = modelID
	s.maxTokens = maxTokens
	return nil
}

func upstreamReason(service string, err error) string {
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return service + "_throttled"
	}
	return service + "_error"
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
