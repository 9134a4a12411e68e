package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"image-captioner/internal/domain"
	"image-captioner/internal/usecase"
)

const completionMessage = "Processing complete."

// Response is the invocation result returned to the Lambda runtime. Body is
// omitted when a batch ends early on a non-image object.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body,omitempty"`
}

type CaptionUseCase interface {
	Process(ctx context.Context, in usecase.ProcessInput) (usecase.ProcessOutput, error)
}

type Handler struct {
	uc  CaptionUseCase
	log *slog.Logger
}

func NewHandler(uc CaptionUseCase, log *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{uc: uc, log: log}, nil
}

// Handle captions every record of an S3 notification. Any record failure
// fails the whole invocation so the trigger's retry policy applies.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	requestID := requestIDFrom(ctx)

	records := make([]domain.Notification, 0, len(event.Records))
	for _, r := range event.Records {
		records = append(records, domain.Notification{
			Bucket: r.S3.Bucket.Name,
			Key:    r.S3.Object.Key,
		})
	}

	out, err := h.uc.Process(ctx, usecase.ProcessInput{RequestID: requestID, Records: records})
	if err != nil {
		attrs := []any{"request_id", requestID, "err", err}
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) {
			attrs = append(attrs, "code", string(ucErr.Code), "reason", ucErr.Reason)
		}
		h.log.Error("invocation failed", attrs...)
		return Response{}, err
	}
	if !out.Completed {
		return Response{StatusCode: http.StatusOK}, nil
	}

	body, err := json.Marshal(completionMessage)
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: http.StatusOK, Body: string(body)}, nil
}

func requestIDFrom(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
