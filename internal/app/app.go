package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsrekognition "github.com/aws/aws-sdk-go-v2/service/rekognition"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"image-captioner/handler"
	"image-captioner/internal/config"
	"image-captioner/internal/integrations/bedrock"
	"image-captioner/internal/integrations/objectstore"
	"image-captioner/internal/integrations/paramstore"
	"image-captioner/internal/integrations/rekognition"
	"image-captioner/internal/repository"
	"image-captioner/internal/usecase"
)

type RekognitionAPI interface {
	DetectLabels(ctx context.Context, in *awsrekognition.DetectLabelsInput, optFns ...func(*awsrekognition.Options)) (*awsrekognition.DetectLabelsOutput, error)
}

type BedrockAPI interface {
	InvokeModel(ctx context.Context, in *awsbedrock.InvokeModelInput, optFns ...func(*awsbedrock.Options)) (*awsbedrock.InvokeModelOutput, error)
}

type DynamoDBAPI interface {
	PutItem(ctx context.Context, in *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
}

// APIs holds the AWS service clients the handler is built from. DynamoDB and
// SSM are only used when CAPTION_TABLE and PARAM_PREFIX are set.
type APIs struct {
	S3          manager.DownloadAPIClient
	Rekognition RekognitionAPI
	Bedrock     BedrockAPI
	DynamoDB    DynamoDBAPI
	SSM         awsssm.GetParametersByPathAPIClient
}

// NewAPIs creates the SDK clients once per process. Bedrock uses the
// configured region; every other client uses the Lambda's own region.
func NewAPIs(awsCfg aws.Config, cfg config.Config) APIs {
	return APIs{
		S3:          awss3.NewFromConfig(awsCfg),
		Rekognition: awsrekognition.NewFromConfig(awsCfg),
		Bedrock: awsbedrock.NewFromConfig(awsCfg, func(o *awsbedrock.Options) {
			o.Region = cfg.BedrockRegion
		}),
		DynamoDB: awsdynamodb.NewFromConfig(awsCfg),
		SSM:      awsssm.NewFromConfig(awsCfg),
	}
}

// NewHandler wires the integration clients, the caption service and the
// Lambda handler.
func NewHandler(cfg config.Config, apis APIs, log *slog.Logger) (*handler.Handler, error) {
	classifier, err := rekognition.New(apis.Rekognition)
	if err != nil {
		return nil, fmt.Errorf("app: create rekognition client: %w", err)
	}
	fetcher, err := objectstore.New(apis.S3)
	if err != nil {
		return nil, fmt.Errorf("app: create object store client: %w", err)
	}
	model, err := bedrock.New(apis.Bedrock)
	if err != nil {
		return nil, fmt.Errorf("app: create bedrock client: %w", err)
	}

	opts := usecase.Options{
		ModelID:            cfg.ModelID,
		MaxTokens:          cfg.MaxTokens,
		ContinueOnNonImage: cfg.ContinueOnNonImage,
		AttachImage:        cfg.AttachImage,
		MaxImageEdge:       cfg.MaxImageEdge,
		Logger:             log,
	}
	if cfg.CaptionTable != "" {
		store, err := repository.New(apis.DynamoDB, cfg.CaptionTable)
		if err != nil {
			return nil, fmt.Errorf("app: create caption store: %w", err)
		}
		opts.Store = store
	}
	if cfg.ParamPrefix != "" {
		params, err := paramstore.New(apis.SSM)
		if err != nil {
			return nil, fmt.Errorf("app: create paramstore client: %w", err)
		}
		opts.Params = params
		opts.ParamPrefix = cfg.ParamPrefix
	}

	svc, err := usecase.NewCaptionService(classifier, fetcher, model, opts)
	if err != nil {
		return nil, fmt.Errorf("app: create caption service: %w", err)
	}
	return handler.NewHandler(svc, log)
}

// NewLogger returns a JSON slog logger writing to w at the configured level.
func NewLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}
