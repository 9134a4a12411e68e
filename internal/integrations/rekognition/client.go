package rekognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"image-captioner/internal/domain"
)

// rekognitionAPI is the minimal Rekognition interface required by Client.
// *rekognition.Client from aws-sdk-go-v2 satisfies this interface.
type rekognitionAPI interface {
	DetectLabels(ctx context.Context, in *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Client detects labels on images stored in S3.
type Client struct {
	api rekognitionAPI
}

// New creates a Client with the given Rekognition API implementation.
func New(api rekognitionAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("rekognition: api must not be nil")
	}
	return &Client{api: api}, nil
}

// DetectLabels asks Rekognition to classify s3://bucket/key and returns the
// labels in the order the service returned them.
func (c *Client) DetectLabels(ctx context.Context, bucket, key string, maxLabels int, minConfidence float32) ([]domain.Label, error) {
	if c.api == nil {
		return nil, errors.New("rekognition: client not initialized")
	}
	if strings.TrimSpace(bucket) == "" || key == "" {
		return nil, errors.New("rekognition: bucket and key are required")
	}

	out, err := c.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		MaxLabels:     aws.Int32(int32(maxLabels)),
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition: detect labels s3://%s/%s: %w", bucket, key, err)
	}
	if out == nil {
		return nil, errors.New("rekognition: empty detect labels response")
	}

	labels := make([]domain.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		labels = append(labels, domain.Label{
			Name:       aws.ToString(l.Name),
			Confidence: aws.ToFloat32(l.Confidence),
		})
	}
	return labels, nil
}
