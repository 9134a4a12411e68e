package rekognition

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	out    *rekognition.DetectLabelsOutput
	err    error
	lastIn *rekognition.DetectLabelsInput
}

func (f *fakeAPI) DetectLabels(_ context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.lastIn = in
	return f.out, f.err
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestDetectLabels_HappyPath(t *testing.T) {
	api := &fakeAPI{out: &rekognition.DetectLabelsOutput{Labels: []types.Label{
		{Name: aws.String("Cat"), Confidence: aws.Float32(98.2)},
		{Name: aws.String("Sofa"), Confidence: aws.Float32(81.0)},
	}}}
	c, err := New(api)
	require.NoError(t, err)

	labels, err := c.DetectLabels(context.Background(), "uploads", "pets/cat.png", 3, 70)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	require.Equal(t, "Cat", labels[0].Name)
	require.Equal(t, float32(98.2), labels[0].Confidence)
	require.Equal(t, "Sofa", labels[1].Name)

	require.Equal(t, "uploads", aws.ToString(api.lastIn.Image.S3Object.Bucket))
	require.Equal(t, "pets/cat.png", aws.ToString(api.lastIn.Image.S3Object.Name))
	require.Equal(t, int32(3), aws.ToInt32(api.lastIn.MaxLabels))
	require.Equal(t, float32(70), aws.ToFloat32(api.lastIn.MinConfidence))
}

func TestDetectLabels_PreservesServiceOrder(t *testing.T) {
	api := &fakeAPI{out: &rekognition.DetectLabelsOutput{Labels: []types.Label{
		{Name: aws.String("Low"), Confidence: aws.Float32(71)},
		{Name: aws.String("High"), Confidence: aws.Float32(99)},
	}}}
	c, err := New(api)
	require.NoError(t, err)

	labels, err := c.DetectLabels(context.Background(), "b", "k.jpg", 3, 70)
	require.NoError(t, err)
	require.Equal(t, "Low", labels[0].Name)
	require.Equal(t, "High", labels[1].Name)
}

func TestDetectLabels_ApiError(t *testing.T) {
	c, err := New(&fakeAPI{err: errors.New("AccessDeniedException")})
	require.NoError(t, err)

	_, err = c.DetectLabels(context.Background(), "b", "k.jpg", 3, 70)
	require.Error(t, err)
	require.ErrorContains(t, err, "AccessDeniedException")
	require.ErrorContains(t, err, "s3://b/k.jpg")
}

func TestDetectLabels_Validation(t *testing.T) {
	_, err := (&Client{}).DetectLabels(context.Background(), "b", "k", 3, 70)
	require.ErrorContains(t, err, "not initialized")

	c, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = c.DetectLabels(context.Background(), " ", "k", 3, 70)
	require.ErrorContains(t, err, "required")
}

func TestDetectLabels_NilOutput(t *testing.T) {
	c, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = c.DetectLabels(context.Background(), "b", "k.png", 3, 70)
	require.ErrorContains(t, err, "empty")
}
