package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"image-captioner/internal/domain"
)

const (
	pkPrefixObject = "OBJECT#"
	skPrefixCap    = "CAPTION#"
	ttlDuration    = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table holding generated captions.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// objectPK returns the partition key for an uploaded object.
func objectPK(bucket, key string) string {
	return pkPrefixObject + bucket + "/" + key
}

// captionSK returns the sort key for a caption generated at ts.
func captionSK(ts time.Time) string {
	return skPrefixCap + ts.UTC().Format(time.RFC3339Nano)
}

// SaveCaption builds a caption record for the object and writes it.
func (c *Client) SaveCaption(ctx context.Context, bucket, key string, labels []domain.Label, caption, modelID, requestID string) error {
	rec := c.newCaptionRecord(bucket, key, labels, caption, modelID, requestID)
	if err := c.PutCaption(ctx, rec); err != nil {
		return fmt.Errorf("repository: SaveCaption: %w", err)
	}
	return nil
}

// PutCaption persists a caption record. Records are append-only per object.
func (c *Client) PutCaption(ctx context.Context, rec domain.CaptionRecord) error {
	if rec.PK == "" || rec.SK == "" {
		return errors.New("repository: PutCaption: PK and SK are required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                captionItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutCaption: %w", err)
	}
	return nil
}

func (c *Client) newCaptionRecord(bucket, key string, labels []domain.Label, caption, modelID, requestID string) domain.CaptionRecord {
	now := c.now().UTC()
	return domain.CaptionRecord{
		PK:        objectPK(bucket, key),
		SK:        captionSK(now),
		Bucket:    bucket,
		Key:       key,
		Labels:    labels,
		Caption:   caption,
		ModelID:   modelID,
		RequestID: requestID,
		CreatedAt: now.Format(time.RFC3339),
		TTL:       now.Add(ttlDuration).Unix(),
	}
}

func captionItem(rec domain.CaptionRecord) map[string]types.AttributeValue {
	labels := make([]types.AttributeValue, 0, len(rec.Labels))
	for _, l := range rec.Labels {
		labels = append(labels, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"name":       &types.AttributeValueMemberS{Value: l.Name},
			"confidence": &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(l.Confidence), 'f', -1, 32)},
		}})
	}
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: rec.PK},
		"SK":        &types.AttributeValueMemberS{Value: rec.SK},
		"bucket":    &types.AttributeValueMemberS{Value: rec.Bucket},
		"key":       &types.AttributeValueMemberS{Value: rec.Key},
		"labels":    &types.AttributeValueMemberL{Value: labels},
		"caption":   &types.AttributeValueMemberS{Value: rec.Caption},
		"modelId":   &types.AttributeValueMemberS{Value: rec.ModelID},
		"requestId": &types.AttributeValueMemberS{Value: rec.RequestID},
		"createdAt": &types.AttributeValueMemberS{Value: rec.CreatedAt},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TTL, 10)},
	}
}
