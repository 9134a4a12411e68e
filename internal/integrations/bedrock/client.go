package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"image-captioner/internal/domain"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	contentTypeJSON  = "application/json"
)

// bedrockAPI is the minimal Bedrock Runtime interface required by Client.
// *bedrockruntime.Client from aws-sdk-go-v2 satisfies this interface.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// messagesRequest is the Anthropic Messages body accepted by InvokeModel.
type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// messagesResponse is the minimal response shape returned by Anthropic models.
type messagesResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
}

// Client generates captions with an Anthropic model hosted on Bedrock.
type Client struct {
	api bedrockAPI
}

// New creates a Client with the given Bedrock Runtime API implementation.
func New(api bedrockAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Caption sends a single user message to model and returns the text of the
// first content block in the reply.
func (c *Client) Caption(ctx context.Context, model string, req domain.CaptionRequest) (string, error) {
	if c.api == nil {
		return "", errors.New("bedrock: client not initialized")
	}
	if strings.TrimSpace(model) == "" {
		return "", errors.New("bedrock: model must not be empty")
	}
	if req.MaxTokens <= 0 {
		return "", errors.New("bedrock: max tokens must be positive")
	}

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model %s: %w", model, err)
	}
	if out == nil {
		return "", errors.New("bedrock: empty invoke model response")
	}

	var payload messagesResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	if len(payload.Content) == 0 {
		return "", errors.New("bedrock: no content in response")
	}
	if payload.Content[0].Text == nil {
		return "", errors.New("bedrock: first content block has no text")
	}
	return *payload.Content[0].Text, nil
}

func buildRequest(req domain.CaptionRequest) messagesRequest {
	blocks := make([]contentBlock, 0, 2)
	if req.Image != nil {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: req.Image.MediaType,
				Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: req.Prompt})

	return messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		Messages:         []message{{Role: "user", Content: blocks}},
	}
}
