package vision

import (
	"alcyxob/nutrition-app/internal/config"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// ErrUnavailable is returned when the client was never successfully configured.
var ErrUnavailable = errors.New("vision model is not configured")

// contentGenerator is the slice of *genai.GenerativeModel the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client wraps calls to the Gemini vision model on Vertex AI.
// A Client is safe for concurrent use.
type Client struct {
	generator contentGenerator
	genClient *genai.Client
	modelName string
	available bool
	reason    string // why the client is unavailable
}

// NewClient builds the Vertex AI client from configuration. It never fails:
// a missing project or a client construction error yields an unavailable
// Client whose Analyze returns ErrUnavailable.
func NewClient(ctx context.Context, cfg config.VisionConfig) *Client {
	if cfg.ProjectID == "" {
		log.Println("WARN: vision.project_id is empty; food analysis is disabled")
		return &Client{modelName: cfg.Model, reason: "vision.project_id is not set"}
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	genClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		log.Printf("ERROR: Failed to create Vertex AI client: %v", err)
		return &Client{modelName: cfg.Model, reason: fmt.Sprintf("failed to create client: %v", err)}
	}

	model := genClient.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = AnalysisSchema()

	log.Printf("INFO: Vision client initialized (model: %s, location: %s)", cfg.Model, cfg.Location)

	return &Client{
		generator: model,
		genClient: genClient,
		modelName: cfg.Model,
		available: true,
	}
}

// NewClientWithGenerator wires an already configured generator, e.g. a
// *genai.GenerativeModel built elsewhere.
func NewClientWithGenerator(generator contentGenerator, modelName string) *Client {
	if generator == nil {
		return &Client{modelName: modelName, reason: "no generator"}
	}
	return &Client{generator: generator, modelName: modelName, available: true}
}

// Available reports whether Analyze can reach the model at all.
func (c *Client) Available() bool {
	return c != nil && c.available
}

// UnavailableReason explains why Available is false.
func (c *Client) UnavailableReason() string {
	if c == nil {
		return "vision client is nil"
	}
	return c.reason
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.modelName
}

// Analyze sends the photo with the analysis prompt and returns the validated
// reply. Failures are ErrUnavailable, a *CallError or a *ReplyError.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) (*RawAnalysis, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if len(image) == 0 {
		return nil, &ReplyError{Reason: "no image data to analyze"}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, &ReplyError{Reason: fmt.Sprintf("unsupported image type %q", mimeType)}
	}

	resp, err := c.generator.GenerateContent(ctx,
		genai.Text(AnalysisPrompt),
		genai.Blob{MIMEType: mimeType, Data: image},
	)
	if err != nil {
		return nil, &CallError{Err: err}
	}

	text, err := replyText(resp)
	if err != nil {
		return nil, err
	}
	return ParseReply(text)
}

// Close releases the Vertex AI connection.
func (c *Client) Close() error {
	if c == nil || c.genClient == nil {
		return nil
	}
	return c.genClient.Close()
}

// replyText extracts the concatenated text of the first candidate.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &ReplyError{Reason: "model returned no candidates"}
	}
	candidate := resp.Candidates[0]

	switch candidate.FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonMaxTokens:
	default:
		return "", &ReplyError{Reason: fmt.Sprintf("model stopped early (finish reason: %s)", candidate.FinishReason)}
	}

	if candidate.Content == nil {
		return "", &ReplyError{Reason: "model reply has no content"}
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", &ReplyError{Reason: "model reply has no text"}
	}
	return b.String(), nil
}
