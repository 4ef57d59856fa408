package speech

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default transcription model.
	DefaultModel = "whisper-1"
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// LanguageAuto asks the provider to detect the spoken language.
	LanguageAuto = "auto"
)

// OpenAIRecognizer implements the Recognizer interface using OpenAI's
// audio transcription API.
type OpenAIRecognizer struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIRecognizer creates a new OpenAI recognizer.
func NewOpenAIRecognizer(apiKey string, model string) *OpenAIRecognizer {
	return NewOpenAIRecognizerWithLogger(apiKey, DefaultBaseURL, model, 0, nil, false)
}

// NewOpenAIRecognizerWithLogger creates a new OpenAI recognizer with logger
// support. A zero timeout means a transcription call runs until the provider
// answers or the request context is done; audio uploads can legitimately take
// many minutes.
func NewOpenAIRecognizerWithLogger(apiKey string, baseURL string, model string, timeout time.Duration, logger *zap.Logger, debugMode bool) *OpenAIRecognizer {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{}
	if timeout > 0 {
		httpClient.Timeout = timeout
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIRecognizer{
		client: client,
		model:  model,
		logger: logger,
	}
}

// SetDebugMode enables or disables debug logging of provider responses.
func (r *OpenAIRecognizer) SetDebugMode(enabled bool) {
	r.debugMode = enabled
}

// Transcribe sends the audio to the transcription endpoint and returns the
// recognized text. An "auto" language hint is omitted from the request so
// the model performs its own detection.
func (r *OpenAIRecognizer) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if req.File == nil {
		return nil, fmt.Errorf("transcription request has no file")
	}

	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(r.model),
		File:  openai.File(req.File, req.Filename, req.ContentType),
	}

	lang := strings.TrimSpace(strings.ToLower(req.Language))
	if lang != "" && lang != LanguageAuto {
		params.Language = openai.String(lang)
	}

	start := time.Now()
	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Transcription request failed",
				zap.String("model", r.model),
				zap.String("filename", req.Filename),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
		}
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	if r.debugMode && r.logger != nil {
		r.logger.Debug("Transcription response received",
			zap.String("model", r.model),
			zap.String("filename", req.Filename),
			zap.Int("text_length", len(resp.Text)),
			zap.String("text_preview", SanitizeTranscript(resp.Text, false)),
			zap.Duration("elapsed", time.Since(start)))
	}

	return &Result{Text: resp.Text}, nil
}
