package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/iamwavecut/wafflebot/internal/adapters"
	"github.com/iamwavecut/wafflebot/internal/adapters/llm"
)

type API struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Entry
}

const DefaultModel = "gemini-2.5-flash-lite"

var _ adapters.ImageScorer = (*API)(nil)

func NewGemini(ctx context.Context, apiKey, model string, logger *log.Entry) (*API, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	api := &API{
		client: client,
		logger: logger,
	}
	api.WithModel(model)
	return api, nil
}

func (g *API) WithModel(modelName string) *API {
	if modelName == "" {
		modelName = DefaultModel
	}
	g.model = g.client.GenerativeModel(modelName)

	parameters := llm.DefaultScoringParameters()
	g.model.SetTemperature(parameters.Temperature)
	g.model.SetTopP(parameters.TopP)
	g.model.SetMaxOutputTokens(parameters.MaxOutputTokens)
	g.model.ResponseMIMEType = "text/plain"
	g.model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.NSFWPrompt)},
	}
	// The model has to look at explicit content to rate it.
	g.model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}
	return g
}

func (g *API) Close() error {
	return g.client.Close()
}

func (g *API) ScoreImage(ctx context.Context, image []byte, mimeType string) (float64, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := g.model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text("Score this image."))
	if err != nil {
		return 0, fmt.Errorf("gemini score image: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, llm.ErrNoScore
	}

	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			answer.WriteString(string(text))
		}
	}
	g.logger.WithField("answer", answer.String()).Trace("nsfw score")
	return llm.ParseScore(answer.String())
}
