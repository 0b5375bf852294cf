package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/adapters"
	"github.com/iamwavecut/wafflebot/internal/adapters/llm"
)

type API struct {
	client     *openai.Client
	model      string
	parameters llm.GenerationParameters
	logger     *log.Entry
}

const DefaultModel = "gpt-4o-mini"

var _ adapters.ImageScorer = (*API)(nil)

func NewOpenAI(apiKey, model, baseURL string, logger *log.Entry) *API {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	api := &API{
		client:     openai.NewClientWithConfig(config),
		parameters: llm.DefaultScoringParameters(),
		logger:     logger,
	}
	return api.WithModel(model)
}

func (o *API) WithModel(modelName string) *API {
	if modelName == "" {
		modelName = DefaultModel
	}
	o.model = modelName
	return o
}

func (o *API) ScoreImage(ctx context.Context, image []byte, mimeType string) (float64, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: llm.NSFWPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		Temperature: o.parameters.Temperature,
		TopP:        o.parameters.TopP,
		MaxTokens:   int(o.parameters.MaxOutputTokens),
	})
	if err != nil {
		return 0, fmt.Errorf("openai score image: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, llm.ErrNoScore
	}

	answer := resp.Choices[0].Message.Content
	o.logger.WithField("answer", answer).Trace("nsfw score")
	return llm.ParseScore(answer)
}
