package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"broker-assistant/internal/config"
)

// Client 封装 OpenAI 调用逻辑。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建 AI 客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}
	sdkConfig.HTTPClient = httpClient
	client := openai.NewClientWithConfig(sdkConfig)

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    client,
	}, nil
}

// Interpret 将对话历史送入模型，返回分类后的意图。
func (c *Client) Interpret(ctx context.Context, history []Message) (Interpretation, error) {
	if c.cfg.Model == "" {
		return Interpretation{}, errors.New("openai model 不能为空")
	}
	if len(history) == 0 {
		return Interpretation{}, errors.New("ai: 对话历史不能为空")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: interpretSystemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Error("调用OpenAI失败", zap.Error(err))
		return Interpretation{}, fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return Interpretation{}, errors.New("OpenAI 返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return Interpretation{}, errors.New("OpenAI 返回内容为空")
	}

	interpretation, err := parseInterpretation(rawContent)
	if err != nil {
		c.logger.Error("解析意图失败",
			zap.Error(err),
			zap.String("raw_content", rawContent),
		)
		return Interpretation{}, err
	}

	c.logger.Info("意图抽取完成",
		zap.String("type", interpretation.Type),
		zap.String("symbol", interpretation.Intent.Symbol),
		zap.Strings("missing", interpretation.Missing),
	)

	return interpretation, nil
}

// Phrase 将系统消息改写为更友好的表述，失败时返回原文。
func (c *Client) Phrase(ctx context.Context, text string) (string, error) {
	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: phraseSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		c.logger.Warn("改写消息失败，使用原文", zap.Error(err))
		return text, err
	}
	if len(response.Choices) == 0 {
		return text, errors.New("OpenAI 返回结果为空")
	}

	phrased := strings.TrimSpace(response.Choices[0].Message.Content)
	if phrased == "" {
		return text, nil
	}
	return phrased, nil
}
