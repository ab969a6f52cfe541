// Package rag composes passage retrieval with a streaming chat model into
// one answer pipeline: embed query, fetch top-K passages, condition the
// generator on them plus the conversation so far, relay tokens as they come.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"medichat/internal/config"
	"medichat/internal/models"
	"medichat/internal/stream"
)

const claudeMaxTokens = 3000

// Retriever returns ranked passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Passage, error)
}

// ChatStreamer is the slice of eino's chat model the service consumes.
type ChatStreamer interface {
	Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error)
}

// Service is the retrieval-augmented answerer.
type Service struct {
	retriever Retriever
	chatModel ChatStreamer
}

// NewService builds the chat model for the configured provider and wires it
// to the retriever. Provider selection mirrors the config providers map:
// gemini, openai or claude.
func NewService(ctx context.Context, cfg *config.Config, retriever Retriever) (*Service, error) {
	provider := cfg.Generation.Provider
	provCfg, err := cfg.Provider(provider)
	if err != nil {
		return nil, err
	}
	modelName := cfg.Generation.Model
	if modelName == "" {
		modelName = provCfg.Model
	}
	temperature := cfg.Generation.Temperature

	var chatModel ChatStreamer
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     provCfg.BaseURL,
			Model:       modelName,
			APIKey:      provCfg.APIKey,
			Temperature: &temperature,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: provCfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			Temperature: &temperature,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:      provCfg.APIKey,
			Model:       modelName,
			BaseURL:     baseURLPtr,
			MaxTokens:   claudeMaxTokens,
			Temperature: &temperature,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &Service{retriever: retriever, chatModel: chatModel}, nil
}

// Stream runs the full RAG pipeline and emits explicit event variants. The
// sequence is finite, ends with exactly one terminal event, and is not
// restartable; cancel ctx to stop consuming the generator early.
func (s *Service) Stream(ctx context.Context, query string, history []models.Turn) <-chan stream.Event {
	out := make(chan stream.Event)
	go func() {
		defer close(out)

		passages, err := s.retriever.Retrieve(ctx, query)
		if err != nil {
			emit(ctx, out, stream.Event{Kind: stream.KindError, Err: fmt.Errorf("retrieval: %w", err)})
			return
		}

		reader, err := s.chatModel.Stream(ctx, buildMessages(passages, history, query))
		if err != nil {
			emit(ctx, out, stream.Event{Kind: stream.KindError, Err: fmt.Errorf("generation: %w", err)})
			return
		}
		defer reader.Close()

		var full strings.Builder
		for {
			chunk, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(ctx, out, stream.Event{Kind: stream.KindError, Err: fmt.Errorf("generation stream: %w", err)})
				return
			}
			if chunk.Content == "" {
				continue
			}
			full.WriteString(chunk.Content)
			if !emit(ctx, out, stream.Event{Kind: stream.KindToken, Token: chunk.Content}) {
				return
			}
		}
		emit(ctx, out, stream.Event{Kind: stream.KindDone, Full: full.String()})
	}()
	return out
}

func emit(ctx context.Context, out chan<- stream.Event, ev stream.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildMessages assembles system prompt, prior turns and the new query in
// generation order.
func buildMessages(passages []models.Passage, history []models.Turn, query string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: renderSystemPrompt(passages),
	})
	for _, turn := range history {
		role := schema.User
		if turn.Role == models.RoleAssistant {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: query})
	return messages
}
