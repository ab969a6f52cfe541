package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"medichat/internal/models"
	"medichat/internal/stream"
)

type stubRetriever struct {
	passages []models.Passage
	err      error
}

func (s stubRetriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	return s.passages, s.err
}

type stubChatModel struct {
	tokens   []string
	err      error
	lastMsgs []*schema.Message
}

func (s *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	s.lastMsgs = input
	if s.err != nil {
		return nil, s.err
	}
	sr, sw := schema.Pipe[*schema.Message](len(s.tokens))
	go func() {
		defer sw.Close()
		for _, tok := range s.tokens {
			sw.Send(&schema.Message{Role: schema.Assistant, Content: tok}, nil)
		}
	}()
	return sr, nil
}

func drain(t *testing.T, events <-chan stream.Event) (tokens []string, done *stream.Event, errEv *stream.Event) {
	t.Helper()
	for ev := range events {
		switch ev.Kind {
		case stream.KindToken:
			tokens = append(tokens, ev.Token)
		case stream.KindDone:
			e := ev
			done = &e
		case stream.KindError:
			e := ev
			errEv = &e
		}
	}
	return tokens, done, errEv
}

func TestStreamHappyPath(t *testing.T) {
	chat := &stubChatModel{tokens: []string{"Flu ", "causes ", "fever."}}
	svc := &Service{
		retriever: stubRetriever{passages: []models.Passage{{Content: "Influenza causes fever.", Source: "flu.pdf"}}},
		chatModel: chat,
	}

	history := []models.Turn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "Hello!"},
	}
	tokens, done, errEv := drain(t, svc.Stream(context.Background(), "what causes fever", history))

	if errEv != nil {
		t.Fatalf("unexpected error event: %v", errEv.Err)
	}
	if done == nil {
		t.Fatalf("missing done event")
	}
	if got := strings.Join(tokens, ""); got != done.Full || got != "Flu causes fever." {
		t.Fatalf("tokens %q vs full %q", got, done.Full)
	}

	// System prompt first with the passage, then history, then the query.
	msgs := chat.lastMsgs
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.System || !strings.Contains(msgs[0].Content, "Influenza causes fever.") {
		t.Fatalf("system prompt missing passage: %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "flu.pdf") {
		t.Fatalf("system prompt missing source: %q", msgs[0].Content)
	}
	if msgs[1].Role != schema.User || msgs[2].Role != schema.Assistant {
		t.Fatalf("history order lost: %v %v", msgs[1].Role, msgs[2].Role)
	}
	if msgs[3].Role != schema.User || msgs[3].Content != "what causes fever" {
		t.Fatalf("query not last: %+v", msgs[3])
	}
}

func TestStreamRetrieverFailure(t *testing.T) {
	svc := &Service{
		retriever: stubRetriever{err: errors.New("index offline")},
		chatModel: &stubChatModel{},
	}
	tokens, done, errEv := drain(t, svc.Stream(context.Background(), "what is diabetes", nil))
	if len(tokens) != 0 || done != nil {
		t.Fatalf("expected only an error event")
	}
	if errEv == nil || !strings.Contains(errEv.Err.Error(), "index offline") {
		t.Fatalf("expected wrapped retrieval error, got %v", errEv)
	}
}

func TestStreamGeneratorFailure(t *testing.T) {
	svc := &Service{
		retriever: stubRetriever{},
		chatModel: &stubChatModel{err: errors.New("model unavailable")},
	}
	_, done, errEv := drain(t, svc.Stream(context.Background(), "what is diabetes", nil))
	if done != nil || errEv == nil {
		t.Fatalf("expected error terminal, got done=%v err=%v", done, errEv)
	}
}

func TestStreamEmptyIndexStillAnswers(t *testing.T) {
	chat := &stubChatModel{tokens: []string{"I don't know."}}
	svc := &Service{retriever: stubRetriever{}, chatModel: chat}

	_, done, errEv := drain(t, svc.Stream(context.Background(), "what is lupus", nil))
	if errEv != nil || done == nil {
		t.Fatalf("expected clean stream on empty index")
	}
	if !strings.Contains(chat.lastMsgs[0].Content, "no relevant documents") {
		t.Fatalf("empty-context marker missing from prompt")
	}
}
