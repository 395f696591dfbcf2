package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const suggestSystemPrompt = `You suggest scripture verses for memorization.
Reply with exactly one citation in the form "Book Chapter:Verse" or
"Book Chapter:Verse-Verse" and nothing else. No commentary, no quotation
marks, no verse text.`

// OpenAISuggester implements Suggester against the OpenAI chat API.
type OpenAISuggester struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAISuggester creates a suggester. An empty model defaults to
// gpt-4o-mini; a non-positive timeout defaults to 30s.
func NewOpenAISuggester(apiKey, model string, timeout time.Duration) (*OpenAISuggester, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai suggester requires an API key")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAISuggester{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

// Suggest asks the model for one citation on the topic. The first non-empty
// line of the reply is returned; validation is the caller's job.
func (s *OpenAISuggester) Suggest(ctx context.Context, topic string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := "Suggest one verse worth memorizing."
	if topic != "" {
		prompt = fmt.Sprintf("Suggest one verse worth memorizing on the topic of %s.", topic)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.9, // variety across retries
	})
	if err != nil {
		return "", &SuggestionError{Topic: topic, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &SuggestionError{Topic: topic, Err: fmt.Errorf("no choices returned")}
	}

	citation := FirstLine(resp.Choices[0].Message.Content)
	if citation == "" {
		return "", &SuggestionError{Topic: topic, Err: fmt.Errorf("empty suggestion")}
	}
	return citation, nil
}

// FirstLine extracts the first non-empty line of a model reply, stripped of
// surrounding whitespace and quotation marks.
func FirstLine(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line != "" {
			return line
		}
	}
	return ""
}
