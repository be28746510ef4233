package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Backend versions wrap generated text differently: Ollama's generate API
// uses a flat response field, its chat API nests message.content, and
// OpenAI-compatible servers return a choices list. Extraction tries each
// known shape in order; the first non-empty hit wins. Each strategy is a
// pure function so a new backend shape is one more entry here.
type extractor func(raw []byte) (string, bool)

var extractors = []extractor{
	extractResponseField,
	extractMessageContent,
	extractFirstChoice,
}

func ExtractText(raw []byte) (string, error) {
	for _, extract := range extractors {
		if text, ok := extract(raw); ok {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: no recognized envelope", ErrMalformed)
}

func extractResponseField(raw []byte) (string, bool) {
	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false
	}
	return nonEmpty(parsed.Response)
}

func extractMessageContent(raw []byte) (string, bool) {
	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false
	}
	return nonEmpty(parsed.Message.Content)
}

func extractFirstChoice(raw []byte) (string, bool) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) == 0 {
		return "", false
	}
	if text, ok := nonEmpty(parsed.Choices[0].Message.Content); ok {
		return text, ok
	}
	return nonEmpty(parsed.Choices[0].Text)
}

func nonEmpty(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
