package services

import "encoding/json"

// extractFunc pulls reply text out of one decoded stream chunk. Extractors
// are tried in order; the first non-empty result wins.
type extractFunc func(chunk map[string]interface{}) string

var fragmentExtractors = []extractFunc{
	extractDeltaContent,
	extractMessageContent,
	extractResponseField,
	extractTextField,
}

// extractFragment decodes a single stream line and runs it through the
// extractor chain. ok is false when the line is not valid JSON or no
// extractor produced content; such lines are skipped by the caller.
func extractFragment(line []byte) (string, bool) {
	var chunk map[string]interface{}
	if err := json.Unmarshal(line, &chunk); err != nil {
		return "", false
	}
	for _, extract := range fragmentExtractors {
		if content := extract(chunk); content != "" {
			return content, true
		}
	}
	return "", false
}

func firstChoice(chunk map[string]interface{}) map[string]interface{} {
	choices, ok := chunk["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return nil
	}
	choice, _ := choices[0].(map[string]interface{})
	return choice
}

// extractDeltaContent handles OpenAI-style streaming chunks:
// choices[0].delta.content
func extractDeltaContent(chunk map[string]interface{}) string {
	choice := firstChoice(chunk)
	if choice == nil {
		return ""
	}
	delta, ok := choice["delta"].(map[string]interface{})
	if !ok {
		return ""
	}
	content, _ := delta["content"].(string)
	return content
}

// extractMessageContent handles buffered completion documents:
// choices[0].message.content
func extractMessageContent(chunk map[string]interface{}) string {
	choice := firstChoice(chunk)
	if choice == nil {
		return ""
	}
	message, ok := choice["message"].(map[string]interface{})
	if !ok {
		return ""
	}
	content, _ := message["content"].(string)
	return content
}

func extractResponseField(chunk map[string]interface{}) string {
	content, _ := chunk["response"].(string)
	return content
}

func extractTextField(chunk map[string]interface{}) string {
	content, _ := chunk["text"].(string)
	return content
}
