package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mteuf/chatbot-testing/internal/config"
	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/pkg/logger"
)

// NoContentReply is substituted when a turn yields nothing usable end-to-end.
const NoContentReply = "Model returned no content."

const defaultTypingDelay = 20 * time.Millisecond

// ChatClient drives one completion turn against the configured endpoint.
// The default provider issues a single streaming HTTP POST and parses the
// newline-delimited event stream itself; SDK providers (openai, anthropic,
// ollama, gemini) return a buffered reply instead, which is re-chunked
// word by word so the caller still renders progressively.
type ChatClient struct {
	cfg         *config.EndpointConfig
	httpClient  *http.Client
	typingDelay time.Duration
}

func NewChatClient(cfg *config.EndpointConfig) *ChatClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &ChatClient{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout},
		typingDelay: defaultTypingDelay,
	}
}

// Wire format of the upstream request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func wireMessages(history []models.Message) []chatMessage {
	msgs := make([]chatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// Reply sends the full ordered history upstream and returns the assistant
// reply. onFragment, if non-nil, receives each text fragment as it arrives.
// Errors are folded into the reply text rather than returned: whatever comes
// back becomes a permanent history entry and the conversation continues.
func (c *ChatClient) Reply(ctx context.Context, history []models.Message, onFragment func(string)) string {
	switch c.cfg.Provider {
	case "", "databricks", "openai-compatible":
		return c.streamReply(ctx, history, onFragment)
	default:
		reply, err := c.bufferedReply(ctx, history)
		if err != nil {
			reply = fmt.Sprintf("Connection error: %v", err)
			emit(onFragment, reply)
			return reply
		}
		if reply == "" {
			reply = NoContentReply
		}
		return c.emitBuffered(reply, onFragment)
	}
}

// streamReply is the incremental consumer: one POST with streaming requested,
// then line-by-line parsing as bytes arrive over the wire. The body is teed
// into a buffer so the fallback path can reinterpret it when the server
// ignored the streaming request.
func (c *ChatClient) streamReply(ctx context.Context, history []models.Message, onFragment func(string)) string {
	payload, err := json.Marshal(chatRequest{Messages: wireMessages(history), Stream: true})
	if err != nil {
		reply := fmt.Sprintf("Connection error: %v", err)
		emit(onFragment, reply)
		return reply
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		reply := fmt.Sprintf("Connection error: %v", err)
		emit(onFragment, reply)
		return reply
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reply := fmt.Sprintf("Connection error: %v", err)
		emit(onFragment, reply)
		return reply
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		reply := fmt.Sprintf("Request failed with %d: %s", resp.StatusCode, body)
		emit(onFragment, reply)
		return reply
	}

	var (
		buffered bytes.Buffer
		reply    strings.Builder
		streamed bool
	)

	scanner := bufio.NewScanner(io.TeeReader(resp.Body, &buffered))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "data: ")
		if line == "[DONE]" {
			break
		}
		fragment, ok := extractFragment([]byte(line))
		if !ok {
			// keep-alive, comment, or contentless chunk
			continue
		}
		streamed = true
		reply.WriteString(fragment)
		emit(onFragment, fragment)
	}

	if err := scanner.Err(); err != nil {
		fragment := fmt.Sprintf("Connection error: %v", err)
		emit(onFragment, fragment)
		reply.WriteString(fragment)
		return reply.String()
	}

	// Fallback: no incremental fragments were observed, so the server likely
	// returned a single JSON document. Reinterpret the buffered body.
	if !streamed {
		logger.Debug().Int("bytes", buffered.Len()).Msg("no streaming chunks, parsing buffered body")
		return c.emitBuffered(fallbackReply(buffered.Bytes()), onFragment)
	}

	return reply.String()
}

// fallbackReply reinterprets a fully buffered response body: full JSON decode
// with choices[0].message.content, then a bare JSON string, then the raw body
// text as a last resort.
func fallbackReply(body []byte) string {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err == nil {
		if content := extractMessageContent(doc); content != "" {
			return content
		}
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil && s != "" {
		return s
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return NoContentReply
	}
	return text
}

// emitBuffered relays a buffered reply as word-sized fragments so the client
// renders progressively even when the upstream did not stream.
func (c *ChatClient) emitBuffered(reply string, onFragment func(string)) string {
	if onFragment == nil {
		return reply
	}
	words := strings.Fields(reply)
	if len(words) == 0 {
		emit(onFragment, reply)
		return reply
	}
	for i, word := range words {
		fragment := word
		if i > 0 {
			fragment = " " + word
		}
		onFragment(fragment)
		if c.typingDelay > 0 && i < len(words)-1 {
			time.Sleep(c.typingDelay)
		}
	}
	return strings.Join(words, " ")
}

func emit(onFragment func(string), fragment string) {
	if onFragment != nil && fragment != "" {
		onFragment(fragment)
	}
}
