package llamaserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"glmchat/internal/llm"
)

// model streams chat completions from one server.
type model struct {
	b       *Backend
	srv     *server
	modelID string
	log     zerolog.Logger
}

// slotState pins follow-up turns to the server slot that holds the cached
// prompt so only the new suffix is evaluated.
type slotState struct {
	ID int
}

// chatRequest is the payload for /v1/chat/completions. cache_prompt and
// id_slot are llama-server extensions.
type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	CachePrompt bool          `json:"cache_prompt"`
	IDSlot      int           `json:"id_slot"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	IDSlot *int         `json:"id_slot,omitempty"`
	Error  *streamError `json:"error,omitempty"`
}

// streamError is the error object llama-server sends in place of a chunk
// when generation fails after the response has started.
type streamError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *streamError) err() error {
	return fmt.Errorf("llama server stream error: %d %s: %s", e.Code, e.Type, e.Message)
}

func (m *model) slotFor(state llm.State) int {
	if s, ok := state.Value().(slotState); ok {
		return s.ID
	}
	if m.srv.cmd != nil {
		// Spawned servers run a single slot.
		return 0
	}
	return -1
}

func (m *model) StreamChat(ctx context.Context, tok llm.Tokenizer, query string, history llm.History, params llm.Params, state llm.State) iter.Seq2[llm.Step, error] {
	return func(yield func(llm.Step, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if m.b.cfg.RequestTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, m.b.cfg.RequestTimeout)
			defer cancel()
		}
		if tok != nil && m.log.GetLevel() <= zerolog.DebugLevel {
			if ids, err := tok.Encode(query); err == nil {
				m.log.Debug().Int("query_tokens", len(ids)).Int("turns", len(history)).Msg("chat request")
			}
		}

		slot := m.slotFor(state)
		payload := chatRequest{
			Model:       m.modelID,
			Messages:    llm.Messages(history, query),
			Stream:      true,
			Temperature: params.Temperature,
			TopP:        params.TopP,
			MaxTokens:   params.MaxTokens,
			CachePrompt: true,
			IDSlot:      slot,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			yield(llm.Step{}, err)
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.srv.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			yield(llm.Step{}, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		m.b.authorize(req)
		resp, err := m.b.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			yield(llm.Step{}, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield(llm.Step{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b))))
			return
		}

		var text strings.Builder
		yieldedSlot := slot
		step := func() llm.Step {
			st := llm.Step{
				Text:    text.String(),
				History: history.With(llm.Turn{Query: query, Response: text.String()}),
				State:   llm.EmptyState,
			}
			if params.ReturnState {
				st.State = llm.NewState(slotState{ID: slot})
			}
			yieldedSlot = slot
			return st
		}
		// The slot id often arrives with the final, content-less chunk.
		finish := func() {
			if params.ReturnState && text.Len() > 0 && slot != yieldedSlot {
				yield(step(), nil)
			}
		}
		r := bufio.NewReader(resp.Body)
		for {
			line, rerr := r.ReadString('\n')
			if data, ok := sseField(line, "error:"); ok {
				var se streamError
				if err := json.Unmarshal([]byte(data), &se); err != nil || se.Message == "" {
					se = streamError{Message: data}
				}
				yield(llm.Step{}, se.err())
				return
			}
			if data, ok := sseData(line); ok {
				if data == "[DONE]" {
					finish()
					return
				}
				var chunk chatChunk
				if err := json.Unmarshal([]byte(data), &chunk); err != nil {
					m.log.Debug().Str("line", line).Msg("unknown stream line")
				} else {
					if chunk.Error != nil {
						yield(llm.Step{}, chunk.Error.err())
						return
					}
					if chunk.IDSlot != nil {
						slot = *chunk.IDSlot
					}
					if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
						text.WriteString(chunk.Choices[0].Delta.Content)
						if !yield(step(), nil) {
							return
						}
					}
				}
			}
			if rerr != nil {
				// A complete stream ends with [DONE].
				if errors.Is(rerr, io.EOF) {
					rerr = io.ErrUnexpectedEOF
				}
				if ctx.Err() != nil {
					rerr = ctx.Err()
				}
				yield(llm.Step{}, rerr)
				return
			}
		}
	}
}

// sseData extracts the payload of a "data:" line.
func sseData(line string) (string, bool) {
	return sseField(line, "data:")
}

// sseField extracts the payload of a line starting with field, which
// includes its trailing colon.
func sseField(line, field string) (string, bool) {
	l := strings.TrimSpace(line)
	if len(l) < len(field) || !strings.EqualFold(l[:len(field)], field) {
		return "", false
	}
	return strings.TrimSpace(l[len(field):]), true
}

// Close stops the server if this process spawned it.
func (m *model) Close() error {
	m.srv.stop()
	return nil
}
