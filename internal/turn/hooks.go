// Package turn wires the engine into a host agent runtime. BeforeTurn
// records the incoming message and assembles the injected context block;
// AfterTurn records the reply and runs auto-capture. Recall and capture
// are best-effort enrichment: their failures are logged and the turn
// proceeds without them.
package turn

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/capture"
	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/metrics"
	"github.com/mnemo-ai/mnemo/internal/recall"
)

// maxCapturesPerTurn caps auto-capture so one chatty turn cannot flood
// the memory store.
const maxCapturesPerTurn = 2

// Message is one element of the host's message list.
type Message struct {
	Role     string `json:"role"` // "user" or "assistant"
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

// Options tunes the hook behavior; the zero value falls back to the
// aggregator and cache defaults.
type Options struct {
	ContextLimit    int
	ContextMinScore float64
	SnippetLength   int
	RecentMessages  int
	RecentTTLSec    int
}

// Hooks is the pair of call sites a host runtime invokes around a turn.
type Hooks struct {
	recorder   *conversation.Recorder
	aggregator *recall.Aggregator
	engine     *memory.Service
	recent     *conversation.RecentCache
	events     *events.Publisher
	opts       Options
}

// NewHooks builds the turn hooks. recent and ev may be nil when the
// cache or event bus is not configured.
func NewHooks(recorder *conversation.Recorder, aggregator *recall.Aggregator, engine *memory.Service, recent *conversation.RecentCache, ev *events.Publisher, opts Options) *Hooks {
	return &Hooks{
		recorder:   recorder,
		aggregator: aggregator,
		engine:     engine,
		recent:     recent,
		events:     ev,
		opts:       opts,
	}
}

// BeforeTurnResult is what the host prepends to the prompt.
type BeforeTurnResult struct {
	RequestID    uuid.UUID            `json:"request_id"`
	ContextBlock string               `json:"context_block,omitempty"`
	Hits         []recall.Hit         `json:"hits,omitempty"`
	Recent       []conversation.Entry `json:"recent,omitempty"`
}

// BeforeTurn records the incoming user message, then gathers context:
// the recent-conversation window and the unified similarity search,
// rendered as the injected block. Recording failure is fatal (the turn
// trail must exist); recall failure is not.
func (h *Hooks) BeforeTurn(ctx context.Context, ownerID, sessionID, message string) (*BeforeTurnResult, error) {
	req, err := h.recorder.RecordRequest(ctx, ownerID, conversation.RequestInput{
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		return nil, err
	}

	result := &BeforeTurnResult{RequestID: req.ID}

	if h.recent != nil {
		entries, err := h.recent.Recent(ctx, ownerID, sessionID, h.opts.RecentMessages)
		if err != nil {
			slog.Warn("recent window unavailable", "owner", ownerID, "error", err)
		} else {
			result.Recent = entries
		}
	}

	hits, err := h.aggregator.SearchAll(ctx, ownerID, message, h.opts.ContextLimit, h.opts.ContextMinScore)
	if err != nil {
		slog.Warn("context recall failed", "owner", ownerID, "error", err)
		return result, nil
	}
	result.Hits = hits
	result.ContextBlock = recall.FormatContext(hits, h.opts.SnippetLength)
	return result, nil
}

// AfterTurnResult reports what the post-turn pass persisted.
type AfterTurnResult struct {
	ResponseID  uuid.UUID `json:"response_id,omitempty"`
	ReasoningID uuid.UUID `json:"reasoning_id,omitempty"`
	Captured    int       `json:"captured"`
}

// AfterTurn extracts the last user and assistant texts plus any thinking
// segment from the message list, records the response and reasoning, and
// runs the capture classifier over both texts, storing at most
// maxCapturesPerTurn accepted ones. Capture failures are logged only.
func (h *Hooks) AfterTurn(ctx context.Context, ownerID, sessionID string, requestID uuid.UUID, msgs []Message, modelUsed string) (*AfterTurnResult, error) {
	userText, assistantText, thinking := extract(msgs)
	result := &AfterTurnResult{}

	if assistantText != "" {
		res, err := h.recorder.RecordResponse(ctx, requestID, conversation.ResponseInput{
			Response:  assistantText,
			ModelUsed: modelUsed,
		})
		if err != nil {
			return nil, err
		}
		result.ResponseID = res.ID
	}
	if thinking != "" {
		rsn, err := h.recorder.RecordReasoning(ctx, requestID, conversation.ReasoningInput{
			Content:   thinking,
			ModelUsed: modelUsed,
		})
		if err != nil {
			return nil, err
		}
		result.ReasoningID = rsn.ID
	}

	result.Captured = h.autoCapture(ctx, ownerID, sessionID, requestID, userText, assistantText)

	h.appendRecent(ctx, ownerID, sessionID, userText, assistantText)
	h.publishTurn(ctx, ownerID, sessionID, requestID, result.Captured)
	return result, nil
}

func (h *Hooks) autoCapture(ctx context.Context, ownerID, sessionID string, requestID uuid.UUID, texts ...string) int {
	captured := 0
	for _, text := range texts {
		if captured >= maxCapturesPerTurn {
			break
		}
		if text == "" || !capture.ShouldCapture(text) {
			metrics.CaptureDecisionsTotal.WithLabelValues("rejected").Inc()
			continue
		}
		metrics.CaptureDecisionsTotal.WithLabelValues("accepted").Inc()

		_, err := h.engine.Store(ctx, ownerID, memory.StoreInput{
			Content:    text,
			Category:   capture.DetectCategory(text),
			Importance: memory.DefaultImportance,
			Confidence: memory.DefaultConfidence,
			SessionID:  sessionID,
			SourceType: "auto_capture",
			SourceID:   requestID.String(),
		})
		if err != nil {
			slog.Warn("auto-capture failed", "owner", ownerID, "error", err)
			continue
		}
		captured++
	}
	return captured
}

func (h *Hooks) appendRecent(ctx context.Context, ownerID, sessionID, userText, assistantText string) {
	if h.recent == nil {
		return
	}
	now := time.Now()
	for _, e := range []conversation.Entry{
		{Role: "user", Content: userText, Timestamp: now},
		{Role: "assistant", Content: assistantText, Timestamp: now},
	} {
		if e.Content == "" {
			continue
		}
		if err := h.recent.Append(ctx, ownerID, sessionID, e, h.opts.RecentMessages, h.opts.RecentTTLSec); err != nil {
			slog.Warn("recent window append failed", "owner", ownerID, "error", err)
			return
		}
	}
}

func (h *Hooks) publishTurn(ctx context.Context, ownerID, sessionID string, requestID uuid.UUID, captured int) {
	if h.events == nil {
		return
	}
	err := h.events.PublishTurnRecorded(ctx, events.TurnRecorded{
		RequestID: requestID.String(),
		OwnerID:   ownerID,
		SessionID: sessionID,
		Captured:  captured,
	})
	if err != nil {
		slog.Warn("turn event publish failed", "owner", ownerID, "error", err)
	}
}

// extract walks the message list backwards for the last user text, last
// assistant text, and the last thinking segment attached to any message.
func extract(msgs []Message) (userText, assistantText, thinking string) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if thinking == "" && m.Thinking != "" {
			thinking = m.Thinking
		}
		switch m.Role {
		case "user":
			if userText == "" {
				userText = m.Content
			}
		case "assistant":
			if assistantText == "" {
				assistantText = m.Content
			}
		}
		if userText != "" && assistantText != "" && thinking != "" {
			break
		}
	}
	return userText, assistantText, thinking
}
