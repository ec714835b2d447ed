// Package service contains application services.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helios-rules/helios/internal/adapter/outbound/evalstore"
	"github.com/helios-rules/helios/internal/domain/engine"
)

// EvaluateRequest is an evaluation request from the API. EventID is
// optional; a UUID is assigned when absent.
type EvaluateRequest struct {
	EventID    string         `json:"event_id,omitempty"`
	EventType  string         `json:"event_type"`
	Attributes map[string]any `json:"attributes"`
}

// EvaluateResponse is the serialized MatchResult returned to the API.
type EvaluateResponse struct {
	EventID             string   `json:"event_id"`
	EventType           string   `json:"event_type"`
	MatchedRuleCodes    []string `json:"matched_rule_codes"`
	PredicatesEvaluated int      `json:"predicates_evaluated"`
	LatencyNanos        int64    `json:"latency_ns"`
}

// EvaluationService wraps the core evaluator for the HTTP surface: it
// assigns event ids, appends evaluation records to the optional store, and
// logs one line per evaluation.
type EvaluationService struct {
	evaluator *engine.Evaluator
	store     *evalstore.Store // nil disables recording
	logger    *slog.Logger
}

// NewEvaluationService creates an EvaluationService. Pass a nil store to
// disable evaluation recording.
func NewEvaluationService(evaluator *engine.Evaluator, store *evalstore.Store, logger *slog.Logger) *EvaluationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationService{evaluator: evaluator, store: store, logger: logger}
}

// Evaluate processes one evaluation request. Engine errors pass through
// unwrapped so transports can map them (InvalidEvent, ModelNotLoaded,
// ModelInvariantViolated); record-store failures are logged and swallowed.
func (s *EvaluationService) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	result, err := s.evaluator.Evaluate(engine.EventFromMap(eventID, req.EventType, req.Attributes))
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		rec := evalstore.Record{
			RequestID:           uuid.New().String(),
			EventID:             eventID,
			EventType:           req.EventType,
			MatchedRuleCodes:    result.MatchedRuleCodes,
			PredicatesEvaluated: result.PredicatesEvaluated,
			LatencyNanos:        result.WallNanos,
			CreatedAt:           time.Now().UTC(),
		}
		if err := s.store.Insert(ctx, rec); err != nil {
			s.logger.Warn("failed to record evaluation", "event_id", eventID, "error", err)
		}
	}

	s.logger.Debug("evaluation completed",
		"event_id", eventID,
		"event_type", req.EventType,
		"matched", len(result.MatchedRuleCodes),
		"predicates_evaluated", result.PredicatesEvaluated,
		"latency_ns", result.WallNanos,
	)

	codes := result.MatchedRuleCodes
	if codes == nil {
		codes = []string{} // serialize as [] rather than null
	}

	return &EvaluateResponse{
		EventID:             eventID,
		EventType:           req.EventType,
		MatchedRuleCodes:    codes,
		PredicatesEvaluated: result.PredicatesEvaluated,
		LatencyNanos:        result.WallNanos,
	}, nil
}

// IsReady reports whether a non-empty model is loaded.
func (s *EvaluationService) IsReady() bool {
	return s.evaluator.IsReady()
}
