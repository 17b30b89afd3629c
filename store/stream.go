package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	runStreamKey    = "roomsync:runs"
	runStreamMaxLen = 512
	tailBlock       = 5 * time.Second
	tailBatchCount  = 50
)

// RunEvent is one entry of the run lifecycle stream.
type RunEvent struct {
	ID     string         `json:"id"`
	Phase  string         `json:"phase"`
	RunID  string         `json:"run_id"`
	Values map[string]any `json:"values"`
}

// RunStream publishes run lifecycle events (started, finished, failed)
// to a capped Redis stream and lets websocket clients tail it.
type RunStream struct {
	client *redis.Client
}

// NewRunStream creates a run stream around a redis client.
func NewRunStream(client *redis.Client) *RunStream {
	return &RunStream{client: client}
}

// Publish appends an event, trimming the stream to its cap.
func (s *RunStream) Publish(ctx context.Context, phase, runID string, values map[string]any) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("run stream not configured")
	}

	entry := map[string]any{
		"phase":  phase,
		"run_id": runID,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range values {
		entry[k] = v
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: runStreamKey,
		MaxLen: runStreamMaxLen,
		Approx: true,
		Values: entry,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append run event: %w", err)
	}
	return id, nil
}

// Tail blocks for events after afterID and returns them with the
// latest ID observed. An empty afterID tails from now.
func (s *RunStream) Tail(ctx context.Context, afterID string) ([]RunEvent, string, error) {
	if s == nil || s.client == nil {
		return nil, afterID, fmt.Errorf("run stream not configured")
	}
	if strings.TrimSpace(afterID) == "" {
		afterID = "$"
	}

	res, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{runStreamKey, afterID},
		Count:   tailBatchCount,
		Block:   tailBlock,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, afterID, nil
		}
		return nil, afterID, err
	}

	events := make([]RunEvent, 0)
	nextID := afterID
	for _, stream := range res {
		for _, msg := range stream.Messages {
			values := make(map[string]any, len(msg.Values))
			for k, v := range msg.Values {
				values[k] = v
			}
			events = append(events, RunEvent{
				ID:     msg.ID,
				Phase:  stringVal(values["phase"]),
				RunID:  stringVal(values["run_id"]),
				Values: values,
			})
			nextID = msg.ID
		}
	}
	return events, nextID, nil
}

func stringVal(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}
