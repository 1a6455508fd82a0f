package livestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProgressUpdate is one step of a long-running job (session-end report).
// Percent runs 0-100; Done marks the terminal update.
type ProgressUpdate struct {
	JobID   string `json:"job_id"`
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`
}

// progressTTL keeps the last state around long enough for late subscribers
// and page reloads.
const progressTTL = 30 * time.Minute

// ProgressPublisher fans job progress out over redis pub/sub and keeps the
// last update in a TTL'd key so a subscriber who connects late still sees
// the current state.
type ProgressPublisher struct {
	client *redis.Client
}

func NewProgressPublisher(client *redis.Client) *ProgressPublisher {
	return &ProgressPublisher{client: client}
}

func progressChannel(jobID string) string {
	return fmt.Sprintf("progress:job:%s", jobID)
}

func progressStateKey(jobID string) string {
	return fmt.Sprintf("progress:job:%s:state", jobID)
}

// Publish stores the update as the job's last state and broadcasts it.
func (p *ProgressPublisher) Publish(ctx context.Context, update ProgressUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal progress update: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, progressStateKey(update.JobID), data, progressTTL)
	pipe.Publish(ctx, progressChannel(update.JobID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	return nil
}

// LastState returns the most recent update for the job, or (nil, nil) when
// the job is unknown or expired.
func (p *ProgressPublisher) LastState(ctx context.Context, jobID string) (*ProgressUpdate, error) {
	data, err := p.client.Get(ctx, progressStateKey(jobID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress state: %w", err)
	}

	var update ProgressUpdate
	if err := json.Unmarshal([]byte(data), &update); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress state: %w", err)
	}
	return &update, nil
}

// Subscribe streams updates for the job until the context is cancelled or a
// terminal update arrives. The last stored state, if any, is delivered first.
func (p *ProgressPublisher) Subscribe(ctx context.Context, jobID string) (<-chan ProgressUpdate, error) {
	sub := p.client.Subscribe(ctx, progressChannel(jobID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to progress channel: %w", err)
	}

	out := make(chan ProgressUpdate, 8)

	go func() {
		defer close(out)
		defer sub.Close()

		if last, err := p.LastState(ctx, jobID); err == nil && last != nil {
			select {
			case out <- *last:
				if last.Done {
					return
				}
			case <-ctx.Done():
				return
			}
		}

		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var update ProgressUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
				if update.Done {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
