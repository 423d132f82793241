package dbos

import (
	"context"
	"encoding/json"
	"fmt"
)

const eventLogKey = "events:log"

// LogEvent appends entry to the head of the event log, so GetEvents reads
// newest-first without a secondary index.
func (s *Store) LogEvent(ctx context.Context, entry EventLogEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.kv.LPush(ctx, eventLogKey, string(data))
}

// GetEvents returns up to limit of the most recent events.
func (s *Store) GetEvents(ctx context.Context, limit int64) ([]EventLogEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	raws, err := s.kv.LRange(ctx, eventLogKey, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]EventLogEntry, 0, len(raws))
	for _, raw := range raws {
		var e EventLogEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
