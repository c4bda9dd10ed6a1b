package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetJSON reads key and decodes the body into out. It reports false on a
// miss, on expiry or when the body no longer decodes.
func GetJSON(ctx context.Context, r Reader, key string, maxAge time.Duration, out any) bool {
	if r == nil {
		return false
	}
	entry, ok := r.Read(ctx, key, maxAge)
	if !ok || entry == nil {
		return false
	}
	return json.Unmarshal(entry.Body, out) == nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, w Writer, key string, v any) error {
	if w == nil {
		return nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.Write(ctx, key, &Entry{Body: body})
}
