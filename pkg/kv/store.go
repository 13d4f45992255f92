package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Backend is the raw durable key-value surface beneath a Store.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

const wrapperField = "value"

// WriteOptions controls TTL handling during Write.
type WriteOptions struct {
	// TTL bounds how long the entry stays readable. Zero means no expiry.
	TTL time.Duration
	// ExpiryField names the JSON member that receives the epoch-millis
	// deadline injected into the stored object when TTL is set.
	ExpiryField string
}

// ReadOptions controls expiry handling during Read.
type ReadOptions struct {
	// ExpiryField names the JSON member holding the epoch-millis deadline.
	// When present and past, the entry is deleted and reported absent.
	ExpiryField string
}

// Store wraps a Backend with JSON envelopes and expiry-on-read semantics.
// Expiry is lazy: it is checked when an entry is accessed, not on a timer.
type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) (*Store, error) {
	if backend == nil {
		return nil, errors.New("kv backend required")
	}
	return &Store{backend: backend, now: time.Now}, nil
}

// Write marshals value and stores it at key. With a TTL and an expiry field
// configured, the deadline is injected into the stored object; values that
// are not JSON objects are wrapped first.
func (s *Store) Write(ctx context.Context, key string, value any, opts WriteOptions) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if opts.TTL > 0 && opts.ExpiryField != "" {
		deadline := s.now().Add(opts.TTL).UnixMilli()

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			fields = map[string]json.RawMessage{wrapperField: raw}
		}
		millis, err := json.Marshal(deadline)
		if err != nil {
			return err
		}
		fields[opts.ExpiryField] = millis

		if raw, err = json.Marshal(fields); err != nil {
			return err
		}
	}

	return s.backend.Set(ctx, key, string(raw), opts.TTL)
}

// Read loads the entry at key into dest. It reports false when the key is
// absent, the entry expired, or the stored payload cannot be parsed.
func (s *Store) Read(ctx context.Context, key string, opts ReadOptions, dest any) (bool, error) {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	var fields map[string]json.RawMessage
	parsable := json.Unmarshal([]byte(raw), &fields) == nil

	if opts.ExpiryField != "" && parsable {
		if deadlineRaw, ok := fields[opts.ExpiryField]; ok {
			var deadline int64
			if json.Unmarshal(deadlineRaw, &deadline) == nil && deadline <= s.now().UnixMilli() {
				if err := s.backend.Del(ctx, key); err != nil {
					return false, err
				}
				return false, nil
			}
		}
	}

	payload := []byte(raw)
	if opts.ExpiryField != "" && parsable {
		if wrapped, ok := fields[wrapperField]; ok && len(fields) <= 2 {
			payload = wrapped
		}
	}

	// Corrupt payloads count as absent rather than failing the caller.
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes the given keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.backend.Del(ctx, keys...)
}
