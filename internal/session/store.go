package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/user/catalog-scraper/internal/domain"
)

// ErrCorrupt is returned by Load when a stored session exists but cannot be decoded.
var ErrCorrupt = errors.New("stored session is corrupt")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists and restores the browser session between runs.
type Store interface {
	// Load returns nil, nil when no session has been stored.
	Load(ctx context.Context) (*domain.SessionState, error)
	Save(ctx context.Context, state *domain.SessionState) error
}

type envelope struct {
	CapturedAt time.Time `json:"captured_at"`
	Blob       []byte    `json:"blob"`
}

func encode(state *domain.SessionState) ([]byte, error) {
	if state == nil || len(state.Blob) == 0 {
		return nil, errors.New("refusing to store an empty session")
	}
	return json.Marshal(envelope{CapturedAt: state.CapturedAt.UTC(), Blob: state.Blob})
}

func decode(data []byte) (*domain.SessionState, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(env.Blob) == 0 || env.CapturedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing blob or capture time", ErrCorrupt)
	}
	return &domain.SessionState{Blob: env.Blob, CapturedAt: env.CapturedAt}, nil
}
