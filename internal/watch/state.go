package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"clipshift/internal/fileutil"
)

// state is the persisted poller memory: every examined video ID and the time
// of the last completed cycle.
type state struct {
	Seen     map[string]time.Time `json:"seen"`
	LastPoll time.Time            `json:"last_poll,omitempty"`
}

func loadState(path string) (*state, error) {
	st := &state{Seen: make(map[string]time.Time)}
	if path == "" {
		return st, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("read watch state: %w", err)
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse watch state: %w", err)
	}
	if st.Seen == nil {
		st.Seen = make(map[string]time.Time)
	}
	return st, nil
}

func saveState(path string, st *state) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode watch state: %w", err)
	}
	return fileutil.AtomicWriteFile(path, data, 0o644)
}
