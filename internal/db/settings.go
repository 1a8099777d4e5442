package db

import (
	"context"
	"encoding/json"
	"fmt"
)

const syncSettingsKey = "sync_settings"

// GetSyncSettings returns the persisted WebDAV settings, or nil when
// none have been saved yet.
func (s *Store) GetSyncSettings(ctx context.Context) (*SyncSettings, error) {
	raw, err := s.GetMetadata(ctx, syncSettingsKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var settings SyncSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode sync settings: %w", err)
	}
	return &settings, nil
}

func (s *Store) SaveSyncSettings(ctx context.Context, settings *SyncSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode sync settings: %w", err)
	}
	return s.SetMetadata(ctx, syncSettingsKey, string(raw))
}
