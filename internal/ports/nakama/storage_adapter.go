package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"schafkopf/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// maxStatsWriteAttempts bounds retries when a concurrent writer bumped the stats version.
const maxStatsWriteAttempts = 3

type storageModule interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// NakamaArchiveAdapter implements ports.DealArchivePort with system-owned storage objects.
type NakamaArchiveAdapter struct {
	nk storageModule
}

// NewNakamaArchiveAdapter creates a new archive adapter.
func NewNakamaArchiveAdapter(nk storageModule) *NakamaArchiveAdapter {
	return &NakamaArchiveAdapter{nk: nk}
}

// SaveDeal writes the record keyed by its deal ID. Records are readable by any client.
func (a *NakamaArchiveAdapter) SaveDeal(ctx context.Context, record ports.DealRecord) error {
	if record.DealID == "" {
		return fmt.Errorf("deal id is required")
	}
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal deal record: %w", err)
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      dealCollection,
			Key:             record.DealID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive deal %s: %w", record.DealID, err)
	}
	return nil
}

var _ ports.DealArchivePort = (*NakamaArchiveAdapter)(nil)

// NakamaStatsAdapter implements ports.StatsPort with one storage object per player.
type NakamaStatsAdapter struct {
	nk storageModule
}

// NewNakamaStatsAdapter creates a new stats adapter.
func NewNakamaStatsAdapter(nk storageModule) *NakamaStatsAdapter {
	return &NakamaStatsAdapter{nk: nk}
}

// InitStatsOnce creates an empty record; an existing record is left alone.
func (a *NakamaStatsAdapter) InitStatsOnce(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	err := a.write(ctx, userID, ports.PlayerStats{}, "*")
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create stats for %s: %w", userID, err)
	}
	return true, nil
}

// ReadStats returns the record of userID, zero stats when none exists.
func (a *NakamaStatsAdapter) ReadStats(ctx context.Context, userID string) (ports.PlayerStats, error) {
	stats, _, err := a.read(ctx, userID)
	return stats, err
}

// RecordDeal folds every update into the player's record with optimistic versioned writes.
func (a *NakamaStatsAdapter) RecordDeal(ctx context.Context, updates []ports.StatsUpdate) error {
	for _, u := range updates {
		if err := a.apply(ctx, u); err != nil {
			return fmt.Errorf("failed to record stats for %s: %w", u.UserID, err)
		}
	}
	return nil
}

func (a *NakamaStatsAdapter) apply(ctx context.Context, u ports.StatsUpdate) error {
	var err error
	for attempt := 0; attempt < maxStatsWriteAttempts; attempt++ {
		var (
			stats   ports.PlayerStats
			version string
		)
		stats, version, err = a.read(ctx, u.UserID)
		if err != nil {
			return err
		}
		err = a.write(ctx, u.UserID, stats.Apply(u), version)
		if !errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return err
		}
	}
	return err
}

// read returns the stored stats and their version, "*" when the object does not exist yet.
func (a *NakamaStatsAdapter) read(ctx context.Context, userID string) (ports.PlayerStats, string, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: statsCollection, Key: statsKey, UserID: userID},
	})
	if err != nil {
		return ports.PlayerStats{}, "", err
	}
	if len(objects) == 0 {
		return ports.PlayerStats{}, "*", nil
	}
	var stats ports.PlayerStats
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &stats); err != nil {
		return ports.PlayerStats{}, "", fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return stats, objects[0].GetVersion(), nil
}

func (a *NakamaStatsAdapter) write(ctx context.Context, userID string, stats ports.PlayerStats, version string) error {
	value, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      statsCollection,
			Key:             statsKey,
			UserID:          userID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	return err
}

var _ ports.StatsPort = (*NakamaStatsAdapter)(nil)
