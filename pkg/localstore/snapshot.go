package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/golang/snappy"
)

// snapshot is the on-disk representation of the whole store
type snapshot struct {
	Version int       `json:"version"`
	Records []*Record `json:"records"`
}

const snapshotVersion = 1

// SaveSnapshot writes every record to path as snappy-compressed JSON.
// The write goes through a temp file and rename so a crash mid-write
// never leaves a truncated snapshot.
func SaveSnapshot(store Store, path string) error {
	collections, err := store.Collections()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	snap := snapshot{Version: snapshotVersion}
	for _, collection := range collections {
		records, err := store.List(collection)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", collection, err)
		}
		snap.Records = append(snap.Records, records...)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot marshal: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o600); err != nil {
		return fmt.Errorf("snapshot write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot rename: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot file into the store. A missing file is not
// an error; the store simply starts empty.
func LoadSnapshot(store Store, path string) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("snapshot read: %w", err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return fmt.Errorf("snapshot decompress: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("snapshot unmarshal: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("snapshot version %d not supported", snap.Version)
	}

	for _, record := range snap.Records {
		if err := store.Put(record); err != nil {
			return fmt.Errorf("snapshot restore: %w", err)
		}
	}
	return nil
}
