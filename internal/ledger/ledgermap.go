package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zinc-sig/tally/internal/retry"
)

// MapSuffix is appended to the sheet name to form the side map file name.
const MapSuffix = "_cell_map.json"

// Entry is the address of one field or test column and the longest value
// written to it so far.
type Entry struct {
	Location      string `json:"location"`
	LongestString int    `json:"longest_string"`
}

// Map is the persisted column assignment of a sheet. Both blocks are keyed by
// the same names.
type Map struct {
	Pass map[string]*Entry `json:"pass"`
	Fail map[string]*Entry `json:"fail"`
}

func newMap(size int) *Map {
	return &Map{
		Pass: make(map[string]*Entry, size),
		Fail: make(map[string]*Entry, size),
	}
}

// Block returns the entries of one block.
func (m *Map) Block(b Block) map[string]*Entry {
	if b == BlockPass {
		return m.Pass
	}
	return m.Fail
}

// Validate checks that both blocks hold exactly the given names and that no
// two entries share a column.
func (m *Map) Validate(names []string) error {
	if m.Pass == nil || m.Fail == nil {
		return fmt.Errorf("%w: missing pass or fail block", ErrMalformedMap)
	}

	used := make(map[string]string, 2*len(names))
	for _, block := range []Block{BlockPass, BlockFail} {
		entries := m.Block(block)
		if len(entries) != len(names) {
			return fmt.Errorf("%w: %s block has %d columns, layout needs %d", ErrLayoutMismatch, block, len(entries), len(names))
		}
		for _, name := range names {
			entry, ok := entries[name]
			if !ok {
				return fmt.Errorf("%w: %s block has no column for %q", ErrLayoutMismatch, block, name)
			}
			if entry == nil || entry.Location == "" {
				return fmt.Errorf("%w: %s/%s has no location", ErrMalformedMap, block, name)
			}
			key := string(block) + "/" + name
			if other, clash := used[entry.Location]; clash {
				return fmt.Errorf("%w: %s and %s share column %s", ErrMalformedMap, other, key, entry.Location)
			}
			used[entry.Location] = key
		}
	}
	return nil
}

// MapPath returns the side map file for a sheet in dir.
func MapPath(dir, sheet string) string {
	return filepath.Join(dir, sheet+MapSuffix)
}

// SaveMap writes the map as indented JSON, replacing path atomically.
func SaveMap(path string, m *Map) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// ReadMap reads a map file once. A missing file yields an error wrapping
// fs.ErrNotExist; anything unparsable yields ErrMalformedMap.
func ReadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformedMap, path, err)
	}
	if m.Pass == nil || m.Fail == nil {
		return nil, fmt.Errorf("%w %s: missing pass or fail block", ErrMalformedMap, path)
	}
	return &m, nil
}

// WaitMap polls for a map file that another process may still be creating.
// A malformed file fails at once; a missing one is retried until the policy
// timeout, after which the returned error wraps retry.ErrTimeout.
func WaitMap(ctx context.Context, path string, policy retry.Policy) (*Map, error) {
	var m *Map
	err := retry.Poll(ctx, policy, func(int) (bool, error) {
		var err error
		m, err = ReadMap(path)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, fs.ErrNotExist):
			return false, nil
		default:
			return false, err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for map file %s: %w", path, err)
	}
	return m, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
