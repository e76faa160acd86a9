// Package session persists CommitStackState snapshots as checkpoints, so
// a CLI invocation of histedit can undo an edit or resume a previous one.
// Store's CRUD is grounded on the teacher's internal/storage.BadgerStore,
// specialized here to Checkpoint rather than kept as a generic Entity
// store, since Checkpoint is the only thing this engine ever persists.
// Each Checkpoint's own JSON encoding layers zstd compression grounded on
// the teacher's internal/safe compressionManager.
package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"histedit/internal/compress"
	"histedit/internal/parcel"
	shared "histedit/shared/types"
)

// Checkpoint is one saved snapshot of a commit stack's ExportStack form,
// labeled so `histedit undo` can find its way back to it. Its MarshalJSON/
// UnmarshalJSON compress and decompress the Export payload, so Store's
// plain json.Marshal(cp) call is enough to get compressed blobs on disk
// without Store itself knowing about zstd.
type Checkpoint struct {
	ID        string
	Label     string
	CreatedAt int64
	Export    shared.ExportStack
}

// checkpointWire is what actually goes to/from JSON: the compressed form
// of Export alongside the plain metadata fields.
type checkpointWire struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	CreatedAt int64  `json:"created_at"`
	Blob      []byte `json:"blob"`
}

var sharedCompressor, _ = compress.NewManager(compress.DefaultOptions())

func (c Checkpoint) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(c.Export)
	if err != nil {
		return nil, fmt.Errorf("marshaling checkpoint export: %w", err)
	}
	wire := checkpointWire{ID: c.ID, Label: c.Label, CreatedAt: c.CreatedAt, Blob: sharedCompressor.Compress(raw)}
	return json.Marshal(wire)
}

func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var wire checkpointWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	raw, err := sharedCompressor.Decompress(wire.Blob)
	if err != nil {
		return fmt.Errorf("decompressing checkpoint export: %w", err)
	}
	var export shared.ExportStack
	if err := json.Unmarshal(raw, &export); err != nil {
		return fmt.Errorf("decoding checkpoint export: %w", err)
	}
	c.ID, c.Label, c.CreatedAt, c.Export = wire.ID, wire.Label, wire.CreatedAt, export
	return nil
}

// Store persists Checkpoints in a badger.DB, keyed by checkpointPrefix so
// the same database could later hold other prefixed entities alongside it.
type Store struct {
	db *badger.DB
}

const checkpointPrefix = "checkpoint"

func Open(path string) (*Store, error) {
	db, err := parcel.InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening session store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func checkpointKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, id))
}

// Save persists a new checkpoint for export under label, returning the
// checkpoint's generated ID.
func (s *Store) Save(label string, export shared.ExportStack, createdAt int64) (string, error) {
	cp := Checkpoint{ID: uuid.NewString(), Label: label, CreatedAt: createdAt, Export: export}
	data, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("marshaling checkpoint: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(cp.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("saving checkpoint: %w", err)
	}
	return cp.ID, nil
}

// Load fetches a checkpoint by ID.
func (s *Store) Load(id string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cp)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("checkpoint not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes a checkpoint by ID.
func (s *Store) Delete(id string) error {
	key := checkpointKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return fmt.Errorf("checkpoint not found: %s", id)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// List returns every checkpoint, most recent first. Badger iterates keys in
// lexicographic order, which bears no relation to save order since
// checkpoint IDs are random uuids, so this sorts by CreatedAt explicitly
// rather than trusting key order.
func (s *Store) List() ([]Checkpoint, error) {
	var out []Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(checkpointPrefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if !strings.HasPrefix(string(item.Key()), string(prefix)) {
				continue
			}
			var cp Checkpoint
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &cp)
			})
			if err != nil {
				return err
			}
			out = append(out, cp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// Last returns the most recently saved checkpoint, or nil if none exist —
// the undo stack's natural top.
func (s *Store) Last() (*Checkpoint, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}
