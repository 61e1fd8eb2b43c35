// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package graphstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Key prefixes for BadgerDB storage
const (
	nodeKeyPrefix     = "node:"     // node:{id} -> Node JSON
	tenantKeyPrefix   = "tnode:"    // tnode:{tenant}:{id} -> empty
	edgeKeyPrefix     = "edge:"     // edge:{from}:{to} -> Edge JSON
	curatedKeyPrefix  = "curated:"  // curated:{tenant}:{origin} -> []string JSON
	fallbackKeyPrefix = "fallback:" // fallback:{tenant} -> node id
	travKeyPrefix     = "trav:"     // trav:{tenant}:{from}:{to} -> uint64 count
)

// BadgerStore persists the node graph in BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool

	// travMu serializes counter increments within this process.
	travMu sync.Mutex
}

// NewBadgerStore wraps an open database. The caller keeps ownership of db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a database at path. An empty path
// opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// PutNode inserts or replaces a node and its tenant index entry.
func (s *BadgerStore) PutNode(ctx context.Context, n navigation.Node) error {
	if err := validateNode(&n); err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// A node moving tenants leaves a stale index entry behind otherwise.
		var prev navigation.Node
		found, err := getJSON(txn, nodeKeyPrefix+n.ID, &prev)
		if err != nil {
			return err
		}
		if found && prev.TenantID != n.TenantID {
			if err := txn.Delete([]byte(tenantKeyPrefix + prev.TenantID + ":" + n.ID)); err != nil {
				return fmt.Errorf("delete tenant index: %w", err)
			}
		}

		if err := txn.Set([]byte(nodeKeyPrefix+n.ID), data); err != nil {
			return fmt.Errorf("set node: %w", err)
		}
		if err := txn.Set([]byte(tenantKeyPrefix+n.TenantID+":"+n.ID), nil); err != nil {
			return fmt.Errorf("set tenant index: %w", err)
		}
		return nil
	})
}

// PutEdge inserts or replaces the edge fromID -> e.ToNodeID.
func (s *BadgerStore) PutEdge(ctx context.Context, fromID string, e navigation.Edge) error {
	if err := validateID("from node id", fromID); err != nil {
		return err
	}
	if err := validateID("to node id", e.ToNodeID); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal edge: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(edgeKeyPrefix+fromID+":"+e.ToNodeID), data)
	})
}

// SetCurated replaces the editorial picks for an origin.
func (s *BadgerStore) SetCurated(ctx context.Context, tenantID, originID string, nodeIDs []string) error {
	if err := validateID("tenant id", tenantID); err != nil {
		return err
	}
	data, err := json.Marshal(nodeIDs)
	if err != nil {
		return fmt.Errorf("marshal curated picks: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(curatedKeyPrefix+tenantID+":"+originID), data)
	})
}

// SetFallback designates the tenant's emergency node. An empty nodeID clears it.
func (s *BadgerStore) SetFallback(ctx context.Context, tenantID, nodeID string) error {
	if err := validateID("tenant id", tenantID); err != nil {
		return err
	}
	key := []byte(fallbackKeyPrefix + tenantID)
	return s.db.Update(func(txn *badger.Txn) error {
		if nodeID == "" {
			return txn.Delete(key)
		}
		return txn.Set(key, []byte(nodeID))
	})
}

// RecordTraversal increments the fromID -> toID counter. Increments from
// another process sharing the database are retried on transaction conflict.
func (s *BadgerStore) RecordTraversal(ctx context.Context, tenantID, fromID, toID string) error {
	if err := validateID("tenant id", tenantID); err != nil {
		return err
	}
	if err := validateID("to node id", toID); err != nil {
		return err
	}
	if fromID != "" {
		if err := validateID("from node id", fromID); err != nil {
			return err
		}
	}
	key := []byte(travKeyPrefix + tenantID + ":" + fromID + ":" + toID)

	s.travMu.Lock()
	defer s.travMu.Unlock()

	for attempt := 0; attempt < 5; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			var count uint64
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					if len(val) == 8 {
						count = binary.BigEndian.Uint64(val)
					}
					return nil
				}); err != nil {
					return err
				}
			}
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], count+1)
			return txn.Set(key, buf[:])
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("record traversal: %w", badger.ErrConflict)
}

// OutgoingEdges implements navigation.GraphStore. Edges are ordered by target id.
func (s *BadgerStore) OutgoingEdges(ctx context.Context, nodeID string) ([]navigation.Edge, error) {
	var edges []navigation.Edge
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(ctx, txn, edgeKeyPrefix+nodeID+":", true, func(_ string, val []byte) error {
			var e navigation.Edge
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("unmarshal edge: %w", err)
			}
			edges = append(edges, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// QuerySimilar implements navigation.GraphStore.
func (s *BadgerStore) QuerySimilar(ctx context.Context, nodeID string, k int) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		var origin navigation.Node
		found, err := getJSON(txn, nodeKeyPrefix+nodeID, &origin)
		if err != nil || !found || len(origin.Tags) == 0 {
			return err
		}
		nodes, err := tenantNodes(ctx, txn, origin.TenantID)
		if err != nil {
			return err
		}
		ids = rankSimilar(&origin, nodes, k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// QueryPopular implements navigation.GraphStore.
func (s *BadgerStore) QueryPopular(ctx context.Context, tenantID, nodeID string, k int) ([]string, error) {
	prefix := travKeyPrefix + tenantID + ":"
	if nodeID != "" {
		prefix += nodeID + ":"
	}

	counts := make(map[string]uint64)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(ctx, txn, prefix, true, func(key string, val []byte) error {
			if len(val) != 8 {
				return nil
			}
			to := key[strings.LastIndexByte(key, ':')+1:]
			counts[to] += binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rankCounts(counts, nodeID, k), nil
}

// CuratedPicks implements navigation.GraphStore.
func (s *BadgerStore) CuratedPicks(ctx context.Context, tenantID, nodeID string, k int) ([]string, error) {
	var picks []string
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, curatedKeyPrefix+tenantID+":"+nodeID, &picks)
		if err != nil || found || nodeID == "" {
			return err
		}
		_, err = getJSON(txn, curatedKeyPrefix+tenantID+":", &picks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return limitIDs(picks, k), nil
}

// EligibleNodes implements navigation.GraphStore. IDs are in key order.
func (s *BadgerStore) EligibleNodes(ctx context.Context, tenantID string, limit int) ([]string, error) {
	prefix := tenantKeyPrefix + tenantID + ":"
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit >= 0 && len(ids) >= limit {
				return nil
			}
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Nodes implements navigation.GraphStore.
func (s *BadgerStore) Nodes(ctx context.Context, ids []string) (map[string]navigation.Node, error) {
	out := make(map[string]navigation.Node, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			var n navigation.Node
			found, err := getJSON(txn, nodeKeyPrefix+id, &n)
			if err != nil {
				return err
			}
			if found {
				out[id] = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FallbackNode implements navigation.GraphStore.
func (s *BadgerStore) FallbackNode(ctx context.Context, tenantID, originID string) (string, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fallbackKeyPrefix + tenantID))
		switch {
		case err == nil:
			return item.Value(func(val []byte) error {
				id = string(val)
				return nil
			})
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("get fallback: %w", err)
		}

		var origin *navigation.Node
		if originID != "" {
			var n navigation.Node
			found, err := getJSON(txn, nodeKeyPrefix+originID, &n)
			if err != nil {
				return err
			}
			if found {
				origin = &n
			}
		}
		nodes, err := tenantNodes(ctx, txn, tenantID)
		if err != nil {
			return err
		}
		id = pickStart(origin, nodes)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// getJSON decodes the value at key into v and reports whether it existed.
func getJSON(txn *badger.Txn, key string, v any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// scanPrefix calls fn for every key under prefix in key order.
func scanPrefix(ctx context.Context, txn *badger.Txn, prefix string, values bool, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = values
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		key := string(item.Key())
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

func tenantNodes(ctx context.Context, txn *badger.Txn, tenantID string) ([]navigation.Node, error) {
	prefix := tenantKeyPrefix + tenantID + ":"
	var ids []string
	if err := scanPrefix(ctx, txn, prefix, false, func(key string, _ []byte) error {
		ids = append(ids, strings.TrimPrefix(key, prefix))
		return nil
	}); err != nil {
		return nil, err
	}

	nodes := make([]navigation.Node, 0, len(ids))
	for _, id := range ids {
		var n navigation.Node
		found, err := getJSON(txn, nodeKeyPrefix+id, &n)
		if err != nil {
			return nil, err
		}
		if found {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}
