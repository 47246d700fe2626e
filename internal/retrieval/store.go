package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var documentsBucket = []byte("documents")

const (
	MetaSource = "source"
	MetaChunk  = "chunk"
)

type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Store keeps document chunks in a bbolt file and answers keyword searches.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces documents by ID.
func (s *Store) Put(ctx context.Context, docs ...Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putDocuments(tx.Bucket(documentsBucket), docs)
	})
}

// DeleteSource removes every chunk whose source metadata equals source.
func (s *Store) DeleteSource(ctx context.Context, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		n, err := deleteSource(tx.Bucket(documentsBucket), source)
		removed = n
		return err
	})
	return removed, err
}

// ReplaceSource swaps the chunks of source for docs in one transaction. On
// error the previous chunks are left untouched.
func (s *Store) ReplaceSource(ctx context.Context, source string, docs ...Document) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		n, err := deleteSource(b, source)
		if err != nil {
			return err
		}
		removed = n
		return putDocuments(b, docs)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func putDocuments(b *bolt.Bucket, docs []Document) error {
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document id is required")
		}
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(d.ID), data); err != nil {
			return err
		}
	}
	return nil
}

func deleteSource(b *bolt.Bucket, source string) (int, error) {
	var ids [][]byte
	err := b.ForEach(func(k, v []byte) error {
		var d Document
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		if d.Source() == source {
			ids = append(ids, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := b.Delete(id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(documentsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Search returns up to k documents ranked by how many distinct query terms
// they contain. Documents sharing no term with the query are never returned.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}
	terms := Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		doc   Document
		score int
	}
	var hits []scored
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(_, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d Document
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			docTerms := termSet(d.Content)
			score := 0
			for _, t := range terms {
				if docTerms[t] {
					score++
				}
			}
			if score > 0 {
				hits = append(hits, scored{doc: d, score: score})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Document, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.doc)
	}
	return out, nil
}
