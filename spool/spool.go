// Copyright 2025 The taxrag Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package spool

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/nathanfarq/taxrag/core"
)

const (
	documentPrefix    = "doc:"
	documentIDSeq     = "docseq"
	sequenceBandwidth = 100
)

// Spool is a durable local queue of crawled documents awaiting
// ingestion. The crawl framework appends documents as it scrapes; the
// ingest run iterates them in arrival order. Documents survive process
// restarts between crawl and ingest.
type Spool struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a spool at the specified directory, creating it if needed.
// With inMemory set, nothing touches disk; used by tests.
func Open(filePath string, inMemory bool) (*Spool, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	seq, err := db.GetSequence([]byte(documentIDSeq), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Spool{
		db:     db,
		seq:    seq,
		logger: slog.Default().With("component", "spool"),
	}, nil
}

// Close releases the sequence and closes the underlying database.
func (s *Spool) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.Error("error releasing spool sequence", "err", err)
	}
	return s.db.Close()
}

// makeDocumentKey builds a key whose lexicographic order matches
// insertion order.
func makeDocumentKey(id uint64) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], id)
	return buf
}

// Append adds documents to the end of the spool.
func (s *Spool) Append(docs ...core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for i := range docs {
			id, err := s.seq.Next()
			if err != nil {
				return err
			}
			if err := txn.Set(makeDocumentKey(id), MarshalDocument(&docs[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of spooled documents.
func (s *Spool) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(documentPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Iter returns an iterator over spooled documents in arrival order.
// The iterator holds a read transaction; Close it when done.
func (s *Spool) Iter() *Iterator {
	txn := s.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentPrefix)
	it := txn.NewIterator(opts)
	it.Rewind()
	return &Iterator{txn: txn, it: it}
}

// Clear removes every spooled document. Called after a fully successful
// ingest run so the next crawl starts from an empty spool.
func (s *Spool) Clear() error {
	return s.db.DropPrefix([]byte(documentPrefix))
}

// Iterator walks the spool in arrival order.
type Iterator struct {
	txn *badger.Txn
	it  *badger.Iterator
}

// Next returns the next spooled document, or ErrSpoolDrained once the
// spool is exhausted.
func (i *Iterator) Next() (*core.Document, error) {
	if !i.it.Valid() {
		return nil, ErrSpoolDrained
	}

	var doc *core.Document
	err := i.it.Item().Value(func(val []byte) error {
		var err error
		doc, err = UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	i.it.Next()
	return doc, nil
}

// Close releases the iterator and its transaction.
func (i *Iterator) Close() {
	i.it.Close()
	i.txn.Discard()
}
