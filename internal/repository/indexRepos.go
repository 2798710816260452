package repository

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/dgraph-io/badger/v3"
)

const maxWritesInBatch = 1000

type IndexRepository struct {
	DB 			*badger.DB
	log 		*logger.Logger
	alloc 		*Allocator
	locks 		*docLocks
	stemMu 		*sync.Mutex
	urlMu 		*sync.Mutex
}

// NewIndexRepository opens a badger store at path, or an in-memory one when
// path is empty, and seeds the id allocator from what is already stored.
func NewIndexRepository(path string, log *logger.Logger) (*IndexRepository, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	ir := &IndexRepository{
		DB: db,
		log: log,
		alloc: NewAllocator(),
		locks: newDocLocks(),
		stemMu: new(sync.Mutex),
		urlMu: new(sync.Mutex),
	}
	if err := ir.seedAllocator(); err != nil {
		db.Close()
		return nil, err
	}
	return ir, nil
}

func (ir *IndexRepository) seedAllocator() error {
	docs, err := ir.GetDocumentsCount()
	if err != nil {
		return err
	}
	titles, err := ir.VocabularySize(model.Title)
	if err != nil {
		return err
	}
	bodies, err := ir.VocabularySize(model.Body)
	if err != nil {
		return err
	}
	ir.alloc.Seed(docs, titles, bodies)
	return nil
}

func (ir *IndexRepository) Allocator() *Allocator {
	return ir.alloc
}

func (ir *IndexRepository) AllocateDocId() (uint32, error) {
	return ir.alloc.NextDocId()
}

func (ir *IndexRepository) Close() error {
	return ir.DB.Close()
}

// InsertOccurrence records one occurrence of wid in ns together with its
// forward index entry. Inserting the same location twice is a no-op.
func (ir *IndexRepository) InsertOccurrence(ns model.Namespace, wid uint32, occ model.Occurrence) error {
	unlock := ir.locks.lock(occ.DocId)
	defer unlock()
	return ir.insertOccurrence(ns, wid, occ)
}

func (ir *IndexRepository) insertOccurrence(ns model.Namespace, wid uint32, occ model.Occurrence) error {
	return ir.DB.Update(func(txn *badger.Txn) error {
		if err := ensureExists(txn, documentKey(occ.DocId)); err != nil {
			return fmt.Errorf("occurrence of word %d in document %d: %w", wid, occ.DocId, err)
		}
		if err := ensureExists(txn, wordIdKey(ns, wid)); err != nil {
			return fmt.Errorf("occurrence of unknown %s word %d: %w", ns, wid, err)
		}
		key := postingKey(ns, wid, occ)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, []byte(occ.SurfaceForm)); err != nil {
			return err
		}
		return txn.Set(forwardKey(occ.DocId, ns, wid), nil)
	})
}

func ensureExists(txn *badger.Txn, key []byte) error {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.ErrReferentialIntegrity
	}
	return err
}

// OccurrencesOf lists every posting of wid in ns ordered by document and
// location.
func (ir *IndexRepository) OccurrencesOf(ns model.Namespace, wid uint32) ([]model.Occurrence, error) {
	return ir.scanPostings(postingPrefix(ns, wid), len(postingPrefix(ns, wid)))
}

// OccurrencesOfDocument is OccurrencesOf restricted to one document.
func (ir *IndexRepository) OccurrencesOfDocument(ns model.Namespace, wid, docId uint32) ([]model.Occurrence, error) {
	return ir.scanPostings(postingDocPrefix(ns, wid, docId), len(postingPrefix(ns, wid)))
}

func (ir *IndexRepository) scanPostings(prefix []byte, strip int) ([]model.Occurrence, error) {
	out := make([]model.Occurrence, 0)
	err := ir.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			occ, err := parsePostingKey(string(item.Key()[strip:]))
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			occ.SurfaceForm = string(val)
			out = append(out, occ)
		}
		return nil
	})
	return out, err
}

// TermIdsOf reads the forward index of docId in ns.
func (ir *IndexRepository) TermIdsOf(ns model.Namespace, docId uint32) ([]uint32, error) {
	prefix := forwardPrefix(docId, ns)
	ids := make([]uint32, 0)
	err := ir.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := parseId(string(it.Item().Key()[len(prefix):]))
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// DeletePostingsOf drops every occurrence and forward index entry of docId
// in both namespaces.
func (ir *IndexRepository) DeletePostingsOf(docId uint32) error {
	unlock := ir.locks.lock(docId)
	defer unlock()
	return ir.deletePostingsOf(docId)
}

func (ir *IndexRepository) deletePostingsOf(docId uint32) error {
	var keys [][]byte
	for _, ns := range model.Namespaces {
		wids, err := ir.TermIdsOf(ns, docId)
		if err != nil {
			return err
		}
		err = ir.DB.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			for _, wid := range wids {
				prefix := postingDocPrefix(ns, wid, docId)
				for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
					keys = append(keys, it.Item().KeyCopy(nil))
				}
				keys = append(keys, forwardKey(docId, ns, wid))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return ir.deleteKeys(keys)
}

func (ir *IndexRepository) deleteKeys(keys [][]byte) error {
	wb := ir.DB.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// DocumentFrequency counts the distinct documents containing stem in ns.
// An unknown stem has frequency 0.
func (ir *IndexRepository) DocumentFrequency(ns model.Namespace, stem string) (int, error) {
	wid, err := ir.WordId(ns, stem)
	if errors.Is(err, model.ErrNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	prefix := postingPrefix(ns, wid)
	count := 0
	err = ir.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		var last []byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			doc := it.Item().Key()[len(prefix) : len(prefix)+10]
			if !bytes.Equal(doc, last) {
				count++
				last = append(last[:0], doc...)
			}
		}
		return nil
	})
	return count, err
}

// TermFrequencies returns stem -> occurrence count for docId in ns.
func (ir *IndexRepository) TermFrequencies(ns model.Namespace, docId uint32) (map[string]int, error) {
	terms, err := ir.DocumentTerms(ns, docId)
	if err != nil {
		return nil, err
	}
	freq := make(map[string]int)
	for _, t := range terms {
		freq[t.Stem]++
	}
	return freq, nil
}

// DocumentTerms returns every occurrence of every term of docId in ns,
// sorted by location.
func (ir *IndexRepository) DocumentTerms(ns model.Namespace, docId uint32) ([]model.TermOccurrence, error) {
	wids, err := ir.TermIdsOf(ns, docId)
	if err != nil {
		return nil, err
	}
	out := make([]model.TermOccurrence, 0)
	for _, wid := range wids {
		stem, err := ir.StemOf(ns, wid)
		if err != nil {
			return nil, err
		}
		occs, err := ir.OccurrencesOfDocument(ns, wid, docId)
		if err != nil {
			return nil, err
		}
		for _, occ := range occs {
			out = append(out, model.TermOccurrence{Stem: stem, Occurrence: occ})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Less(out[j].Occurrence)
	})
	return out, nil
}

// IndexDocument writes doc and its extracted terms while holding the
// document's write lock. With replace set, the old postings are dropped
// first.
func (ir *IndexRepository) IndexDocument(doc *model.DocumentRef, content *model.DocumentContent, replace bool) error {
	unlock := ir.locks.lock(doc.Id)
	defer unlock()

	if replace {
		if err := ir.deletePostingsOf(doc.Id); err != nil {
			return err
		}
	}
	if err := ir.upsertDocument(doc); err != nil {
		return err
	}

	wb := ir.DB.NewWriteBatch()
	defer func() {
		wb.Cancel()
	}()
	writes := 0
	for _, ns := range model.Namespaces {
		for _, term := range content.Terms(ns) {
			wid, err := ir.InsertStem(ns, term.Stem)
			if err != nil {
				return err
			}
			occ := term.Occurrence
			occ.DocId = doc.Id
			if err := wb.Set(postingKey(ns, wid, occ), []byte(occ.SurfaceForm)); err != nil {
				return err
			}
			if err := wb.Set(forwardKey(doc.Id, ns, wid), nil); err != nil {
				return err
			}
			writes += 2
			if writes >= maxWritesInBatch {
				if err := wb.Flush(); err != nil {
					return err
				}
				wb = ir.DB.NewWriteBatch()
				writes = 0
			}
		}
	}
	if err := wb.Flush(); err != nil {
		ir.log.Write(logger.NewMessage(logger.REPOSITORY_LAYER, logger.ERROR, "error flushing postings of document %d: %v", doc.Id, err))
		return err
	}
	return nil
}
