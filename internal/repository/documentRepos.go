package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/dgraph-io/badger/v3"
)

// UpsertDocument inserts doc, or updates the last modified time, size and
// title of the document that already has doc.Id.
func (ir *IndexRepository) UpsertDocument(doc *model.DocumentRef) error {
	unlock := ir.locks.lock(doc.Id)
	defer unlock()
	return ir.upsertDocument(doc)
}

func (ir *IndexRepository) upsertDocument(doc *model.DocumentRef) error {
	ir.urlMu.Lock()
	defer ir.urlMu.Unlock()
	return ir.DB.Update(func(txn *badger.Txn) error {
		stored := *doc
		item, err := txn.Get(documentKey(doc.Id))
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(val, &stored); err != nil {
				return err
			}
			stored.LastModified = doc.LastModified
			stored.Size = doc.Size
			stored.Title = doc.Title

		case errors.Is(err, badger.ErrKeyNotFound):
			if doc.URL == "" {
				return fmt.Errorf("document %d has no url", doc.Id)
			}
			owner, err := txn.Get(urlKey(doc.URL))
			if err == nil {
				val, err := owner.ValueCopy(nil)
				if err != nil {
					return err
				}
				return fmt.Errorf("url %s already belongs to document %s", doc.URL, val)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(urlKey(doc.URL), fmt.Append(nil, doc.Id)); err != nil {
				return err
			}

		default:
			return err
		}

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(documentKey(doc.Id), data)
	})
}

func (ir *IndexRepository) GetDocument(id uint32) (*model.DocumentRef, error) {
	var doc *model.DocumentRef
	err := ir.DB.View(func(txn *badger.Txn) error {
		var err error
		doc, err = getDocument(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func getDocument(txn *badger.Txn, id uint32) (*model.DocumentRef, error) {
	item, err := txn.Get(documentKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("document %d: %w", id, model.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	doc := &model.DocumentRef{}
	return doc, json.Unmarshal(val, doc)
}

func (ir *IndexRepository) GetDocumentByURL(url string) (*model.DocumentRef, error) {
	var doc *model.DocumentRef
	err := ir.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(urlKey(url))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("document with url %s: %w", url, model.ErrNotFound)
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := parseId(string(val))
		if err != nil {
			return err
		}
		doc, err = getDocument(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetAllDocuments lists documents in id order.
func (ir *IndexRepository) GetAllDocuments() ([]*model.DocumentRef, error) {
	var documents []*model.DocumentRef
	prefix := []byte(DocumentKeyPrefix)

	err := ir.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			doc := &model.DocumentRef{}
			if err := json.Unmarshal(val, doc); err != nil {
				return err
			}
			documents = append(documents, doc)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (ir *IndexRepository) GetDocumentsCount() (int, error) {
	return ir.countKeys([]byte(DocumentKeyPrefix))
}

func (ir *IndexRepository) countKeys(prefix []byte) (int, error) {
	var count int
	err := ir.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
