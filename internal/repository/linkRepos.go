package repository

import (
	"fmt"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/dgraph-io/badger/v3"
)

// InsertLink records the edge parent -> childURL. The child does not need
// to be indexed yet. Repeated inserts are no-ops.
func (ir *IndexRepository) InsertLink(parent uint32, childURL string) error {
	unlock := ir.locks.lock(parent)
	defer unlock()
	return ir.DB.Update(func(txn *badger.Txn) error {
		if err := ensureExists(txn, documentKey(parent)); err != nil {
			return fmt.Errorf("link from document %d: %w", parent, err)
		}
		if err := txn.Set(linkKey(parent, childURL), nil); err != nil {
			return err
		}
		return txn.Set(reverseLinkKey(childURL, parent), nil)
	})
}

// ChildrenOf returns the urls docId links to, in key order.
func (ir *IndexRepository) ChildrenOf(docId uint32) ([]string, error) {
	prefix := linkPrefix(docId)
	children := make([]string, 0)
	err := ir.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			children = append(children, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return children, err
}

// ParentsOf returns the documents linking to docId.
func (ir *IndexRepository) ParentsOf(docId uint32) ([]*model.DocumentRef, error) {
	doc, err := ir.GetDocument(docId)
	if err != nil {
		return nil, err
	}
	prefix := reverseLinkPrefix(doc.URL)
	parents := make([]*model.DocumentRef, 0)
	err = ir.DB.View(func(txn *badger.Txn) error {
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
			parent, err := getDocument(txn, id)
			if err != nil {
				return err
			}
			parents = append(parents, parent)
		}
		return nil
	})
	return parents, err
}

// DeleteOutgoingLinks removes every edge starting at docId.
func (ir *IndexRepository) DeleteOutgoingLinks(docId uint32) error {
	unlock := ir.locks.lock(docId)
	defer unlock()

	children, err := ir.ChildrenOf(docId)
	if err != nil {
		return err
	}
	keys := make([][]byte, 0, 2*len(children))
	for _, child := range children {
		keys = append(keys, linkKey(docId, child), reverseLinkKey(child, docId))
	}
	return ir.deleteKeys(keys)
}
