package repository

import (
	"errors"
	"fmt"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/dgraph-io/badger/v3"
)

// InsertStem returns the id of stem in ns, allocating the next id of that
// namespace when the stem is new.
func (ir *IndexRepository) InsertStem(ns model.Namespace, stem string) (uint32, error) {
	if !ns.Valid() {
		return 0, fmt.Errorf("unknown namespace %q", ns)
	}
	ir.stemMu.Lock()
	defer ir.stemMu.Unlock()

	var id uint32
	err := ir.DB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(stemKey(ns, stem))
		if err == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id, err = parseId(string(val))
			return err
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		id, err = ir.alloc.NextWordId(ns)
		if err != nil {
			return err
		}
		if err := txn.Set(stemKey(ns, stem), fmt.Append(nil, id)); err != nil {
			return err
		}
		return txn.Set(wordIdKey(ns, id), []byte(stem))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (ir *IndexRepository) WordId(ns model.Namespace, stem string) (uint32, error) {
	var id uint32
	err := ir.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stemKey(ns, stem))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s stem %q: %w", ns, stem, model.ErrNotFound)
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err = parseId(string(val))
		return err
	})
	return id, err
}

func (ir *IndexRepository) StemOf(ns model.Namespace, wid uint32) (string, error) {
	var stem string
	err := ir.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(wordIdKey(ns, wid))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s word %d: %w", ns, wid, model.ErrNotFound)
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		stem = string(val)
		return err
	})
	return stem, err
}

// VocabularySize counts the stems registered in ns.
func (ir *IndexRepository) VocabularySize(ns model.Namespace) (int, error) {
	return ir.countKeys(wordIdPrefix(ns))
}
