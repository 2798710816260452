package repository

import (
	"fmt"
	"sync/atomic"

	"github.com/box1bs/spyglass/internal/model"
)

// Allocator mints document ids and per-namespace word ids. It must be
// seeded from the persisted counts before the first allocation.
type Allocator struct {
	seeded 		atomic.Bool
	nextDoc 	atomic.Uint32
	nextTitle 	atomic.Uint32
	nextBody 	atomic.Uint32
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Seed sets the counters. Later commits to the store do not move them.
func (a *Allocator) Seed(docs, titleStems, bodyStems int) {
	a.nextDoc.Store(uint32(docs))
	a.nextTitle.Store(uint32(titleStems))
	a.nextBody.Store(uint32(bodyStems))
	a.seeded.Store(true)
}

func (a *Allocator) NextDocId() (uint32, error) {
	if !a.seeded.Load() {
		return 0, model.ErrNotInitialized
	}
	return a.nextDoc.Add(1) - 1, nil
}

func (a *Allocator) NextWordId(ns model.Namespace) (uint32, error) {
	if !a.seeded.Load() {
		return 0, model.ErrNotInitialized
	}
	switch ns {
	case model.Title:
		return a.nextTitle.Add(1) - 1, nil
	case model.Body:
		return a.nextBody.Add(1) - 1, nil
	}
	return 0, fmt.Errorf("unknown namespace %q", ns)
}
