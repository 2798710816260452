package repository

import "sync"

// docLocks hands out one mutex per document id so that only one writer
// touches a document's postings at a time.
type docLocks struct {
	mu 		*sync.Mutex
	locks 	map[uint32]*docLock
}

type docLock struct {
	mu 		sync.Mutex
	refs 	int
}

func newDocLocks() *docLocks {
	return &docLocks{
		mu: new(sync.Mutex),
		locks: make(map[uint32]*docLock),
	}
}

func (dl *docLocks) lock(id uint32) func() {
	dl.mu.Lock()
	l, ok := dl.locks[id]
	if !ok {
		l = &docLock{}
		dl.locks[id] = l
	}
	l.refs++
	dl.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		dl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(dl.locks, id)
		}
		dl.mu.Unlock()
	}
}
