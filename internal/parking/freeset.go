package parking

import "github.com/google/btree"

const freeSetDegree = 32

// FreeSet is the ordered set of unoccupied slot numbers. PopMin always
// yields the lowest free slot.
type FreeSet struct {
	tree *btree.BTreeG[int]
}

// NewFreeSet returns a set holding 1..capacity.
func NewFreeSet(capacity int) *FreeSet {
	fs := &FreeSet{
		tree: btree.NewOrderedG[int](freeSetDegree),
	}
	for i := 1; i <= capacity; i++ {
		fs.tree.ReplaceOrInsert(i)
	}
	return fs
}

func (fs *FreeSet) PopMin() (int, bool) {
	return fs.tree.DeleteMin()
}

// Add returns false if number was already free.
func (fs *FreeSet) Add(number int) bool {
	_, existed := fs.tree.ReplaceOrInsert(number)
	return !existed
}

func (fs *FreeSet) Len() int {
	return fs.tree.Len()
}
