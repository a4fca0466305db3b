package attribution

// smallSetSize is the size up to which a KeySet is searched linearly.
// Larger sets carry a hash index built at construction time.
const smallSetSize = 8

// KeySet is an immutable set of partition keys. A nil *KeySet is a
// valid empty set. Sets are shared between stacks: a stack that does
// not add a new key refers to the very same set as its prefix.
type KeySet[K comparable] struct {
	keys  []K
	index map[K]struct{}
}

func newKeySet[K comparable](k K) *KeySet[K] {
	return &KeySet[K]{keys: []K{k}}
}

// with returns a new set holding the keys of s and k.
// The caller guarantees that k is not a member of s.
func (s *KeySet[K]) with(k K) *KeySet[K] {
	if s == nil {
		return newKeySet(k)
	}
	keys := make([]K, len(s.keys)+1)
	copy(keys, s.keys)
	keys[len(s.keys)] = k
	x := &KeySet[K]{keys: keys}
	if len(keys) > smallSetSize {
		x.index = make(map[K]struct{}, len(keys))
		for _, key := range keys {
			x.index[key] = struct{}{}
		}
	}
	return x
}

func (s *KeySet[K]) Has(k K) bool {
	if s == nil {
		return false
	}
	if s.index != nil {
		_, ok := s.index[k]
		return ok
	}
	for _, x := range s.keys {
		if x == k {
			return true
		}
	}
	return false
}

func (s *KeySet[K]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns a copy of the set members in insertion order:
// keys closer to the root come first.
func (s *KeySet[K]) Keys() []K {
	if s == nil {
		return nil
	}
	keys := make([]K, len(s.keys))
	copy(keys, s.keys)
	return keys
}

func (s *KeySet[K]) Each(fn func(K)) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		fn(k)
	}
}

// Equal reports whether both sets hold the same keys.
func (s *KeySet[K]) Equal(o *KeySet[K]) bool {
	if s == o {
		return true
	}
	if s.Len() != o.Len() {
		return false
	}
	for _, k := range s.keys {
		if !o.Has(k) {
			return false
		}
	}
	return true
}
