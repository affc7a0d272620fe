package pipeline

import (
	"fmt"
	"sync"

	"cvforge/internal/utils"
)

// KeyRegistry hands out run keys derived from uploaded filenames. Two
// concurrent runs for files that sanitize to the same base name get
// distinct keys, so their intermediate files never collide. A key stays
// reserved until Release is called.
type KeyRegistry struct {
	mu    sync.Mutex
	inUse map[string]bool
}

// NewKeyRegistry creates an empty registry.
func NewKeyRegistry() *KeyRegistry {
	return &KeyRegistry{inUse: make(map[string]bool)}
}

// Acquire reserves a key for the given filename. When the sanitized base
// name is already in use, a numeric suffix is appended until a free key
// is found.
func (kr *KeyRegistry) Acquire(filename string) string {
	base := utils.SanitizeBaseName(filename)

	kr.mu.Lock()
	defer kr.mu.Unlock()

	key := base
	for n := 1; kr.inUse[key]; n++ {
		key = fmt.Sprintf("%s_%d", base, n)
	}
	kr.inUse[key] = true
	return key
}

// Release frees a previously acquired key. Releasing an unknown key is a
// no-op.
func (kr *KeyRegistry) Release(key string) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	delete(kr.inUse, key)
}
