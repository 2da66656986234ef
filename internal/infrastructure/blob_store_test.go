package infrastructure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

func TestMemoryBlobStore_PutGetDelete(t *testing.T) {
	store := NewMemoryBlobStore()

	ref := store.Put(domain.Payload{Data: []byte("abc"), ContentType: "video/mp4"})
	assert.True(t, strings.HasPrefix(ref, "blob:"))

	payload, ok := store.Get(ref)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), payload.Data)
	assert.Equal(t, "video/mp4", payload.ContentType)

	count, size := store.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(3), size)

	store.Delete(ref)
	_, ok = store.Get(ref)
	assert.False(t, ok)

	store.Delete(ref)
	store.Delete("blob:unknown")
}

func TestMemoryBlobStore_RefsAreUnique(t *testing.T) {
	store := NewMemoryBlobStore()

	a := store.Put(domain.Payload{Data: []byte("a")})
	b := store.Put(domain.Payload{Data: []byte("a")})

	assert.NotEqual(t, a, b)
}
