package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_PutGetDelete(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	data := []byte("orbital_period\n1\n")
	obj, err := store.Put(ctx, "uploads/a/planets.csv", data, "text/csv")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), obj.Size)
	require.NotEmpty(t, obj.ETag)

	data[0] = 'X'
	reader, err := store.Get(ctx, "uploads/a/planets.csv")
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "orbital_period\n1\n", string(got))
	require.Equal(t, []string{"uploads/a/planets.csv"}, store.Keys())

	require.NoError(t, store.Delete(ctx, "uploads/a/planets.csv"))
	_, err = store.Get(ctx, "uploads/a/planets.csv")
	require.Error(t, err)
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "minio:9000", sanitizeEndpoint("http://minio:9000/"))
	require.Equal(t, "account.r2.cloudflarestorage.com", sanitizeEndpoint(" https://account.r2.cloudflarestorage.com/bucket "))
	require.Equal(t, "localhost:9000", sanitizeEndpoint("localhost:9000"))
}
