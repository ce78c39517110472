//go:build integration || !unit

package mongo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dishmap/internal/domain"
	mongostore "dishmap/internal/storage/mongo"
)

func TestStore_Mongo_AppendAndQuery(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "mongo", Tag: "7.0"},
		func(hc *docker.HostConfig) {
			hc.AutoRemove = true
			hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	uri := fmt.Sprintf("mongodb://127.0.0.1:%s", resource.GetPort("27017/tcp"))
	ctx := context.Background()

	var store *mongostore.Store
	require.NoError(t, pool.Retry(func() error {
		var e error
		store, e = mongostore.Connect(ctx, uri, "dishmap_test")
		return e
	}))
	t.Cleanup(func() { _ = store.Close(ctx) })

	created := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)
	thumb := "/uploads/a_thumb.jpg"
	for _, r := range []domain.UploadRecord{
		{ID: "a", OriginalRef: "/uploads/a.jpg", ThumbRef: &thumb, PlaceID: "p1", Dish: "wonton", CreatedAt: created},
		{ID: "b", OriginalRef: "/uploads/b.jpg", PlaceID: "p2", CreatedAt: created},
		{ID: "c", OriginalRef: "/uploads/c.jpg", PlaceID: "p1", CreatedAt: created},
	} {
		_, err := store.Append(ctx, r)
		require.NoError(t, err)
	}

	got, err := store.FindByPlace(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	require.NotNil(t, got[0].ThumbRef)
	assert.Nil(t, got[1].ThumbRef)
	assert.True(t, created.Equal(got[0].CreatedAt))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[1].ID)
}
