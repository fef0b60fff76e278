package group

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/poolmap"
)

func testMap() *poolmap.Map {
	return &poolmap.Map{
		Version: 1,
		Nodes: []poolmap.Node{
			{ID: uuid.New(), Address: "10.0.0.1:9400", Shards: 2},
			{ID: uuid.New(), Address: "10.0.0.2:9400", Shards: 2},
		},
	}
}

func TestCreateAndDestroy(t *testing.T) {
	svc := NewLocalService()
	poolID := uuid.New()
	m := testMap()

	g, err := svc.Create(poolID, m)
	require.NoError(t, err)
	assert.Equal(t, m.NodeIDs(), g.Members)
	assert.Contains(t, g.ID, poolID.String())

	// Second create for the same pool is rejected.
	_, err = svc.Create(poolID, m)
	assert.ErrorIs(t, err, errdefs.ErrExists)

	require.NoError(t, svc.Destroy(poolID, g))

	// Destroying an unknown group fails.
	assert.ErrorIs(t, svc.Destroy(poolID, g), errdefs.ErrNotFound)
}

func TestCreateWithoutMapPanics(t *testing.T) {
	svc := NewLocalService()
	assert.Panics(t, func() { _, _ = svc.Create(uuid.New(), nil) })
}
