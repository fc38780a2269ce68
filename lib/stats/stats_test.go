//go:build linux

package stats

import (
	"testing"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/driver/softva"
	"github.com/fosdem/vaframes/lib/fourcc"
	"github.com/fosdem/vaframes/lib/surfacepool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTokens int

func (f fixedTokens) Len() int { return int(f) }

func TestSnapshot(t *testing.T) {
	drv := softva.New()
	defer drv.Close()
	a, err := allocator.New(drv, &allocator.Params{Name: t.Name(), Display: drv.Display()})
	require.NoError(t, err)

	p, err := surfacepool.New("preview", a, &allocator.Request{
		Info:              allocator.FrameInfo{FourCC: fourcc.RGB4, Width: 32, Height: 32},
		Type:              allocator.MemTypeFromVPPOut | allocator.MemTypeVideoMemoryProcessorTarget,
		NumFrameSuggested: 3,
	})
	require.NoError(t, err)
	defer p.Close()

	s := New(a, fixedTokens(2))
	s.AddPool(p)
	s.ClientConnected()
	s.ClientConnected()
	s.ClientDisconnected()
	s.FrameWritten()
	s.SetDevice("/dev/dri/renderD128")

	snap := s.Snapshot()
	assert.Equal(t, "/dev/dri/renderD128", snap.Device)
	assert.Equal(t, 1, snap.WsClients)
	assert.Equal(t, 2, snap.ExportTokens)
	assert.Equal(t, uint64(1), snap.FramesWritten)
	assert.Equal(t, int64(3), snap.Allocator.Surfaces)
	require.Len(t, snap.Pools, 1)
	assert.Equal(t, "preview", snap.Pools[0].Name)
	assert.Equal(t, 3, snap.Pools[0].Available)
	assert.GreaterOrEqual(t, snap.Uptime, 0.0)
}

func TestSnapshotWithoutSources(t *testing.T) {
	snap := New(nil, nil).Snapshot()
	assert.Empty(t, snap.Pools)
	assert.Empty(t, snap.Device)
	assert.Equal(t, allocator.Stats{}, snap.Allocator)
}
