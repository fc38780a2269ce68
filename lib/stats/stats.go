package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/surfacepool"
)

type Snapshot struct {
	Uptime        float64             `json:"uptime"`
	Device        string              `json:"device,omitempty"`
	WsClients     int                 `json:"ws_clients"`
	Allocator     allocator.Stats     `json:"allocator"`
	ExportTokens  int                 `json:"export_tokens"`
	Pools         []surfacepool.Stats `json:"pools"`
	FramesWritten uint64              `json:"frames_written"`
}

// TokenCounter is satisfied by export.Registry.
type TokenCounter interface {
	Len() int
}

type Stats struct {
	alloc  *allocator.Allocator
	tokens TokenCounter

	mu     sync.Mutex
	pools  []*surfacepool.Pool
	device string

	wsClients     atomic.Int32
	framesWritten atomic.Uint64
	start         time.Time
}

func New(alloc *allocator.Allocator, tokens TokenCounter) *Stats {
	return &Stats{
		alloc:  alloc,
		tokens: tokens,
		start:  time.Now(),
	}
}

func (s *Stats) AddPool(p *surfacepool.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = append(s.pools, p)
}

// SetDevice records the render node the driver runs on.
func (s *Stats) SetDevice(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = path
}

func (s *Stats) ClientConnected()    { s.wsClients.Add(1) }
func (s *Stats) ClientDisconnected() { s.wsClients.Add(-1) }

// FrameWritten is called by the pattern writers once per frame.
func (s *Stats) FrameWritten() {
	s.framesWritten.Add(1)
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	pools := make([]surfacepool.Stats, 0, len(s.pools))
	for _, p := range s.pools {
		pools = append(pools, p.Stats())
	}
	device := s.device
	s.mu.Unlock()

	snap := Snapshot{
		Uptime:        float64(time.Since(s.start).Nanoseconds()) / 1e9,
		Device:        device,
		WsClients:     int(s.wsClients.Load()),
		Pools:         pools,
		FramesWritten: s.framesWritten.Load(),
	}
	if s.alloc != nil {
		snap.Allocator = s.alloc.Stats()
	}
	if s.tokens != nil {
		snap.ExportTokens = s.tokens.Len()
	}
	return snap
}
