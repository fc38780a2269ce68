//go:build linux

package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/config"
	"github.com/fosdem/vaframes/lib/driver/softva"
	"github.com/fosdem/vaframes/lib/fourcc"
	"github.com/fosdem/vaframes/lib/frames"
	"github.com/fosdem/vaframes/lib/imgsource"
	"github.com/fosdem/vaframes/lib/stats"
	"github.com/fosdem/vaframes/lib/surfacepool"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T) (*Api, *surfacepool.Pool) {
	drv := softva.New()
	t.Cleanup(drv.Close)
	a, err := allocator.New(drv, &allocator.Params{Name: t.Name(), Display: drv.Display()})
	require.NoError(t, err)

	p, err := surfacepool.New("preview", a, &allocator.Request{
		Info:              allocator.FrameInfo{FourCC: fourcc.NV12, Width: 64, Height: 32},
		Type:              allocator.MemTypeFromVPPOut | allocator.MemTypeVideoMemoryProcessorTarget,
		NumFrameSuggested: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	st := stats.New(a, nil)
	st.AddPool(p)
	return New(&config.ApiCfg{Bind: "127.0.0.1:0"}, map[string]*surfacepool.Pool{"preview": p}, st), p
}

func get(t *testing.T, a *Api, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStats(t *testing.T) {
	a, _ := newTestApi(t)
	rec := get(t, a, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap stats.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, int64(2), snap.Allocator.Surfaces)
	require.Len(t, snap.Pools, 1)
	assert.Equal(t, "NV12", snap.Pools[0].Format)
}

func TestPools(t *testing.T) {
	a, _ := newTestApi(t)
	rec := get(t, a, http.MethodGet, "/api/pools")
	require.Equal(t, http.StatusOK, rec.Code)

	var pools []surfacepool.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pools))
	require.Len(t, pools, 1)
	assert.Equal(t, "preview", pools[0].Name)
	assert.Equal(t, uint32(64), pools[0].Width)
}

func TestPoolMedia(t *testing.T) {
	a, p := newTestApi(t)

	assert.Equal(t, http.StatusNotFound, get(t, a, http.MethodGet, "/api/media/pool/nope").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, a, http.MethodGet, "/api/media/pool/preview/gif").Code)
	assert.Equal(t, http.StatusFailedDependency, get(t, a, http.MethodGet, "/api/media/pool/preview").Code)

	w := p.GetFrameForWriting()
	require.NotNil(t, w)
	require.NoError(t, frames.FillTestPattern(&w.Data, fourcc.NV12, 64, 32, 0))
	p.FinishedWriting(w)

	rec := get(t, a, http.MethodGet, "/api/media/pool/preview/png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	rec = get(t, a, http.MethodGet, "/api/media/pool/preview")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.False(t, w.Mem.Locked())

	rec = get(t, a, http.MethodGet, "/api/media/pool/preview/png?width=16")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	assert.Equal(t, http.StatusBadRequest, get(t, a, http.MethodGet, "/api/media/pool/preview?width=0").Code)
}

func TestMetricsAndSwagger(t *testing.T) {
	a, _ := newTestApi(t)

	rec := get(t, a, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vaframes_allocator_surfaces")

	rec = get(t, a, http.MethodGet, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/media/pool/{name}")
}

func TestKill(t *testing.T) {
	a, _ := newTestApi(t)
	killed := false
	a.ShutdownRequested = func() { killed = true }

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, a, http.MethodGet, "/api/kill").Code)
	rec := get(t, a, http.MethodPost, "/api/kill")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, killed)
}

func TestWebsocket(t *testing.T) {
	a, _ := newTestApi(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	_, r, err := ws.NextReader()
	require.NoError(t, err)
	packet, err := io.ReadAll(r)
	require.NoError(t, err)

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(packet, &snap))
	require.Len(t, snap.Pools, 1)
	assert.Equal(t, "preview", snap.Pools[0].Name)
}

func TestBroadcast(t *testing.T) {
	a, _ := newTestApi(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	// the first packet is the stats snapshot, sent once registered
	_, _, err = ws.ReadMessage()
	require.NoError(t, err)

	a.Broadcast(map[string]string{"event": "reconfigure", "pool": "preview"})
	_, packet, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"reconfigure","pool":"preview"}`, string(packet))
}

func TestPoolImage(t *testing.T) {
	a, p := newTestApi(t)

	path := filepath.Join(t.TempDir(), "still.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	src, err := imgsource.New(path, p)
	require.NoError(t, err)

	put := func(name string, body []byte) int {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/media/pool/"+name, bytes.NewReader(body)))
		return rec.Code
	}
	assert.Equal(t, http.StatusNotFound, put("preview", buf.Bytes()))

	a.Images = map[string]*imgsource.ImgSource{"preview": src}
	assert.Equal(t, http.StatusNotFound, put("nope", buf.Bytes()))
	assert.Equal(t, http.StatusBadRequest, put("preview", []byte("garbage")))

	buf.Reset()
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))))
	assert.Equal(t, http.StatusOK, put("preview", buf.Bytes()))
	assert.Equal(t, 20, src.GetImage().Bounds().Dx())
	assert.Equal(t, uint64(1), p.Stats().LastFrameID)
}
