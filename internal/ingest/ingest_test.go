package ingest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
	"energy-tariffs/internal/storage/memory"
	"energy-tariffs/internal/storage/storagetest"
	"energy-tariffs/internal/timeseries"
)

var start = time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *memory.ValueStore) {
	t.Helper()
	store := memory.NewValueStore()
	ix, err := catalog.NewIndex(memory.NewCatalogStore(), 0, nil)
	require.NoError(t, err)
	repo := timeseries.NewRepository(store, ix, timeseries.Options{}, nil)

	srv := httptest.NewServer(NewServer(repo, nil, nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_SendAll(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	client, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer client.Close()

	n, err := client.SendAll(ctx, storagetest.Hourly(start, 48), 10)
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, 48, store.Len())

	got, err := store.Query(ctx, storagetest.HourlySeries, domain.Between(start, start.Add(2*time.Hour)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.25, got[1].Value)
}

func TestServer_RejectsBadFrames(t *testing.T) {
	srv, store := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"malformed", `{"values":`, "malformed frame"},
		{"naive date", `{"values":[{"name":"SDAC BE","value":1,"timeframe":"HOURLY","date":"2023-05-01 00:00","source":"ENTSO-E"}]}`, "zone"},
		{"bad timeframe", `{"values":[{"name":"SDAC BE","value":1,"timeframe":"WEEKLY","date":"2023-05-01T00:00:00Z","source":"ENTSO-E"}]}`, "timeframe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)))
			var reply Reply
			require.NoError(t, conn.ReadJSON(&reply))
			assert.Zero(t, reply.Accepted)
			assert.Contains(t, reply.Error, tt.want)
		})
	}
	assert.Equal(t, 0, store.Len())

	// The connection survives rejected frames.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"values":[{"name":"SDAC BE","value":1,"timeframe":"hourly","date":"2023-05-01T02:00:00+02:00","source":"ENTSO-E"}]}`)))
	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 1, reply.Accepted)
	assert.Empty(t, reply.Error)

	v, err := store.Get(context.Background(), storagetest.HourlySeries, start)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Value)
}

func TestClient_Rejected(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	client, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer client.Close()

	bad := storagetest.Hourly(start, 1)
	bad[0].Source = ""
	_, err = client.Send(ctx, bad)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestValue_RoundTrip(t *testing.T) {
	in := storagetest.Hourly(start, 1)[0]
	out, err := FromDomain(in).ToDomain()
	require.NoError(t, err)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, in.Key(), out.Key())

	_, err = Value{Name: "x", Source: "y", Timeframe: "DAILY", Date: "2023-05-01"}.ToDomain()
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrNaiveTimestamp)
}
