package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
	"github.com/JakeFAU/experience-hoarder/internal/progress"
	"github.com/JakeFAU/experience-hoarder/internal/progress/sinks"
)

func dialStream(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sweep/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestStream_RelaysEvents(t *testing.T) {
	t.Parallel()

	broadcast := sinks.NewBroadcastSink()
	srv := NewServer(nil, nil, WithEventStream(broadcast))
	conn := dialStream(t, srv)

	require.Equal(t, 1, broadcast.Subscribers())
	require.NoError(t, broadcast.Consume(context.Background(), progress.Event{
		SweepID: "sweep-ws",
		TS:      time.Now().UTC(),
		Stage:   progress.StageCodeResolved,
		Code:    code.MustParse("AAJ"),
		Status:  crawler.StatusFound,
		Window:  []crawler.Entry{{Code: code.MustParse("AAJ"), Status: crawler.StatusFound}},
		Dur:     1500 * time.Millisecond,
	}))

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	require.Equal(t, "sweep-ws", msg.Event.SweepID)
	require.Equal(t, progress.StageCodeResolved, msg.Event.Stage)
	require.Equal(t, "AAJ", msg.Event.Code.String())
	require.Equal(t, crawler.StatusFound, msg.Event.Status)
	require.Equal(t, int64(1500), msg.Event.DurationMS)
	require.Len(t, msg.Event.Window, 1)
}

func TestStream_SendsSnapshotFirst(t *testing.T) {
	t.Parallel()

	snapshots := sinks.NewSnapshotSink()
	require.NoError(t, snapshots.Consume(context.Background(), progress.Event{
		SweepID: "sweep-snap",
		TS:      time.Now().UTC(),
		Stage:   progress.StageSweepStart,
		Code:    code.MustParse("ABA"),
	}))
	srv := NewServer(snapshots, nil, WithEventStream(sinks.NewBroadcastSink()))
	conn := dialStream(t, srv)

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Snapshot)
	require.Equal(t, "sweep-snap", msg.Snapshot.SweepID)
	require.Equal(t, "ABA", msg.Snapshot.Cursor.String())
}

func TestStream_ClosesWhenSinkCloses(t *testing.T) {
	t.Parallel()

	broadcast := sinks.NewBroadcastSink()
	conn := dialStream(t, NewServer(nil, nil, WithEventStream(broadcast)))
	require.NoError(t, broadcast.Close(context.Background()))

	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStream_DisabledWithoutSource(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/sweep/stream", nil)
	rec := httptest.NewRecorder()
	NewServer(nil, nil).Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
