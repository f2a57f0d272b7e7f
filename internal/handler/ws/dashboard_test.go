package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xlogger "KiranaCash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardHubBroadcast(t *testing.T) {
	hub := NewDashboardHub(xlogger.Nop(), time.Second, time.Second)
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	hub.Broadcast(map[string]int{"seq": 1})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1}`, string(msg))

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast(map[string]int{"seq": 2})
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":2}`, string(msg))
}
