package communication

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/ashgrowen/auxroom/server/src/config"
	"github.com/ashgrowen/auxroom/server/src/youtube"
)

func newTestWebServer() *WebServer {
	coordinator := newTestCoordinator(&fakeClock{})
	return NewWebServer(config.General{}, coordinator, stubFetcher{})
}

func doJSON(t *testing.T, server *httptest.Server, method string, path string, body string) (int, map[string]any) {
	t.Helper()

	request, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	response, err := server.Client().Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&decoded))

	return response.StatusCode, decoded
}

func TestCreateRoomEndpoint(t *testing.T) {
	webServer := newTestWebServer()
	server := httptest.NewServer(webServer.router(""))
	defer server.Close()

	status, body := doJSON(t, server, http.MethodPost, "/api/rooms", `{"name":"Friday Night"}`)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, body["id"].(string), roomIDLength)
	require.Equal(t, "Friday Night", body["name"])

	// an empty body creates an unnamed room
	status, body = doJSON(t, server, http.MethodPost, "/api/rooms", "")
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "Room "+body["id"].(string), body["name"])
}

func TestGetRoomEndpoint(t *testing.T) {
	webServer := newTestWebServer()
	server := httptest.NewServer(webServer.router(""))
	defer server.Close()

	roomID, roomName := webServer.coordinator.CreateRoom("listening")

	status, body := doJSON(t, server, http.MethodGet, "/api/rooms/"+roomID, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, roomID, body["id"])
	require.Equal(t, roomName, body["name"])
	require.Equal(t, float64(0), body["userCount"])

	status, body = doJSON(t, server, http.MethodGet, "/api/rooms/missing1", "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Room not found", body["error"])
}

func TestResolveEndpoint(t *testing.T) {
	webServer := newTestWebServer()
	server := httptest.NewServer(webServer.router(""))
	defer server.Close()

	status, body := doJSON(t, server, http.MethodGet, "/api/youtube/resolve", "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "url query param required", body["error"])

	status, body = doJSON(t, server, http.MethodGet, "/api/youtube/resolve?url=https://vimeo.com/1234", "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid YouTube URL", body["error"])

	status, body = doJSON(t, server, http.MethodGet, "/api/youtube/resolve?url="+testTrackURL, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, testYoutubeID, body["youtubeId"])
	require.Equal(t, "Stub Title", body["title"])
	require.Equal(t, youtube.ThumbnailURL(testYoutubeID), body["thumbnail"])
}

func TestStaticAssets(t *testing.T) {
	webRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webRoot, "index.html"), []byte("<html>auxroom</html>"), 0o600))

	webServer := newTestWebServer()
	server := httptest.NewServer(webServer.router(webRoot))
	defer server.Close()

	response, err := server.Client().Get(server.URL + "/")
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)
}

func TestWebsocketJoin(t *testing.T) {
	webServer := newTestWebServer()
	server := httptest.NewServer(webServer.router(""))
	defer server.Close()

	roomID, _ := webServer.coordinator.CreateRoom("")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	frame := fmt.Sprintf(`{"type":"join","roomId":"%s","userName":"Alice"}`, roomID)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))

	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)

	var state map[string]any
	require.NoError(t, json.Unmarshal(payload, &state))
	require.Equal(t, "room:state", state["type"])
	require.NotEmpty(t, state["userId"])

	summary, ok := webServer.coordinator.RoomInfo(roomID)
	require.True(t, ok)
	require.Equal(t, 1, summary.UserCount)

	// a clean websocket close tears the user down and empties the room
	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool {
		_, ok := webServer.coordinator.RoomInfo(roomID)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}
