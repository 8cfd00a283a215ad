package communication

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"

	"github.com/ashgrowen/auxroom/server/src/config"
	"github.com/ashgrowen/auxroom/server/src/logger"
	"github.com/ashgrowen/auxroom/server/src/youtube"
)

const shutdownTimeout time.Duration = 10 * time.Second

// WebServer exposes the engine: the REST endpoints for room bootstrap and URL
// resolution, the real-time channel on /ws, metrics and optional static
// assets.
type WebServer struct {
	coordinator *Coordinator
	fetcher     youtube.Fetcher
	server      *http.Server
	host        string
	port        uint16
	cert        string
	key         string
	stopChannel chan struct{}
	stopSignal  chan os.Signal
	errChannel  chan error
}

func NewWebServer(conf config.General, coordinator *Coordinator, fetcher youtube.Fetcher) *WebServer {
	webServer := &WebServer{
		coordinator: coordinator,
		fetcher:     fetcher,
		host:        conf.Host,
		port:        conf.Port,
		cert:        conf.Cert,
		key:         conf.Key,
		stopChannel: make(chan struct{}, 1),
		stopSignal:  make(chan os.Signal, 1),
		errChannel:  make(chan error, 1),
	}
	signal.Notify(webServer.stopSignal, os.Interrupt, syscall.SIGTERM)

	webServer.server = &http.Server{
		Handler:     webServer.router(conf.WebRoot),
		ReadTimeout: 10 * time.Second,
	}

	return webServer
}

func (webServer *WebServer) router(webRoot string) http.Handler {
	router := chi.NewRouter()
	router.Post("/api/rooms", webServer.handleCreateRoom)
	router.Get("/api/rooms/{id}", webServer.handleGetRoom)
	router.Get("/api/youtube/resolve", webServer.handleResolve)
	router.Get("/ws", webServer.handleWebsocket)
	router.Handle("/metrics", promhttp.Handler())
	if webRoot != "" {
		router.Handle("/*", http.FileServer(http.Dir(webRoot)))
	}

	return router
}

func (webServer *WebServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	// a missing or unparsable body is treated as an unnamed room
	var body struct {
		Name string `json:"name"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	id, name := webServer.coordinator.CreateRoom(body.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": name})
}

func (webServer *WebServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	summary, ok := webServer.coordinator.RoomInfo(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Room not found"})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (webServer *WebServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url query param required"})
		return
	}

	videoID, ok := youtube.ExtractVideoID(rawURL)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid YouTube URL"})
		return
	}

	metadata := webServer.fetcher.Fetch(videoID)
	writeJSON(w, http.StatusOK, map[string]string{
		"youtubeId": videoID,
		"title":     metadata.Title,
		"thumbnail": metadata.Thumbnail,
	})
}

func (webServer *WebServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		logger.Warnw("Failed to establish connection to client socket", "error", err)
		return
	}

	logger.Infow("New connection established, creating session")
	session := NewSession(webServer.coordinator, NewWsReaderWriter(conn))
	go session.Start()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (webServer *WebServer) Stop() {
	close(webServer.stopChannel)
}

// Listen serves until an error, an interrupt or Stop, then drains.
func (webServer *WebServer) Listen() error {
	listener, err := webServer.getListener()
	if err != nil {
		return err
	}

	return webServer.serve(listener)
}

func (webServer *WebServer) getListener() (net.Listener, error) {
	hostPort := fmt.Sprintf("%s:%d", webServer.host, webServer.port)

	var listener net.Listener
	var err error
	if webServer.cert != "" && webServer.key != "" {
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(webServer.cert, webServer.key)
		if err != nil {
			logger.Errorw("Failed to load certificate", "error", err)
			return nil, err
		}

		tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}
		listener, err = tls.Listen("tcp", hostPort, tlsConfig)
	} else {
		listener, err = net.Listen("tcp", hostPort)
	}

	if err != nil {
		logger.Errorw("Failed to create listener", "error", err)
		return nil, err
	}

	logger.Infow("Listening on port", "port", hostPort)
	return listener, nil
}

func (webServer *WebServer) serve(listener net.Listener) error {
	go func() {
		webServer.errChannel <- webServer.server.Serve(listener)
	}()

	select {
	case err := <-webServer.errChannel:
		logger.Warnw("Failed to serve", "error", err)
	case sig := <-webServer.stopSignal:
		logger.Infow("Terminating server", "signal", sig)
	case <-webServer.stopChannel:
		logger.Infow("Terminating server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	webServer.coordinator.Shutdown(ctx)
	return webServer.server.Shutdown(ctx)
}
