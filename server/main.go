package main

import (
	"github.com/ashgrowen/auxroom/server/src/communication"
	"github.com/ashgrowen/auxroom/server/src/config"
	"github.com/ashgrowen/auxroom/server/src/logger"
	"github.com/ashgrowen/auxroom/server/src/youtube"
)

var conf config.ServerConfig

func init() {
	conf = config.GetConfig()
	logger.NewGlobalLogger(conf.General.Debug)
}

func main() {
	defer logger.Sync()

	fetcher := youtube.NewOembedFetcher()
	coordinator := communication.NewCoordinator(communication.NewSystemClock(), fetcher)
	webServer := communication.NewWebServer(conf.General, coordinator, fetcher)
	if err := webServer.Listen(); err != nil {
		logger.Fatalw("Shutting down server", "error", err)
	}
}
