package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheetstack/adminhub/cache"
	"github.com/sheetstack/adminhub/config"
	"github.com/sheetstack/adminhub/db"
	"github.com/sheetstack/adminhub/server"
	"github.com/sheetstack/adminhub/server/sse"
	"github.com/sheetstack/adminhub/watcher"
)

func init() {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal("Unable to load config: " + err.Error())
	}
	logger := log.StandardLogger()
	watcher.WatchConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(viper.GetString("mongodbConn")))
	if err != nil {
		log.Fatal("Unable to connect to mongodb: " + err.Error())
	}
	log.Info("Mongodb connection established")

	dbSvc := db.NewService(client)
	if err := dbSvc.EnsureIndexes(); err != nil {
		log.Fatal("Unable to ensure db indexes: " + err.Error())
	}

	serverLogger := logger.WithField("origin", "server")
	sseServer := sse.NewServer(serverLogger)
	cacheSvc := cache.NewService(dbSvc, sseServer)
	if err := cacheSvc.SyncStats(); err != nil {
		log.Fatal("Unable to sync stats cache: " + err.Error())
	}
	// Deliver the current snapshot to each dashboard as it connects
	go sseServer.Listen(cacheSvc.BroadcastViaSSE)

	httpServer := server.NewService(dbSvc, cacheSvc, sseServer, serverLogger)
	httpServer.Listen(viper.GetString("port"))
}
