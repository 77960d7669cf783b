package cache_test

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheetstack/adminhub/cache"
	"github.com/sheetstack/adminhub/db"
	"github.com/sheetstack/adminhub/server/sse"
	"github.com/sheetstack/adminhub/types"
)

var cacheSvc *cache.Service
var dbClient *mongo.Client

func TestMain(m *testing.M) {
	viper.SetConfigName("config_test")
	viper.AddConfigPath("../")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal("Error reading config file: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(viper.GetString("mongodbConn")))
	if err != nil {
		log.Fatal(err)
	}
	dbClient = client
	dbSvc := db.NewService(client)

	sseServer := sse.NewServer(log.WithField("origin", "sse"))
	go sseServer.Listen(func() error { return nil })
	cacheSvc = cache.NewService(dbSvc, sseServer)

	m.Run()
}

func requests() *mongo.Collection {
	return dbClient.Database("adminhub").Collection("admin_requests")
}

func insertRequest(t *testing.T, status string, createdAt time.Time, decisionAfter time.Duration) {
	t.Helper()
	request := types.AdminRequest{
		ID:        primitive.NewObjectID(),
		User:      primitive.NewObjectID(),
		Reason:    "need access",
		Status:    status,
		CreatedAt: createdAt,
	}
	if status != types.StatusPending {
		processedAt := createdAt.Add(decisionAfter)
		request.ProcessedAt = &processedAt
	}
	if _, err := requests().InsertOne(context.TODO(), request); err != nil {
		t.Fatal(err)
	}
}

func TestSyncStats(t *testing.T) {
	if _, err := requests().DeleteMany(context.TODO(), bson.M{}); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	insertRequest(t, types.StatusPending, now, 0)
	insertRequest(t, types.StatusPending, now.Add(-time.Hour), 0)
	insertRequest(t, types.StatusApproved, now.Add(-2*time.Hour), 30*time.Minute)
	insertRequest(t, types.StatusRejected, now.Add(-3*time.Hour), 10*time.Minute)

	if err := cacheSvc.SyncStats(); err != nil {
		t.Fatal(err)
	}
	stats, err := cacheSvc.GetRealTimeStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pending != 2 || stats.Approved != 1 || stats.Rejected != 1 {
		t.Errorf("synced counts are pending=%d approved=%d rejected=%d, want 2/1/1",
			stats.Pending, stats.Approved, stats.Rejected)
	}
	// 30 + 10 minutes across two decisions
	if stats.AverageDecisionTimeInMinutes != 20 {
		t.Errorf("average decision time is %v minutes, want 20", stats.AverageDecisionTimeInMinutes)
	}
}

func TestUpdateRealTimeStatsTransitions(t *testing.T) {
	if _, err := requests().DeleteMany(context.TODO(), bson.M{}); err != nil {
		t.Fatal(err)
	}
	if err := cacheSvc.SyncStats(); err != nil {
		t.Fatal(err)
	}

	createdAt := time.Now().Add(-10 * time.Minute)
	request := types.AdminRequest{
		ID:        primitive.NewObjectID(),
		User:      primitive.NewObjectID(),
		Status:    types.StatusPending,
		CreatedAt: createdAt,
	}
	if err := cacheSvc.UpdateRealTimeStats(request); err != nil {
		t.Fatal(err)
	}
	stats, err := cacheSvc.GetRealTimeStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pending != 1 {
		t.Errorf("pending count is %d after submission, want 1", stats.Pending)
	}

	processedAt := createdAt.Add(10 * time.Minute)
	request.Status = types.StatusApproved
	request.ProcessedAt = &processedAt
	if err := cacheSvc.UpdateRealTimeStats(request); err != nil {
		t.Fatal(err)
	}
	stats, err = cacheSvc.GetRealTimeStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pending != 0 || stats.Approved != 1 {
		t.Errorf("counts are pending=%d approved=%d after approval, want 0/1",
			stats.Pending, stats.Approved)
	}
	if stats.AverageDecisionTimeInMinutes != 10 {
		t.Errorf("average decision time is %v minutes, want 10", stats.AverageDecisionTimeInMinutes)
	}
}
