// Package cache keeps real-time admin workflow stats in redis so the
// management dashboard can read them without scanning the request
// collection on every load.
package cache

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sheetstack/adminhub/db"
	"github.com/sheetstack/adminhub/server/sse"
	"github.com/sheetstack/adminhub/types"
)

const (
	statsKey = "RealtimeStats"
	maxRetry = 5
)

var log = logrus.New()

// Service represents a redis cache that stores real-time workflow stats
type Service struct {
	dbService *db.Service
	pool      *redis.Pool
	sseServer *sse.Broker
}

// RealTimeStats feed the management dashboard: how many requests sit in
// each state and how quickly admins are deciding them
type RealTimeStats struct {
	Pending                      int64   `redis:"pending" json:"pending"`
	Approved                     int64   `redis:"approved" json:"approved"`
	Rejected                     int64   `redis:"rejected" json:"rejected"`
	AverageDecisionTimeInMinutes float64 `redis:"averageDecisionTimeInMinutes" json:"averageDecisionTimeInMinutes"`
	TotalDecisionTimeInMinutes   float64 `redis:"totalDecisionTimeInMinutes" json:"totalDecisionTimeInMinutes"`
}

// NewService creates and initializes a new caching service
func NewService(db *db.Service, sseServer *sse.Broker) *Service {
	pool := &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", viper.GetString("redisConn"))
		},
	}
	// Ping the cache first to verify connection
	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		log.WithFields(logrus.Fields{
			"err": err.Error(),
		}).Fatal("Unable to connect to redis cache")
	}
	log.Info("Redis cache connection established")

	return &Service{
		dbService: db,
		pool:      pool,
		sseServer: sseServer,
	}
}

// GetRealTimeStats gets the real-time stats from cache
func (svc *Service) GetRealTimeStats() (RealTimeStats, error) {
	conn := svc.pool.Get()
	defer conn.Close()
	values, err := redis.Values(conn.Do("HGETALL", statsKey))
	if err != nil {
		return RealTimeStats{}, err
	}
	var stats RealTimeStats
	if err := redis.ScanStruct(values, &stats); err != nil {
		return RealTimeStats{}, err
	}
	return stats, nil
}

// UpdateRealTimeStats applies one request transition to the cached stats.
// The WATCH/MULTI loop retries when a concurrent decision moved the hash
// underneath us.
func (svc *Service) UpdateRealTimeStats(request types.AdminRequest) error {
	for n := 1; n <= maxRetry; n++ {
		conn := svc.pool.Get()
		defer conn.Close()
		stats, err := svc.GetRealTimeStats()
		if err != nil {
			return err
		}
		if _, err := conn.Do("WATCH", statsKey); err != nil {
			return err
		}

		args := []interface{}{statsKey}
		switch request.Status {
		case types.StatusPending:
			args = append(args, "pending", stats.Pending+1)
		case types.StatusApproved:
			stats = applyDecision(stats, request)
			args = append(args,
				"pending", stats.Pending,
				"approved", stats.Approved+1,
				"totalDecisionTimeInMinutes", stats.TotalDecisionTimeInMinutes,
				"averageDecisionTimeInMinutes", averageMinutes(stats.TotalDecisionTimeInMinutes, stats.Approved+1+stats.Rejected))
		case types.StatusRejected:
			stats = applyDecision(stats, request)
			args = append(args,
				"pending", stats.Pending,
				"rejected", stats.Rejected+1,
				"totalDecisionTimeInMinutes", stats.TotalDecisionTimeInMinutes,
				"averageDecisionTimeInMinutes", averageMinutes(stats.TotalDecisionTimeInMinutes, stats.Approved+stats.Rejected+1))
		}

		if err := conn.Send("MULTI"); err != nil {
			return err
		}
		if err := conn.Send("HMSET", args...); err != nil {
			return err
		}
		// A nil EXEC reply means another client changed the WATCHed key;
		// re-run the loop
		_, err = redis.Values(conn.Do("EXEC"))
		if err == redis.ErrNil {
			log.Debugf("Race condition detected during stats update. Retrying %d/%d", n, maxRetry)
			time.Sleep(time.Second * 2)
			continue
		} else if err != nil {
			return err
		}
		// Broadcast the new stats to dashboards listening on the SSE stream
		if err := svc.BroadcastViaSSE(); err != nil {
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Error("Unable to broadcast event for stats update")
		}
		return nil
	}
	return errors.New("Unable to update stats. Give up")
}

func applyDecision(stats RealTimeStats, request types.AdminRequest) RealTimeStats {
	stats.Pending--
	if request.ProcessedAt != nil {
		stats.TotalDecisionTimeInMinutes += request.ProcessedAt.Sub(request.CreatedAt).Minutes()
	}
	return stats
}

func averageMinutes(total float64, decided int64) float64 {
	if decided == 0 {
		return 0
	}
	return math.Round(total / float64(decided))
}

// BroadcastViaSSE pushes the current stats snapshot to connected clients
func (svc *Service) BroadcastViaSSE() error {
	stats, err := svc.GetRealTimeStats()
	if err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	svc.sseServer.Notifier <- jsonBytes
	return nil
}

// SyncStats recomputes the cached stats from the current db state.
// Should run once during startup.
func (svc *Service) SyncStats() error {
	for n := 1; n <= maxRetry; n++ {
		conn := svc.pool.Get()
		defer conn.Close()
		requests, err := svc.dbService.GetRequests(bson.D{{}})
		if err != nil {
			return err
		}
		if _, err := conn.Do("WATCH", statsKey); err != nil {
			return err
		}
		var pending, approved, rejected int64
		var totalDecisionTimeInMinutes float64
		for _, request := range requests {
			switch request.Status {
			case types.StatusPending:
				pending++
			case types.StatusApproved:
				approved++
			case types.StatusRejected:
				rejected++
			}
			if request.ProcessedAt != nil {
				totalDecisionTimeInMinutes += request.ProcessedAt.Sub(request.CreatedAt).Minutes()
			}
		}

		if err := conn.Send("MULTI"); err != nil {
			return err
		}
		err = conn.Send(
			"HMSET", statsKey,
			"pending", pending,
			"approved", approved,
			"rejected", rejected,
			"totalDecisionTimeInMinutes", totalDecisionTimeInMinutes,
			"averageDecisionTimeInMinutes", averageMinutes(totalDecisionTimeInMinutes, approved+rejected))
		if err != nil {
			return err
		}
		_, err = redis.Values(conn.Do("EXEC"))
		if err == redis.ErrNil {
			log.Debugf("Race condition detected during initial cache sync. Retrying %d/%d", n, maxRetry)
			time.Sleep(time.Second * 2)
			continue
		} else if err != nil {
			return err
		}
		log.Info("Initial cache sync completed")
		return nil
	}
	return errors.New("Unable to sync cache. Give up")
}
