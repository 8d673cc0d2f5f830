package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CollectBox/global"
	"CollectBox/logger"
	"CollectBox/module/collect/model"
	"CollectBox/module/sync/conversation"
	"CollectBox/module/sync/tracker"
	"CollectBox/service/objectstore"
	"CollectBox/service/presence"
	"CollectBox/service/realtime"
	"CollectBox/service/store"
)

// Bootstrap for a headless client session: store + change feed + tracker,
// plus one open conversation when CB_PEER is set. The embedding view
// layer normally drives peer selection; this binary proves the wiring
// end to end.
func main() {
	cfg := global.LoadConfig()

	sess, err := sessionFromEnv()
	if err != nil {
		logger.Errorf("no session: %v", err)
		os.Exit(1)
	}
	logger.Info("session established", zap.String("user", sess.UserID))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := store.Dial(ctx, &cfg.Mongo)
	cancel()
	if err != nil {
		logger.Errorf("store unavailable: %v", err)
		os.Exit(1)
	}
	st := store.NewMongoStore(db)

	feed, closeFeed, err := openFeed(cfg, sess)
	if err != nil {
		logger.Errorf("change feed unavailable: %v", err)
		os.Exit(1)
	}
	defer closeFeed()

	var acks tracker.AckStore
	pres, err := presence.New(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, notification acks are session-scoped", zap.Error(err))
	} else {
		acks = pres
		if err := pres.Online(context.Background(), sess.UserID, 2*time.Minute); err != nil {
			logger.Warn("presence online failed", zap.Error(err))
		}
		defer func() { _ = pres.Offline(context.Background(), sess.UserID) }()
	}

	tr := tracker.New(sess, st, feed, acks)
	tr.Start(context.Background())
	defer tr.Close()

	logger.Info("tracker running",
		zap.Int("total_unread", tr.TotalUnread()),
		zap.Int("unread_notifications", tr.UnreadNotificationTotal()),
	)

	if peer := os.Getenv("CB_PEER"); peer != "" {
		sync := conversation.New(sess, st, feed)
		defer sync.Close()
		if err := sync.SelectPeer(context.Background(), peer); err != nil {
			logger.Errorf("open conversation with %s: %v", peer, err)
		} else {
			msgs := sync.Messages()
			logger.Info("conversation open",
				zap.String("peer", peer), zap.Int("messages", len(msgs)))
			for _, m := range msgs {
				r := conversation.Render(context.Background(), objectstore.Noop{}, m)
				if r.Kind == model.RenderAttachment {
					logger.Debug("attachment", zap.String("item", r.Ref.Name))
				}
			}
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}

func sessionFromEnv() (*global.UserSession, error) {
	if token := os.Getenv("CB_TOKEN"); token != "" {
		return global.NewSession(token)
	}
	if user := os.Getenv("CB_USER"); user != "" {
		return global.NewSessionForUser(user), nil
	}
	return global.NewSession("")
}

func openFeed(cfg *global.AppConfig, sess *global.UserSession) (realtime.Feed, func(), error) {
	switch cfg.Feed {
	case global.FeedKafka:
		f := realtime.NewKafkaFeed(&cfg.Kafka, sess.UserID)
		return f, func() {}, nil
	case global.FeedWS:
		f, err := realtime.DialWS(cfg.WS.Endpoint, sess.Token)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	default:
		f, err := realtime.NewNatsFeed(&cfg.Nats)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
