package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Shopify/sarama"

	"CollectBox/global"
	"CollectBox/logger"
	"CollectBox/tools/errs"
	"CollectBox/tools/safe"
)

// KafkaFeed consumes change topics (cb.<table>) through one consumer
// group per session. Topics are coarser than predicates, so recipient
// filtering happens client-side via Matches.
type KafkaFeed struct {
	brokers []string
	groupID string

	mu   sync.Mutex
	subs map[int]*kafkaSub
	next int
}

func NewKafkaFeed(cfg *global.KafkaConfig, sessionUser string) *KafkaFeed {
	gid := cfg.GroupID
	if gid == "" {
		gid = "cb-client-" + sessionUser
	}
	return &KafkaFeed{brokers: cfg.Brokers, groupID: gid, subs: make(map[int]*kafkaSub)}
}

type kafkaSub struct {
	feed   *KafkaFeed
	id     int
	p      Predicate
	h      Handler
	cancel context.CancelFunc
	group  sarama.ConsumerGroup
	once   sync.Once
}

func (s *kafkaSub) Close() error {
	s.once.Do(func() {
		s.cancel()
		if err := s.group.Close(); err != nil {
			logger.Errorf("[KafkaFeed] close group: %v", err)
		}
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
	})
	return nil
}

type groupHandler struct{ sub *kafkaSub }

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (g groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Errorf("[KafkaFeed] bad event topic=%s offset=%d: %v", msg.Topic, msg.Offset, err)
			session.MarkMessage(msg, "")
			continue
		}
		if ev.Table == "" {
			ev.Table = g.sub.p.Table
		}
		if Matches(g.sub.p, ev, RowRecipient(ev.Row)) {
			g.sub.h(ev)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (f *KafkaFeed) Subscribe(p Predicate, h Handler) (Subscription, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(f.brokers, f.groupID, cfg)
	if err != nil {
		return nil, errs.Wrap(err, "new consumer group")
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.mu.Lock()
	f.next++
	s := &kafkaSub{feed: f, id: f.next, p: p, h: h, cancel: cancel, group: group}
	f.subs[s.id] = s
	f.mu.Unlock()

	topic := "cb." + p.Table
	safe.Go("kafka-feed-errors", func() {
		for err := range group.Errors() {
			logger.Errorf("[KafkaFeed] group error: %v", err)
		}
	})
	safe.Go("kafka-feed-consume", func() {
		for ctx.Err() == nil {
			if err := group.Consume(ctx, []string{topic}, groupHandler{sub: s}); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Errorf("[KafkaFeed] consume %s: %v", topic, err)
			}
		}
	})
	return s, nil
}
