package realtime

import (
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"

	"CollectBox/global"
	"CollectBox/logger"
	"CollectBox/tools/errs"
)

// NatsFeed maps predicates onto subjects: cb.<table>.<recipient>. The
// backend's change publisher mirrors the same scheme, so one core
// subscription per predicate is enough and no client-side recipient
// filtering is needed.
type NatsFeed struct {
	nc *nats.Conn
}

func NewNatsFeed(cfg *global.NatsConfig) (*NatsFeed, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1), // reconnect policy is the transport's job
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Infof("[NatsFeed] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("[NatsFeed] reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NatsFeed{nc: nc}, nil
}

func subjectFor(p Predicate) string {
	recipient := p.Recipient
	if recipient == "" {
		recipient = "*"
	}
	return "cb." + p.Table + "." + recipient
}

type natsSub struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

func (s *natsSub) Close() error {
	s.once.Do(func() { s.err = s.sub.Unsubscribe() })
	return s.err
}

func (f *NatsFeed) Subscribe(p Predicate, h Handler) (Subscription, error) {
	sub, err := f.nc.Subscribe(subjectFor(p), func(m *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			logger.Errorf("[NatsFeed] bad event on %s: %v", m.Subject, err)
			return
		}
		if ev.Table == "" {
			ev.Table = p.Table
		}
		if !Matches(p, ev, RowRecipient(ev.Row)) {
			return
		}
		h(ev)
	})
	if err != nil {
		return nil, errs.Wrapf(err, "subscribe %s", subjectFor(p))
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	return &natsSub{sub: sub}, nil
}

func (f *NatsFeed) Close() {
	f.nc.Close()
}
