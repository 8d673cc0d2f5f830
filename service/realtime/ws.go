package realtime

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"CollectBox/logger"
	"CollectBox/tools/errs"
	"CollectBox/tools/safe"
)

// WSFeed is the hosted backend's own push channel: one websocket per
// session carrying JSON change frames for every table, with predicate
// matching done client-side. The read pump only reads; writes (the
// initial auth frame) happen once before the pump starts.
type WSFeed struct {
	conn *websocket.Conn

	mu     sync.Mutex
	subs   map[int]*wsSub
	next   int
	closed bool
}

type wsFrame struct {
	Op    string         `json:"op"`
	Table string         `json:"table"`
	Row   map[string]any `json:"row"`
}

type wsSub struct {
	feed *WSFeed
	id   int
	p    Predicate
	h    Handler
	once sync.Once
}

func (s *wsSub) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
	})
	return nil
}

// DialWS connects and authenticates, then starts the read pump.
func DialWS(endpoint, token string) (*WSFeed, error) {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(err, "dial change feed")
	}
	if err := conn.WriteJSON(map[string]string{"op": "auth", "token": token}); err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(err, "auth change feed")
	}
	f := &WSFeed{conn: conn, subs: make(map[int]*wsSub)}
	safe.Go("ws-feed-read", f.readPump)
	return f, nil
}

func (f *WSFeed) readPump() {
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WSFeed] peer closed: %v", err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WSFeed] read timeout: %v", err)
			} else {
				logger.Infof("[WSFeed] read err: %v", err)
			}
			return
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Errorf("[WSFeed] bad frame: %v", err)
			continue
		}
		f.dispatch(Event{Op: frame.Op, Table: frame.Table, Row: frame.Row})
	}
}

func (f *WSFeed) dispatch(ev Event) {
	f.mu.Lock()
	var targets []*wsSub
	for _, s := range f.subs {
		if Matches(s.p, ev, RowRecipient(ev.Row)) {
			targets = append(targets, s)
		}
	}
	f.mu.Unlock()
	for _, s := range targets {
		s.h(ev)
	}
}

func (f *WSFeed) Subscribe(p Predicate, h Handler) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errs.ErrClosed
	}
	f.next++
	s := &wsSub{feed: f, id: f.next, p: p, h: h}
	f.subs[s.id] = s
	return s, nil
}

func (f *WSFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()
	if err := f.conn.Close(); err != nil {
		logger.Infof("[WSFeed] close: %v", err)
	}
}
