package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"CollectBox/global"
	"CollectBox/module/collect/model"
	"CollectBox/tools/errs"
	"CollectBox/tools/ids"
)

// MongoStore implements Store over the hosted backend's message and
// notification collections.
type MongoStore struct {
	MsgColl   *mongo.Collection
	NotifColl *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		MsgColl:   db.Collection(model.MessageTable),
		NotifColl: db.Collection(model.NotificationTable),
	}
}

// Dial connects per config, retrying transient failures.
func Dial(ctx context.Context, cfg *global.MongoConfig) (*mongo.Database, error) {
	if cfg.Uri == "" {
		return nil, errs.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.Uri)

	retry := cfg.MaxRetry
	if retry <= 0 {
		retry = 1
	}
	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < retry; i++ {
		cli, err = mongo.Connect(ctx, opts)
		if err == nil {
			err = cli.Ping(ctx, readpref.Primary())
		}
		if err == nil {
			return cli.Database(cfg.Database), nil
		}
		time.Sleep(time.Second / 2)
	}
	return nil, errs.Wrap(err, "connect mongo")
}

func (s *MongoStore) CountUnreadBySender(ctx context.Context, recipient string) (map[string]int, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"recipient_id": recipient, "is_read": false}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$sender_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.MsgColl.Aggregate(ctx, pipe)
	if err != nil {
		return nil, errs.Wrap(err, "count unread by sender")
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make(map[string]int)
	for cur.Next(ctx) {
		var row struct {
			Sender string `bson:"_id"`
			N      int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, errs.Wrap(err, "decode unread group")
		}
		out[row.Sender] = row.N
	}
	return out, cur.Err()
}

func (s *MongoStore) InsertMessage(ctx context.Context, sender, recipient, content string) (*model.Message, error) {
	m := &model.Message{
		ID:          ids.Next(),
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.MsgColl.InsertOne(ctx, m); err != nil {
		return nil, errs.Wrap(err, "insert message")
	}
	return m, nil
}

func (s *MongoStore) UpdateMessagesReadStatus(ctx context.Context, sender, recipient string) (int64, error) {
	res, err := s.MsgColl.UpdateMany(ctx,
		bson.M{"sender_id": sender, "recipient_id": recipient, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, errs.Wrap(err, "update read status")
	}
	return res.ModifiedCount, nil
}

func pairFilter(peerA, peerB string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": peerA, "recipient_id": peerB},
		bson.M{"sender_id": peerB, "recipient_id": peerA},
	}}
}

func (s *MongoStore) DeleteMessages(ctx context.Context, peerA, peerB string) error {
	_, err := s.MsgColl.DeleteMany(ctx, pairFilter(peerA, peerB))
	return errs.Wrap(err, "delete conversation")
}

func (s *MongoStore) QueryMessages(ctx context.Context, peerA, peerB string) ([]*model.Message, error) {
	cur, err := s.MsgColl.Find(ctx, pairFilter(peerA, peerB),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errs.Wrap(err, "query messages")
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errs.Wrap(err, "decode message")
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *MongoStore) QueryNotifications(ctx context.Context, recipient string, limit int64) ([]*model.NotificationRecord, error) {
	cur, err := s.NotifColl.Find(ctx, bson.M{"recipient_id": recipient},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, errs.Wrap(err, "query notifications")
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.NotificationRecord
	for cur.Next(ctx) {
		var n model.NotificationRecord
		if err := cur.Decode(&n); err != nil {
			return nil, errs.Wrap(err, "decode notification")
		}
		out = append(out, &n)
	}
	return out, cur.Err()
}
