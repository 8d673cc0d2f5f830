package realtime

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"CollectBox/module/collect/model"
	"CollectBox/tools/errs"
)

// Rows arrive as loosely-typed maps (JSON over the wire); mapstructure
// turns them into model structs. Timestamps come through as RFC3339
// strings or time.Time depending on transport, so both are accepted.

func decodeRow(row map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return dec.Decode(row)
}

func DecodeMessage(ev Event) (*model.Message, error) {
	var m model.Message
	if err := decodeRow(ev.Row, &m); err != nil {
		return nil, errs.Wrap(err, "decode message row")
	}
	if m.ID == "" || m.SenderID == "" {
		return nil, errs.New("message row missing identity")
	}
	return &m, nil
}

func DecodeNotification(ev Event) (*model.NotificationRecord, error) {
	var n model.NotificationRecord
	if err := decodeRow(ev.Row, &n); err != nil {
		return nil, errs.Wrap(err, "decode notification row")
	}
	if n.ID == "" {
		return nil, errs.New("notification row missing identity")
	}
	return &n, nil
}

// RowRecipient pulls the recipient identity out of a raw row without a
// full decode, for predicate matching.
func RowRecipient(row map[string]any) string {
	if v, ok := row["recipient_id"].(string); ok {
		return v
	}
	return ""
}
