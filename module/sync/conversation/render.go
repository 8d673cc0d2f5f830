package conversation

import (
	"context"

	"CollectBox/module/collect/model"
	"CollectBox/service/objectstore"
)

// Render produces the display form of one message for the view layer,
// resolving an attachment's thumbnail key into a fetchable URL. A nil
// bucket or a resolution failure just leaves the card thumbless;
// rendering never fails.
func Render(ctx context.Context, bucket objectstore.Bucket, m *model.Message) model.Rendered {
	r := model.DecodeContent(m.Content)
	if r.Kind != model.RenderAttachment || r.Ref.Thumb == "" || bucket == nil {
		return r
	}
	url, err := bucket.PublicURL(ctx, r.Ref.Thumb)
	if err != nil || url == "" {
		r.Ref.Thumb = ""
		return r
	}
	r.Ref.Thumb = url
	return r
}
