package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentRoundTrip(t *testing.T) {
	ref := CollectibleRef{ItemID: "item-9", Name: "1921 Morgan Dollar", Thumb: "thumbs/item-9.jpg"}
	content, err := EncodeAttachment(ref)
	require.NoError(t, err)
	require.True(t, IsAttachment(content))

	r := DecodeContent(content)
	require.Equal(t, RenderAttachment, r.Kind)
	assert.Equal(t, ref, *r.Ref)
}

func TestDecodeContentPlainText(t *testing.T) {
	r := DecodeContent("hello, nice stamp")
	assert.Equal(t, RenderText, r.Kind)
	assert.Equal(t, "hello, nice stamp", r.Text)
}

func TestDecodeContentCorruptedPayload(t *testing.T) {
	cases := []string{
		AttachmentSentinel + "{not json",
		AttachmentSentinel,
		AttachmentSentinel + `{"name":"no item id"}`,
	}
	for _, c := range cases {
		assert.NotPanics(t, func() {
			r := DecodeContent(c)
			assert.Equal(t, RenderPlaceholder, r.Kind)
			assert.NotEmpty(t, r.Text)
		})
	}
}

func TestMessageOrderingDeterministic(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Message{ID: "a", CreatedAt: ts}
	b := &Message{ID: "b", CreatedAt: ts} // same timestamp, id breaks the tie
	c := &Message{ID: "c", CreatedAt: ts.Add(-time.Second)}

	first := []*Message{b, a, c}
	second := []*Message{a, c, b}
	SortMessages(first)
	SortMessages(second)

	require.Equal(t, first, second)
	assert.Equal(t, "c", first[0].ID)
	assert.Equal(t, "a", first[1].ID)
	assert.Equal(t, "b", first[2].ID)
}

func TestInsertSortedPlacesOutOfOrderArrival(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []*Message{
		{ID: "m1", CreatedAt: base},
		{ID: "m3", CreatedAt: base.Add(2 * time.Second)},
	}
	list = InsertSorted(list, &Message{ID: "m2", CreatedAt: base.Add(time.Second)})
	require.Len(t, list, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{list[0].ID, list[1].ID, list[2].ID})

	// late arrival older than everything lands at the head
	list = InsertSorted(list, &Message{ID: "m0", CreatedAt: base.Add(-time.Second)})
	assert.Equal(t, "m0", list[0].ID)
}
