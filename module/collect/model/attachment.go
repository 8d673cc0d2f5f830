package model

import (
	"encoding/json"
	"strings"
)

// AttachmentSentinel marks message content that carries a collectible
// reference instead of prose. The marker is fixed forever: changing it
// orphans every attachment already stored.
const AttachmentSentinel = "[[collectible]]"

// CollectibleRef is the attachment payload embedded in a message: a
// pointer to one catalogued item, denormalized enough to render a card
// without a store round trip.
type CollectibleRef struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Thumb  string `json:"thumb,omitempty"` // object-storage key, optional
}

type RenderKind int

const (
	RenderText RenderKind = iota
	RenderAttachment
	RenderPlaceholder
)

// Rendered is the display form of message content.
type Rendered struct {
	Kind RenderKind
	Text string
	Ref  *CollectibleRef
}

// EncodeAttachment serializes a collectible reference into the message
// content field.
func EncodeAttachment(ref CollectibleRef) (string, error) {
	raw, err := json.Marshal(ref)
	if err != nil {
		return "", err
	}
	return AttachmentSentinel + string(raw), nil
}

// DecodeContent classifies message content. Content starting with the
// sentinel gets a structured parse; a parse failure degrades to a
// placeholder, never an error: free text may collide with the marker
// or the payload may be corrupted, and neither is allowed to break a
// render.
func DecodeContent(content string) Rendered {
	if !strings.HasPrefix(content, AttachmentSentinel) {
		return Rendered{Kind: RenderText, Text: content}
	}
	var ref CollectibleRef
	raw := content[len(AttachmentSentinel):]
	if err := json.Unmarshal([]byte(raw), &ref); err != nil || ref.ItemID == "" {
		return Rendered{Kind: RenderPlaceholder, Text: "could not display attached item"}
	}
	return Rendered{Kind: RenderAttachment, Ref: &ref}
}

// IsAttachment reports whether content carries a collectible payload.
func IsAttachment(content string) bool {
	return strings.HasPrefix(content, AttachmentSentinel)
}
