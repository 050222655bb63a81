package model

import (
	"encoding/json"
	"fmt"
)

// VideoKind tells how a video is referenced by a page.
type VideoKind string

const (
	// VideoDirect is a media file referenced by a <video> or <source> element.
	VideoDirect VideoKind = "direct"

	// VideoEmbed is a player from a known video host loaded in an <iframe>.
	VideoEmbed VideoKind = "embed"
)

// Valid reports whether k is one of the known kinds.
func (k VideoKind) Valid() bool {
	return k == VideoDirect || k == VideoEmbed
}

// UnmarshalJSON rejects unknown kinds so that a hand-edited documents file
// cannot smuggle arbitrary values into the document map.
func (k *VideoKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := VideoKind(s)
	if !kind.Valid() {
		return fmt.Errorf("unknown video kind %q", s)
	}
	*k = kind
	return nil
}

// Image is an image referenced by a document.
type Image struct {
	// Src is the absolute http(s) URL of the image.
	Src string `json:"src"`

	// Alt is the alt text, empty when the element had none.
	Alt string `json:"alt"`
}

// Video is a video referenced by a document.
type Video struct {
	// Src is the absolute http(s) URL of the media file or embed player.
	Src string `json:"src"`

	// Kind is direct or embed. It is stored as "type" to stay compatible
	// with documents files written by earlier versions.
	Kind VideoKind `json:"type"`
}

// Document is the extracted content of one fetched HTML page.
// A Document is immutable once the extractor returns it.
type Document struct {
	// URL is the normalized URL the page was fetched from.
	URL string `json:"url"`

	// Text is the visible text of the page, whitespace-collapsed, in document order.
	Text string `json:"text_content"`

	// Images lists image references in document order.
	Images []Image `json:"images"`

	// Videos lists direct videos first and embeds after them, each in document order.
	Videos []Video `json:"videos"`
}

// NewDocument returns an empty Document for url with non-nil media slices,
// so that it serializes as [] rather than null.
func NewDocument(url string) *Document {
	return &Document{
		URL:    url,
		Images: make([]Image, 0),
		Videos: make([]Video, 0),
	}
}
