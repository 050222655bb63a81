package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/webindex/internal/model"
)

// embedPatterns identify iframe sources that are video players.
var embedPatterns = []string{
	"youtube.com/embed/",
	"youtube-nocookie.com/embed/",
	"player.vimeo.com/video/",
	"dailymotion.com/embed/",
}

// invisibleElements hold text that is never rendered.
var invisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// ExtractionFailure describes markup that could only be partially read.
// It is never fatal: the Extraction still carries a best-effort Document.
type ExtractionFailure struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// Extraction is the result of extracting one page.
type Extraction struct {
	// Document is always non-nil.
	Document *model.Document

	// Links are outbound absolute http(s) URLs without fragments,
	// de-duplicated, in document order.
	Links []string

	// Failure is set when the page could only be partially extracted.
	Failure *ExtractionFailure
}

// Extractor turns HTML bodies into Documents and outbound links.
type Extractor struct {
	sameOrigin bool
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithSameOriginLinks restricts returned links to the page's own origin.
func WithSameOriginLinks(sameOrigin bool) ExtractorOption {
	return func(e *Extractor) {
		e.sameOrigin = sameOrigin
	}
}

// NewExtractor creates an Extractor. By default links to every origin are returned.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses body as HTML served from baseURL. The encoding is
// sniffed from the body.
func (e *Extractor) Extract(baseURL string, body []byte) Extraction {
	return e.ExtractWithContentType(baseURL, "", body)
}

// ExtractWithContentType is Extract with the Content-Type header used as
// an encoding hint.
func (e *Extractor) ExtractWithContentType(baseURL, contentType string, body []byte) Extraction {
	result := Extraction{
		Document: model.NewDocument(baseURL),
		Links:    make([]string, 0),
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		result.Failure = &ExtractionFailure{URL: baseURL, Reason: "invalid base URL: " + err.Error()}
		base = &url.URL{}
	}

	enc, _, _ := charset.DetermineEncoding(body, contentType)
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		result.Failure = &ExtractionFailure{URL: baseURL, Reason: "decode: " + err.Error()}
		decoded = body
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		// The tree could not be built. Salvage the text with the tokenizer.
		result.Failure = &ExtractionFailure{URL: baseURL, Reason: err.Error()}
		result.Document.Text = tokenizedText(decoded)
		return result
	}

	result.Document.Text = visibleText(root)

	doc := goquery.NewDocumentFromNode(root)
	result.Document.Images = e.images(doc, base)
	result.Document.Videos = e.videos(doc, base)
	result.Links = e.links(doc, base)

	return result
}

// visibleText joins rendered text nodes in document order with single spaces.
func visibleText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && invisibleElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return collapseSpace(b.String())
}

// tokenizedText collects text tokens outside invisible elements without
// building a tree.
func tokenizedText(body []byte) string {
	var b strings.Builder
	z := html.NewTokenizer(bytes.NewReader(body))
	hidden := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if invisibleElements[string(name)] {
				hidden++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if invisibleElements[string(name)] && hidden > 0 {
				hidden--
			}
		case html.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (e *Extractor) images(doc *goquery.Document, base *url.URL) []model.Image {
	images := make([]model.Image, 0)
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := resolve(base, s.AttrOr("src", ""))
		if !ok {
			return
		}
		images = append(images, model.Image{
			Src: src,
			Alt: strings.TrimSpace(s.AttrOr("alt", "")),
		})
	})
	return images
}

func (e *Extractor) videos(doc *goquery.Document, base *url.URL) []model.Video {
	videos := make([]model.Video, 0)
	doc.Find("video[src], video > source[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := resolve(base, s.AttrOr("src", "")); ok {
			videos = append(videos, model.Video{Src: src, Kind: model.VideoDirect})
		}
	})
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := resolve(base, s.AttrOr("src", ""))
		if ok && isEmbed(src) {
			videos = append(videos, model.Video{Src: src, Kind: model.VideoEmbed})
		}
	})
	return videos
}

func (e *Extractor) links(doc *goquery.Document, base *url.URL) []string {
	links := make([]string, 0)
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := base.Parse(href)
		if err != nil {
			return
		}
		normalized, err := normalize(ref)
		if err != nil {
			return
		}
		if e.sameOrigin && !strings.EqualFold(ref.Host, base.Host) {
			return
		}
		if seen[normalized] {
			return
		}
		seen[normalized] = true
		links = append(links, normalized)
	})
	return links
}

// resolve makes ref absolute against base and reports whether the
// result is an http(s) URL.
func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

func isEmbed(src string) bool {
	for _, p := range embedPatterns {
		if strings.Contains(src, p) {
			return true
		}
	}
	return false
}
