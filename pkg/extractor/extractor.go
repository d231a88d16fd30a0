package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/utils"
)

// Extractor handles content extraction from HTML
type Extractor struct {
	skipSchemes []string
}

// New creates a new Extractor instance
func New() *Extractor {
	return &Extractor{
		skipSchemes: []string{"javascript:", "mailto:", "tel:", "data:"},
	}
}

// Extract parses an HTML document fetched from pageURL into a Page with its
// title, main text, outgoing links and login-form marker.
func (e *Extractor) Extract(body []byte, pageURL string) (models.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Page{}, fmt.Errorf("parse html: %w", err)
	}

	page := models.Page{
		URL:              pageURL,
		Title:            utils.CleanText(doc.Find("title").First().Text()),
		Links:            e.ExtractLinks(doc, pageURL),
		HasPasswordField: doc.Find(`input[type="password"]`).Length() > 0,
	}

	text, err := e.ExtractText(body)
	if err != nil || text == "" {
		text = fallbackText(body)
	}
	page.Text = utils.CleanText(text)
	return page, nil
}

// ExtractText extracts clean text from HTML using trafilatura
func (e *Extractor) ExtractText(body []byte) (string, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{})
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return result.ContentText, nil
}

// ExtractLinks returns the absolute, de-duplicated hyperlinks of a document
// in document order.
func (e *Extractor) ExtractLinks(doc *goquery.Document, baseURL string) []models.Link {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	links := []models.Link{}
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || e.skipScheme(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}

		target := abs.String()
		if seen[target] {
			return
		}
		seen[target] = true

		anchor := utils.CleanText(s.Text())
		if anchor == "" {
			anchor = s.Find("img").AttrOr("alt", "")
		}
		links = append(links, models.Link{ToURL: target, AnchorText: anchor})
	})
	return links
}

func (e *Extractor) skipScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range e.skipSchemes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// fallbackText concatenates visible text nodes when trafilatura finds no
// main content, which is common for short login pages.
func fallbackText(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
