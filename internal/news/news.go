// Package news fetches web articles and reduces them to plain text, for
// feeding pages into a conversation as attachments.
package news

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Some sites refuse requests without a browser user agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// maxBodyBytes bounds how much of a page we read before parsing.
const maxBodyBytes = 4 << 20

// contentSelectors are tried in order; the first match supplies the article
// body. Anything else falls back to the whole <body>.
var contentSelectors = []func(*html.Node) bool{
	matchTag("article"),
	matchClass("article-content"),
	matchClass("post-content"),
	matchID("article-body"),
	matchTag("main"),
	matchClass("content"),
}

var whitespace = regexp.MustCompile(`\s+`)

// Article is one extracted page. On failure Success is false and Error holds
// the reason; Title and Content are empty then.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Extractor fetches pages and strips them down to title and article text.
type Extractor struct {
	http *http.Client
}

func NewExtractor() *Extractor {
	return &Extractor{http: &http.Client{Timeout: 10 * time.Second}}
}

// ExtractFromURL fetches url and extracts its title and main text. Errors are
// reported in the returned Article, never as a Go error: one bad URL must not
// fail a batch.
func (e *Extractor) ExtractFromURL(ctx context.Context, url string) Article {
	fail := func(msg string) Article {
		return Article{URL: url, Error: msg}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return fail(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail("request failed with status " + resp.Status)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(err.Error())
	}

	title := "Untitled"
	if t := findFirst(doc, matchTag("title")); t != nil {
		title = nodeText(t)
	}

	var contentNode *html.Node
	for _, match := range contentSelectors {
		if n := findFirst(doc, match); n != nil {
			contentNode = n
			break
		}
	}
	if contentNode == nil {
		contentNode = findFirst(doc, matchTag("body"))
	}

	content := ""
	if contentNode != nil {
		content = nodeText(contentNode)
	}

	return Article{
		Title:   title,
		Content: content,
		URL:     url,
		Success: true,
	}
}

// ProcessURLs extracts every non-blank URL in order. The result always has one
// entry per processed URL, failed ones included.
func (e *Extractor) ProcessURLs(ctx context.Context, urls []string) []Article {
	articles := make([]Article, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		articles = append(articles, e.ExtractFromURL(ctx, u))
	}
	return articles
}

// ChunkText splits text into word-based chunks of at most chunkSize words,
// each sharing its first overlap words with the previous chunk's tail.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize < 1 {
		chunkSize = 1
	}
	step := chunkSize - overlap
	if step < 1 {
		step = 1
	}

	words := strings.Fields(text)
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

func matchTag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func matchClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, c := range strings.Fields(attrValue(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func matchID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attrValue(n, "id") == id
	}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirst returns the first node in document order matching match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// nodeText collects the visible text under n, skipping script and style
// subtrees, with runs of whitespace collapsed to single spaces.
func nodeText(n *html.Node) string {
	var b strings.Builder
	collectText(n, &b)
	return strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
