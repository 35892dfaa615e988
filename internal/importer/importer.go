// Package importer fetches animation documents from URLs, pages and uploads.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/lottie"
)

var (
	ErrInvalidURL         = errors.New("invalid animation URL")
	ErrNoAnimation        = errors.New("no animation found on page")
	ErrSourceNotFound     = errors.New("animation source not found")
	ErrTooLarge           = errors.New("animation exceeds size limit")
	ErrUnsupportedContent = errors.New("unsupported content")
	ErrFetchFailed        = errors.New("failed to fetch animation")
)

const (
	defaultTimeout   = 15 * time.Second
	defaultMaxBytes  = 20 << 20
	defaultUserAgent = "lottiecolor/1.0"
)

// Animation is an imported document with the metadata found alongside it.
type Animation struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	SourceURL string       `json:"sourceUrl,omitempty"`
	JSONURL   string       `json:"jsonUrl,omitempty"`
	Document  *lottie.Node `json:"document"`
}

type Config struct {
	Timeout      time.Duration
	MaxBytes     int64
	UserAgent    string
	AllowAnyHost bool
	MaxDepth     int

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

type Importer struct {
	client       *http.Client
	maxBytes     int64
	userAgent    string
	allowAnyHost bool
	maxDepth     int
}

func New(cfg Config) *Importer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = lottie.DefaultMaxDepth
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Importer{
		client:       client,
		maxBytes:     cfg.MaxBytes,
		userAgent:    cfg.UserAgent,
		allowAnyHost: cfg.AllowAnyHost,
		maxDepth:     cfg.MaxDepth,
	}
}

// ValidURL reports whether raw is an http(s) URL on lottiefiles.com or one
// pointing directly at a .json or .lottie file.
func ValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "lottiefiles.com" || strings.HasSuffix(host, ".lottiefiles.com") {
		return true
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext == ".json" || ext == ".lottie"
}

// FromURL imports the animation at rawURL. The URL may point at a JSON
// document, a .lottie archive, or an HTML page embedding a lottie player, in
// which case the player's source is fetched.
func (im *Importer) FromURL(ctx context.Context, rawURL string) (*Animation, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if !im.allowAnyHost && !ValidURL(rawURL) {
		return nil, fmt.Errorf("%w: %q is not a LottieFiles page or animation file", ErrInvalidURL, rawURL)
	}

	body, contentType, err := im.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	if IsArchive(body) || isJSON(body, contentType) {
		anim, err := im.decode(body, nameFromURL(u))
		if err != nil {
			return nil, err
		}
		anim.SourceURL = u.String()
		anim.JSONURL = u.String()
		return anim, nil
	}

	if !isHTML(body, contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	page, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	src, err := u.Parse(page.src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}

	log.Ctx(ctx).Debug().
		Str("page_url", u.String()).
		Str("source_url", src.String()).
		Msg("Following lottie player source")

	srcBody, srcType, err := im.fetch(ctx, src.String())
	if err != nil {
		return nil, err
	}
	if !IsArchive(srcBody) && !isJSON(srcBody, srcType) {
		return nil, fmt.Errorf("%w: player source is %s", ErrUnsupportedContent, srcType)
	}

	anim, err := im.decode(srcBody, CleanName(page.title, u.String()))
	if err != nil {
		return nil, err
	}
	anim.SourceURL = u.String()
	anim.JSONURL = src.String()
	return anim, nil
}

// FromBytes imports an uploaded JSON document or .lottie archive.
func (im *Importer) FromBytes(name string, data []byte) (*Animation, error) {
	if int64(len(data)) > im.maxBytes {
		return nil, ErrTooLarge
	}
	if !IsArchive(data) && !isJSON(data, "") {
		return nil, fmt.Errorf("%w: upload is neither JSON nor a .lottie archive", ErrUnsupportedContent)
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return im.decode(data, cleanName(strings.TrimSuffix(base, path.Ext(base))))
}

// decode parses a JSON document or .lottie archive. The animation is named
// after preferred, then the archive manifest, then the document's own "nm".
func (im *Importer) decode(data []byte, preferred string) (*Animation, error) {
	var manifestName string
	if IsArchive(data) {
		entry, err := readArchive(data, im.maxBytes)
		if err != nil {
			return nil, err
		}
		data = entry.data
		manifestName = entry.name
	}

	doc, err := lottie.ParseDepth(data, im.maxDepth)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() && !doc.IsArray() {
		return nil, fmt.Errorf("%w: root is %s", lottie.ErrMalformedDocument, doc.Kind())
	}

	docName, _ := doc.Get("nm").Text()
	return &Animation{
		ID:       uuid.New().String(),
		Name:     firstNonEmpty(preferred, cleanName(manifestName), cleanName(docName), defaultName),
		Document: doc,
	}, nil
}

func (im *Importer) fetch(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", im.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %s returned %d", ErrFetchFailed, target, resp.StatusCode)
	}
	if resp.ContentLength > im.maxBytes {
		return nil, "", ErrTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, im.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(body)) > im.maxBytes {
		return nil, "", ErrTooLarge
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func isJSON(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func isHTML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func nameFromURL(u *url.URL) string {
	return cleanName(segmentName(u.Path))
}
