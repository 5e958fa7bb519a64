package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRe = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// RequestHeaders are static headers a search proxy expects on every request,
// captured from a "Copy as cURL" dump of a working browser request.
type RequestHeaders struct {
	Headers map[string]string
	Cookie  string
}

// LoadRequestHeaders reads a file holding a cURL command and extracts its headers.
func LoadRequestHeaders(path string) (*RequestHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}
	return ParseCurlHeaders(string(content))
}

// ParseCurlHeaders extracts -H and -b values from a cURL command.
//
// A cookie passed with -b wins over a "Cookie:" header.
func ParseCurlHeaders(cmd string) (*RequestHeaders, error) {
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	h := &RequestHeaders{Headers: make(map[string]string)}
	var headerCookie string

	for _, match := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		h.Headers[key] = value
	}

	if m := curlCookieRe.FindStringSubmatch(cmd); m != nil {
		h.Cookie = firstGroup(m)
	}
	if h.Cookie == "" {
		h.Cookie = headerCookie
	}

	if len(h.Headers) == 0 && h.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return h, nil
}

// Apply sets the captured headers on req. A nil receiver is a no-op.
func (h *RequestHeaders) Apply(req *http.Request) {
	if h == nil {
		return
	}
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	if h.Cookie != "" {
		req.Header.Set("Cookie", h.Cookie)
	}
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}
