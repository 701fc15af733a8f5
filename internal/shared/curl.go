// Utilities for parsing cURL commands.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// MusicOrigin is the origin YouTube Music requests are sent from.
const MusicOrigin = "https://music.youtube.com"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CurlHeaders represents parsed headers and cookies from a cURL command.
type CurlHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(filepath string) (*CurlHeaders, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers.
func ParseCurlCommand(data []byte) (*CurlHeaders, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var cookie string

	headerRegex := regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	matches := headerRegex.FindAllStringSubmatch(curlCmd, -1)

	for _, match := range matches {
		var headerLine string
		if match[1] != "" {
			headerLine = match[1]
		} else {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if strings.ToLower(key) != "cookie" {
				headers[key] = value
			}
		}
	}

	cookieRegex := regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	cookieMatches := cookieRegex.FindStringSubmatch(curlCmd)
	if len(cookieMatches) > 1 {
		if cookieMatches[1] != "" {
			cookie = cookieMatches[1]
		} else {
			cookie = cookieMatches[2]
		}
	}

	if cookie == "" {
		for _, match := range matches {
			var headerLine string
			if match[1] != "" {
				headerLine = match[1]
			} else {
				headerLine = match[2]
			}

			if strings.HasPrefix(strings.ToLower(headerLine), "cookie:") {
				parts := strings.SplitN(headerLine, ":", 2)
				if len(parts) == 2 {
					cookie = strings.TrimSpace(parts[1])
				}
				break
			}
		}
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("no headers found in curl command")
	}

	return &CurlHeaders{
		Headers: headers,
		Cookie:  cookie,
	}, nil
}

// ToBrowserHeaders converts parsed headers to the browser.json header map.
//
// Lookups are case-insensitive. Missing Accept, Accept-Language, Content-Type
// and X-Goog-AuthUser values are filled with browser defaults.
func (c *CurlHeaders) ToBrowserHeaders() map[string]string {
	get := func(name, fallback string) string {
		for key, value := range c.Headers {
			if strings.EqualFold(key, name) && value != "" {
				return value
			}
		}
		return fallback
	}

	out := map[string]string{
		"User-Agent":      get("User-Agent", defaultUserAgent),
		"Accept":          get("Accept", "*/*"),
		"Accept-Language": get("Accept-Language", "en-US,en;q=0.9"),
		"Content-Type":    get("Content-Type", "application/json"),
		"X-Goog-AuthUser": get("X-Goog-AuthUser", "0"),
		"x-origin":        MusicOrigin,
	}
	if c.Cookie != "" {
		out["Cookie"] = c.Cookie
	}
	if auth := get("Authorization", ""); auth != "" {
		out["Authorization"] = auth
	}
	return out
}

// WriteBrowserFile writes the browser.json header map to path.
func (c *CurlHeaders) WriteBrowserFile(path string) error {
	if c.Cookie == "" {
		return fmt.Errorf("%w: curl command carries no cookie", ErrMissingCredentials)
	}

	data, err := json.MarshalIndent(c.ToBrowserHeaders(), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode browser headers: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
