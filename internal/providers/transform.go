package providers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// maxErrorBody bounds how much of an error response is kept in error messages.
const maxErrorBody = 512

// BuildClaudeVisionBody builds an Anthropic Messages request body for cloud
// hosts (Bedrock, Vertex AI) that take the model in the URL and the
// anthropic_version in the body.
func BuildClaudeVisionBody(image Image, prompt, anthropicVersion string, maxTokens int) ([]byte, error) {
	body := []byte(`{}`)
	steps := []struct {
		value any
		path  string
	}{
		{path: "anthropic_version", value: anthropicVersion},
		{path: "max_tokens", value: maxTokens},
		{path: "messages.0.role", value: "user"},
		{path: "messages.0.content.0.type", value: "image"},
		{path: "messages.0.content.0.source.type", value: "base64"},
		{path: "messages.0.content.0.source.media_type", value: image.MIMEType},
		{path: "messages.0.content.0.source.data", value: image.Base64()},
		{path: "messages.0.content.1.type", value: "text"},
		{path: "messages.0.content.1.text", value: prompt},
	}

	var err error
	for _, s := range steps {
		body, err = sjson.SetBytes(body, s.path, s.value)
		if err != nil {
			return nil, fmt.Errorf("providers: build request body (%s): %w", s.path, err)
		}
	}
	return body, nil
}

// ExtractClaudeText joins the text blocks of an Anthropic Messages response.
func ExtractClaudeText(body []byte) (string, error) {
	var parts []string
	gjson.GetBytes(body, `content.#(type=="text")#.text`).ForEach(func(_, v gjson.Result) bool {
		parts = append(parts, v.String())
		return true
	})
	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// readResponse drains resp and returns its body, or an ErrUpstreamStatus
// error carrying the status and a prefix of the body.
func readResponse(resp *http.Response) ([]byte, error) {
	defer func() {
		// close errors are not actionable after the body was read
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("providers: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		msg := gjson.Get(snippet, "message").String()
		if msg == "" {
			msg = gjson.Get(snippet, "error.message").String()
		}
		if msg == "" {
			msg = snippet
		}
		return nil, fmt.Errorf("%w: %d: %s", ErrUpstreamStatus, resp.StatusCode, msg)
	}
	return body, nil
}
