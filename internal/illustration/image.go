package illustration

import (
	"encoding/base64"
	"errors"

	"story-canvas-ai-bot/internal/gemini"
)

// ErrNoImage reports a generation reply that arrived fine but carried no
// usable image part.
var ErrNoImage = errors.New("no image in model response")

// ExtractImage scans the reply parts in order and returns the decoded
// bytes and MIME type of the first part carrying inline data. Parts whose
// inline data is missing, empty, or undecodable are skipped.
func ExtractImage(resp gemini.Response) ([]byte, string, error) {
	for _, p := range resp.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" || p.InlineData.MimeType == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil || len(data) == 0 {
			continue
		}
		return data, p.InlineData.MimeType, nil
	}
	return nil, "", ErrNoImage
}
