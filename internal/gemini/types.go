package gemini

// Part is one piece of a model reply: text, inline binary data, or both.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob carries base64-encoded bytes together with their MIME type.
type Blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Response is the usable payload of an image generation call: the parts
// of the reply's first candidate, in reply order.
type Response struct {
	Parts []Part
}
