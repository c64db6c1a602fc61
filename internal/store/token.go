package store

import (
	"encoding/base64"
	"encoding/json"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// Page tokens are opaque to callers: a base64-encoded JSON object carrying
// the result-window offset. decodePageToken(encodePageToken(n)) == n for all
// non-negative n.
type pageToken struct {
	Offset int `json:"offset"`
}

func encodePageToken(offset int) string {
	data, _ := json.Marshal(pageToken{Offset: offset})
	return base64.StdEncoding.EncodeToString(data)
}

// decodePageToken returns the offset a token encodes. An empty token means
// the first page.
func decodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, domain.Errorf(domain.ErrInvalidArgument, "invalid page token %q", token)
	}
	var t pageToken
	if err := json.Unmarshal(data, &t); err != nil {
		return 0, domain.Errorf(domain.ErrInvalidArgument, "invalid page token %q", token)
	}
	if t.Offset < 0 {
		return 0, domain.Errorf(domain.ErrInvalidArgument, "page token offset must not be negative")
	}
	return t.Offset, nil
}
