package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// BlobVersion is the schema version written by Encode.
const BlobVersion = 1

var (
	// ErrUnreadable marks a blob that could not be decoded at all.
	ErrUnreadable = errors.New("cart blob unreadable")
	// ErrUnsupportedVersion marks a blob written by an unknown schema.
	ErrUnsupportedVersion = errors.New("cart blob version unsupported")

	itemValidator = validator.New()
)

type blob struct {
	Version int               `json:"version"`
	Items   []json.RawMessage `json:"items"`
}

type encodedBlob struct {
	Version int        `json:"version"`
	Items   []LineItem `json:"items"`
}

// Encode serializes items as a versioned blob.
func Encode(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(encodedBlob{Version: BlobVersion, Items: items})
}

// DecodeResult describes what Decode recovered from a blob.
type DecodeResult struct {
	Items   []LineItem
	Version int
	Dropped int
}

// Decode parses a stored blob. Empty input is an empty cart. A bare JSON array
// is accepted as the legacy unversioned layout. Entries that fail validation are
// dropped and counted. When the blob as a whole cannot be used the result is an
// empty cart together with an error wrapping ErrUnreadable or ErrUnsupportedVersion.
func Decode(data []byte) (DecodeResult, error) {
	res := DecodeResult{Items: []LineItem{}, Version: BlobVersion}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return res, nil
	}

	var raw []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return res, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		res.Version = 0
	case '{':
		var b blob
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return res, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if b.Version != BlobVersion {
			return res, fmt.Errorf("%w: %d", ErrUnsupportedVersion, b.Version)
		}
		raw = b.Items
	default:
		return res, fmt.Errorf("%w: unexpected leading byte %q", ErrUnreadable, trimmed[0])
	}

	for _, entry := range raw {
		item, ok := decodeItem(entry)
		if !ok {
			res.Dropped++
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func decodeItem(entry json.RawMessage) (LineItem, bool) {
	var item LineItem
	if err := json.Unmarshal(entry, &item); err != nil {
		return LineItem{}, false
	}
	if err := itemValidator.Struct(item); err != nil {
		return LineItem{}, false
	}
	return item, true
}
