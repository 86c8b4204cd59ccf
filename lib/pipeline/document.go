package pipeline

import (
	"encoding/json"

	"github.com/ValentinKolb/dMerge/lib/store"
)

// Document is a JSON object with arbitrary top-level keys. Nested values are
// kept as raw JSON - the pipeline only ever works on the top level.
type Document map[string]json.RawMessage

// MergeDocuments combines two documents by a shallow key union: all keys of a
// and b appear in the result, and b's value wins on collision. Nested
// structures are replaced wholesale, never deep-merged.
func MergeDocuments(a, b Document) Document {
	merged := make(Document, len(a)+len(b))
	for key, value := range a {
		merged[key] = value
	}
	for key, value := range b {
		merged[key] = value
	}
	return merged
}

// EncodeDocument serializes a document to the canonical JSON text stored in
// the key-value table (object keys in sorted order, per encoding/json map
// marshalling).
func EncodeDocument(doc Document) ([]byte, error) {
	value, err := json.Marshal(doc)
	if err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to serialize document: %v", err)
	}
	return value, nil
}

// DecodeDocument parses stored JSON text back into a document. A corrupt
// blob is a persistence failure, not an absence.
func DecodeDocument(value []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to deserialize document: %v", err)
	}
	return doc, nil
}
