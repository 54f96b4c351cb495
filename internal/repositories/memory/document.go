// Package memory holds map-backed repositories with the same conditional
// update semantics as the MongoDB ones. They back the service tests and
// local runs without a database.
package memory

import (
	"go.mongodb.org/mongo-driver/bson"
)

// applySet merges a $set style update into the BSON form of doc and decodes
// the result into out, so field names match the MongoDB repositories.
func applySet(doc interface{}, set map[string]interface{}, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}

	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for k, v := range set {
		fields[k] = v
	}

	raw, err = bson.Marshal(fields)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}
