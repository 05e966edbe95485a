package aura

import (
	"strings"

	"github.com/spf13/cast"
)

// Record is one decoded aura-cli response, or one element of its data.
type Record map[string]interface{}

// Field returns key as a string, or "" when absent or null.
func (r Record) Field(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// Status returns the record's status field.
func (r Record) Status() string {
	return r.Field("status")
}

// unwrap returns the payload of resp: its "data" value when the key is
// present, otherwise resp itself.
func unwrap(resp Record) (interface{}, bool) {
	data, ok := resp["data"]
	if !ok {
		return map[string]interface{}(resp), false
	}
	return data, true
}

// unwrapOne unwraps resp to a single record. A data list yields its first
// element.
func unwrapOne(resp Record) Record {
	data, _ := unwrap(resp)
	switch v := data.(type) {
	case map[string]interface{}:
		return Record(v)
	case []interface{}:
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				return Record(m)
			}
		}
	}
	return Record{}
}

// unwrapList unwraps resp to a list of records: an object becomes a
// one-element list, missing or null data an empty one.
func unwrapList(resp Record) []Record {
	data, ok := unwrap(resp)
	if !ok || data == nil {
		return []Record{}
	}
	switch v := data.(type) {
	case map[string]interface{}:
		return []Record{Record(v)}
	case []interface{}:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, Record(m))
			}
		}
		return out
	}
	return []Record{}
}

// snapshotID extracts the snapshot id from a create response: snapshot_id or
// id at the top level, then one level under data.
func snapshotID(resp Record) string {
	for _, rec := range []Record{resp, unwrapOne(resp)} {
		for _, key := range []string{"snapshot_id", "id"} {
			if id := rec.Field(key); id != "" {
				return id
			}
		}
	}
	return ""
}
