package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// ResultPropertiesKey is the payload field holding provider result properties.
	ResultPropertiesKey = "result_properties"

	// JSONResultMarker is the substring identifying the sub-scores blob key.
	// Providers prefix the key unpredictably so only the marker is stable.
	JSONResultMarker = "JsonResult"
)

// AnalysisPayload is the raw result of a speech analysis provider
type AnalysisPayload map[string]any

// NewAnalysisPayload wraps a provider JSON blob under the given property key
func NewAnalysisPayload(propertyKey string, blob []byte) AnalysisPayload {
	return AnalysisPayload{
		ResultPropertiesKey: map[string]any{
			propertyKey: string(blob),
		},
	}
}

// ResultProperties returns the result_properties mapping, if present.
func (p AnalysisPayload) ResultProperties() (map[string]any, bool) {
	raw, ok := p[ResultPropertiesKey]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case AnalysisPayload:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// JSONResult scans result_properties keys in sorted order and returns the
// first key containing JSONResultMarker together with its blob.
func (p AnalysisPayload) JSONResult() (key string, blob []byte, ok bool) {
	props, ok := p.ResultProperties()
	if !ok {
		return "", nil, false
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.Contains(k, JSONResultMarker) {
			continue
		}
		blob, err := blobBytes(props[k])
		if err != nil {
			// A matching key with an unusable value is still the match;
			// the caller decides how to report it.
			return k, nil, true
		}
		return k, blob, true
	}
	return "", nil, false
}

func blobBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case map[string]any, []any:
		return json.Marshal(b)
	case nil:
		return nil, fmt.Errorf("empty result blob")
	}
	return nil, fmt.Errorf("unsupported result blob type %T", v)
}
