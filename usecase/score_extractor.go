package usecase

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
)

// ExtractScore locates the sub-scores blob inside payload and returns the
// score stored under name. It is pure and safe for concurrent use.
func ExtractScore(payload entities.AnalysisPayload, name entities.ScoreName) (float64, error) {
	doc, err := decodeResult(payload)
	if err != nil {
		return 0, err
	}
	return lookupScore(doc, name)
}

// ExtractScores extracts every required score. It fails on the first
// missing one, so a ScoreSet is never partially filled.
func ExtractScores(payload entities.AnalysisPayload) (entities.ScoreSet, error) {
	var scores entities.ScoreSet

	doc, err := decodeResult(payload)
	if err != nil {
		return scores, err
	}

	for _, name := range entities.RequiredScores {
		value, err := lookupScore(doc, name)
		if err != nil {
			return entities.ScoreSet{}, err
		}
		if err := scores.Set(name, value); err != nil {
			return entities.ScoreSet{}, errors.Trace(err)
		}
	}
	return scores, nil
}

func decodeResult(payload entities.AnalysisPayload) (any, error) {
	key, blob, ok := payload.JSONResult()
	if !ok {
		return nil, errors.NotFoundf("result property containing %q", entities.JSONResultMarker)
	}
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil, domain.UpstreamError(errors.New("empty blob"), "decoding %s", key)
	}

	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.UpstreamError(err, "decoding %s", key)
	}
	return doc, nil
}

// lookupScore walks doc breadth first so that a summary score near the top
// wins over per-word scores deeper in the document.
func lookupScore(doc any, name entities.ScoreName) (float64, error) {
	queue := []any{doc}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		switch v := node.(type) {
		case map[string]any:
			if raw, ok := v[string(name)]; ok {
				return toFloat(raw, name)
			}
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				queue = append(queue, v[k])
			}
		case []any:
			queue = append(queue, v...)
		}
	}
	return 0, errors.NotFoundf("score %s", name)
}

func toFloat(raw any, name entities.ScoreName) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, domain.UpstreamError(err, "score %s", name)
		}
		return f, nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, domain.UpstreamError(err, "score %s", name)
		}
		return f, nil
	}
	return 0, domain.UpstreamError(errors.Errorf("unexpected type %T", raw), "score %s", name)
}
