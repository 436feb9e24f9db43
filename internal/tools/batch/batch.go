package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one item of a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates the results of a batch.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a parameter given as a single string, an array
// of strings, or a JSON-encoded array of strings. Duplicates are dropped,
// keeping the first occurrence.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var items []string
	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				if len(arr) == 0 {
					return nil, fmt.Errorf("%s cannot be empty", paramName)
				}
				items = arr
				break
			}
		}
		items = []string{v}
	case []string:
		items = v
	case []any:
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			items = append(items, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}

	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out, nil
}

// Summarize counts the successes and failures of results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// FormatResults renders results as indented JSON.
func FormatResults(results []Result) (string, error) {
	b, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode batch results: %w", err)
	}
	return string(b), nil
}

// ProcessBatch calls fn for each id in order and collects the results. A
// failing item does not stop the batch; a canceled ctx does, and the
// remaining items are reported with the context error.
func ProcessBatch[T any](ctx context.Context, ids []string, fn func(ctx context.Context, id string) (T, error)) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		v, err := fn(ctx, id)
		if err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		results = append(results, NewSuccessResult(id, v))
	}
	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(id string, v any) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: v,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
