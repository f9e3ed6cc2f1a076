package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// extractJSONBlock returns the outermost {...} span of raw, tolerating code fences and prose
func extractJSONBlock(raw string) string {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		return value
	}
	start := strings.Index(value, "{")
	end := strings.LastIndex(value, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(value[start : end+1])
}

func decodeObject(raw string, v any) error {
	block := extractJSONBlock(raw)
	if block == "" {
		return fmt.Errorf("%w: no JSON object in reply", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// optional normalizes the many ways a model says "nothing"
func optional(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	switch strings.ToLower(v) {
	case "", "none", "null", "nil", "n/a":
		return ""
	}
	return v
}

func parseClaims(raw string) (*ExtractResponse, error) {
	// Bare arrays are accepted as well as {"claims": [...]}
	trimmed := strings.TrimSpace(raw)
	if start, end := strings.Index(trimmed, "["), strings.LastIndex(trimmed, "]"); start == 0 && end > start {
		var claims []string
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &claims); err == nil {
			return &ExtractResponse{Claims: claims}, nil
		}
	}

	var out struct {
		Claims []string `json:"claims"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return nil, err
	}
	return &ExtractResponse{Claims: out.Claims}, nil
}

func parseJudge(raw string) (*JudgeResponse, error) {
	var out struct {
		Reasoning  string  `json:"reasoning"`
		Verdict    *string `json:"verdict"`
		NextSearch *string `json:"next_search"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return nil, err
	}

	resp := &JudgeResponse{
		Reasoning:  strings.TrimSpace(out.Reasoning),
		NextSearch: optional(out.NextSearch),
	}
	if v := optional(out.Verdict); v != "" {
		verdict, ok := model.ParseVerdict(v)
		if !ok {
			return nil, fmt.Errorf("%w: unknown verdict %q", ErrMalformedOutput, v)
		}
		resp.Verdict = verdict
	}
	return resp, nil
}

func parseSelection(raw string) (*SelectPageResponse, error) {
	var out struct {
		Reasoning   string  `json:"reasoning"`
		SelectedURL *string `json:"selected_url"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return nil, err
	}
	return &SelectPageResponse{
		Reasoning:   strings.TrimSpace(out.Reasoning),
		SelectedURL: optional(out.SelectedURL),
	}, nil
}

func parseSummary(raw string) (*SummarizeResponse, error) {
	var out struct {
		Evidence string `json:"relevant_evidence"`
		Stance   string `json:"evidence_stance"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return nil, err
	}
	return &SummarizeResponse{
		Evidence: strings.TrimSpace(out.Evidence),
		Stance:   model.ParseStance(out.Stance),
	}, nil
}

func parseAggregate(raw string) (*AggregateResponse, error) {
	var out struct {
		Reasoning      string `json:"reasoning"`
		OverallVerdict string `json:"overall_verdict"`
		Confidence     any    `json:"confidence"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return nil, err
	}

	verdict, _ := model.ParseOverallVerdict(out.OverallVerdict)
	return &AggregateResponse{
		Reasoning:      strings.TrimSpace(out.Reasoning),
		OverallVerdict: verdict,
		Confidence:     parseConfidence(out.Confidence),
	}, nil
}

func parseBaseline(raw string) (*BaselineResponse, error) {
	var out struct {
		Reasoning string `json:"reasoning"`
		Verdict   string `json:"verdict"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return nil, err
	}

	var verdict model.OverallVerdict
	switch strings.Join(strings.Fields(strings.ToUpper(strings.ReplaceAll(out.Verdict, "_", " "))), "_") {
	case "SUPPORTED", "TRUE":
		verdict = model.OverallSupported
	case "REFUTED", "FALSE":
		verdict = model.OverallContainsRefuted
	case "NOT_ENOUGH_INFO", "NOT_SUPPORTED", "UNKNOWN":
		verdict = model.OverallContainsUnsupported
	default:
		parsed, ok := model.ParseOverallVerdict(out.Verdict)
		if !ok {
			return nil, fmt.Errorf("%w: unknown baseline verdict %q", ErrMalformedOutput, out.Verdict)
		}
		verdict = parsed
	}
	return &BaselineResponse{Reasoning: strings.TrimSpace(out.Reasoning), Verdict: verdict}, nil
}

// parseConfidence accepts numbers, numeric strings and percentages. Unparseable values are 0.
func parseConfidence(v any) float64 {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		s := strings.TrimSpace(c)
		percent := strings.HasSuffix(s, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0
		}
		f = parsed
		if percent {
			f /= 100
		}
	default:
		return 0
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	return f
}
