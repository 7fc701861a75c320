package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/interlnkd/LibreTranslate/internal/translation"
)

const (
	detectSampleSize  = 25
	detectSampleChars = 300
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// ContentGenerator is the part of *genai.GenerativeModel the translator uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexTranslator is a translation.Service backed by Gemini on Vertex AI.
type VertexTranslator struct {
	translator ContentGenerator
	detector   ContentGenerator
}

var _ translation.Service = (*VertexTranslator)(nil)

// NewVertexTranslator uses the client's translator and detector models.
func NewVertexTranslator(client *VertexClient) *VertexTranslator {
	return &VertexTranslator{translator: client.TranslatorModel, detector: client.DetectorModel}
}

// NewVertexTranslatorWithModels wires arbitrary generators, mainly for tests.
func NewVertexTranslatorWithModels(translator, detector ContentGenerator) *VertexTranslator {
	return &VertexTranslator{translator: translator, detector: detector}
}

func (v *VertexTranslator) TranslateOne(ctx context.Context, text, source, target string) (string, error) {
	src, err := translation.ResolveLanguage(source)
	if err != nil {
		return "", err
	}
	tgt, err := translation.ResolveLanguage(target)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(TranslatorUserPrompt, src.Name, tgt.Name, tgt.Name, text)
	resp, err := v.translator.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	out := extractText(resp)
	if out == "" {
		return "", fmt.Errorf("gemini returned no text for a %d-byte input", len(text))
	}
	if isRefusal(out) && !isRefusal(text) {
		slog.Warn("Gemini response indicates refusal.", "sourceLanguage", src.Code, "targetLanguage", tgt.Code, "response", out)
		return "", fmt.Errorf("gemini response indicates refusal")
	}
	return out, nil
}

func (v *VertexTranslator) DetectLanguages(ctx context.Context, texts []string) ([]translation.Detection, error) {
	sample := detectionSample(texts)
	if len(sample) == 0 {
		return nil, nil
	}

	resp, err := v.detector.GenerateContent(ctx, genai.Text(fmt.Sprintf(DetectorUserPrompt, strings.Join(sample, "\n"))))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return parseDetections(extractText(resp))
}

// IsPathAvailable reports whether both languages are in the registry; the
// model translates between any pair of them directly.
func (v *VertexTranslator) IsPathAvailable(source, target string) bool {
	_, okSrc := translation.LookupLanguage(source)
	_, okTgt := translation.LookupLanguage(target)
	return okSrc && okTgt
}

// detectionSample picks up to detectSampleSize translatable texts, each
// truncated and numbered, for a single detection prompt.
func detectionSample(texts []string) []string {
	var sample []string
	for _, t := range texts {
		if translation.IsNonTranslatable(t) {
			continue
		}
		t = strings.Join(strings.Fields(t), " ")
		if r := []rune(t); len(r) > detectSampleChars {
			t = string(r[:detectSampleChars])
		}
		sample = append(sample, fmt.Sprintf("%d. %s", len(sample)+1, t))
		if len(sample) == detectSampleSize {
			break
		}
	}
	return sample
}

func parseDetections(raw string) ([]translation.Detection, error) {
	var detections []translation.Detection
	if err := json.Unmarshal([]byte(raw), &detections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gemini detection response: %w", err)
	}
	out := detections[:0]
	for _, d := range detections {
		d.Language = strings.ToLower(strings.TrimSpace(d.Language))
		if d.Language == "" {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}

// extractText concatenates the text parts of the first candidate and strips
// code fences the model sometimes wraps around its answer.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	out := strings.TrimSpace(b.String())
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```")
		if nl := strings.IndexByte(out, '\n'); nl >= 0 && !strings.ContainsAny(out[:nl], " \t") {
			out = out[nl+1:]
		}
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}
	return strings.TrimSpace(out)
}

func isRefusal(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
