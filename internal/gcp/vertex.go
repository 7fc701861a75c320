package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Translator Model Prompts ---
const TranslatorSystemPrompt = "You are a professional e-commerce catalogue translator. You translate short product texts such as product names, descriptions and category labels. You preserve brand names, model numbers, sizes, units and markup exactly as they appear."
const TranslatorUserPrompt = `Translate the text between the <text> tags from %s to %s.

Follow these rules precisely:
1.  Return ONLY the translated text. Do not add quotes, explanations, notes or the <text> tags.
2.  Keep brand names, SKUs, numbers, units, emoji and HTML tags unchanged.
3.  Keep line breaks where the source has them.
4.  If the text is already in %s, return it unchanged.

<text>%s</text>`

// --- Detector Model Prompts ---
const DetectorSystemPrompt = "You are a language identification tool. You must output your response as a valid JSON array."
const DetectorUserPrompt = `Identify the language of the product texts below. They come from one catalogue column and are usually written in a single language.

Return a JSON array of candidates ordered by descending confidence. Each object must have exactly two keys:
- "language": the ISO 639-1 code, lowercase (e.g. "de").
- "confidence": a number between 0 and 1.

Do not include any text before or after the JSON array.

Texts:
%s`

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	TranslatorModel *genai.GenerativeModel
	DetectorModel   *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the translator model ---
	translatorModel := baseClient.GenerativeModel(modelName)
	translatorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranslatorSystemPrompt)},
	}
	translatorModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	// --- Configure the detector model ---
	detectorModel := baseClient.GenerativeModel(modelName)
	detectorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(DetectorSystemPrompt)},
	}
	detectorModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	// Product copy trips the default filters on terms like "knife" or "lingerie".
	safety := []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	translatorModel.SafetySettings = safety
	detectorModel.SafetySettings = safety

	return &VertexClient{
		TranslatorModel: translatorModel,
		DetectorModel:   detectorModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
