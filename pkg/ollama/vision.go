package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateWithVision sends a prompt plus one or more images to the current
// model. Image files are read from disk and base64 encoded. With no images
// this degrades to a plain Generate call.
func (c *Client) GenerateWithVision(ctx context.Context, prompt string, imagePaths []string) (string, *InferenceStats, error) {
	if len(imagePaths) == 0 {
		return c.Generate(ctx, prompt)
	}

	encodedImages := make([]string, 0, len(imagePaths))
	for _, path := range imagePaths {
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".webp":
		default:
			return "", nil, fmt.Errorf("unsupported image format: %s (supported: jpg, png, webp)", ext)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read image file %s: %w", path, err)
		}
		encodedImages = append(encodedImages, base64.StdEncoding.EncodeToString(data))
	}

	reqBody := GenerateRequest{
		Model:     c.model,
		Prompt:    prompt,
		Images:    encodedImages,
		Stream:    false,
		Options:   c.options,
		KeepAlive: defaultKeepAlive,
	}

	var genResp GenerateResponse
	if err := c.doJSON(ctx, "/api/generate", reqBody, &genResp); err != nil {
		return "", nil, err
	}

	stats := CalculateStats(&genResp, c.model)
	return genResp.Response, &stats, nil
}

// AnalyzeUI asks the vision model to review a UI screenshot.
func (c *Client) AnalyzeUI(ctx context.Context, screenshotPath string, componentName string) (string, error) {
	prompt := fmt.Sprintf(`Analyze the following UI component: %s.
Please describe:
1. Visual layout and alignment.
2. Color scheme and contrast.
3. Accessibility concerns.
4. Any inconsistencies with standard UI patterns.
5. Suggestions for improvement.`, componentName)

	resp, _, err := c.GenerateWithVision(ctx, prompt, []string{screenshotPath})
	return resp, err
}

// CompareImages asks the vision model to diff a mockup against the
// implemented result.
func (c *Client) CompareImages(ctx context.Context, mockupPath, actualPath string) (string, error) {
	prompt := `Compare these two images.
Image 1 is the design mockup.
Image 2 is the actual implementation.
Identify any visual differences, alignment issues, or missing elements.`

	resp, _, err := c.GenerateWithVision(ctx, prompt, []string{mockupPath, actualPath})
	return resp, err
}
