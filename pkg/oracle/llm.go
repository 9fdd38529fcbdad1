package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LLMClient satisfies Client against any OpenAI-compatible chat completion
// endpoint. Prompts instruct the model to answer with bare JSON; responses
// are validated before a verdict is returned.
type LLMClient struct {
	apiKey    string
	baseURL   string
	modelName string
	http      *http.Client
}

func NewLLMClient(apiKey, baseURL, modelName string, timeout time.Duration) *LLMClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMClient{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelName: modelName,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *LLMClient) AssessQuality(ctx context.Context, record string) (QualityVerdict, error) {
	prompt := fmt.Sprintf(
		"Analyze Australian healthcare record quality. Return only a JSON object with "+
			"quality_score (integer 0-100), completeness (number 0-1), issues (array of strings). "+
			"Record: %s", record)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return QualityVerdict{}, wrap("assess_quality", err)
	}

	var verdict QualityVerdict
	if err := json.Unmarshal(extractJSON(content), &verdict); err != nil {
		return QualityVerdict{}, malformed("assess_quality", err.Error())
	}
	return verdict, nil
}

func (c *LLMClient) PairwiseSimilarity(ctx context.Context, record1, record2 string) (SimilarityVerdict, error) {
	prompt := fmt.Sprintf(
		"Compare these two Australian patient records and determine if they represent the same person. "+
			"Return only a JSON object with similarity_score (number 0-1), is_match (boolean), "+
			"confidence (one of low/medium/high), match_reason (string). "+
			"Patient 1: %s. Patient 2: %s.", record1, record2)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return SimilarityVerdict{}, wrap("pairwise_similarity", err)
	}

	var verdict SimilarityVerdict
	if err := json.Unmarshal(extractJSON(content), &verdict); err != nil {
		return SimilarityVerdict{}, malformed("pairwise_similarity", err.Error())
	}
	return verdict, nil
}

func (c *LLMClient) SamePerson(ctx context.Context, record1, record2 string) (bool, error) {
	prompt := fmt.Sprintf(
		"Are these the same person? Answer only true or false. Patient 1: %s. Patient 2: %s.",
		record1, record2)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return false, wrap("same_person", err)
	}

	switch strings.ToLower(strings.TrimSpace(content)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, malformed("same_person", fmt.Sprintf("expected true/false, got %q", content))
}

func (c *LLMClient) MergeRecords(ctx context.Context, record1, record2 string) (MergeVerdict, error) {
	prompt := fmt.Sprintf(
		"Create the best golden record from these two Australian patient records. "+
			"Choose the most complete and accurate value for each field; use null when neither record has one. "+
			"Return only a JSON object with every patient field plus confidence (number 0-1). "+
			"Patient 1: %s. Patient 2: %s.", record1, record2)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return MergeVerdict{}, wrap("merge_records", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(extractJSON(content), &raw); err != nil {
		return MergeVerdict{}, malformed("merge_records", err.Error())
	}

	verdict := MergeVerdict{Fields: make(map[string]*string, len(raw))}
	for key, value := range raw {
		if key == "confidence" {
			if err := json.Unmarshal(value, &verdict.Confidence); err != nil {
				return MergeVerdict{}, malformed("merge_records", "confidence is not a number")
			}
			continue
		}
		var s *string
		if err := json.Unmarshal(value, &s); err != nil {
			return MergeVerdict{}, malformed("merge_records", fmt.Sprintf("field %s is not a string or null", key))
		}
		verdict.Fields[key] = s
	}
	return verdict, nil
}

func (c *LLMClient) complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.modelName,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("inference endpoint returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences and surrounding prose that
// models sometimes wrap around a JSON answer.
func extractJSON(content string) []byte {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "```"); start >= 0 {
		content = content[start+3:]
		content = strings.TrimPrefix(content, "json")
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}
	content = strings.TrimSpace(content)
	if start := strings.IndexAny(content, "{["); start > 0 {
		content = content[start:]
	}
	return []byte(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
