package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const chatCompletionsURL = "https://api.mistral.ai/v1/chat/completions"

// LLMAnalyzer scores news headlines with an LLM chat-completions API
type LLMAnalyzer struct {
	apiKey string
	model  string
	client *http.Client
	news   *NewsFetcher
}

// NewLLMAnalyzer creates an analyzer. An empty apiKey makes the oracle
// unavailable; the sentiment gate is bypassed in that case.
func NewLLMAnalyzer(apiKey, model string) *LLMAnalyzer {
	if model == "" {
		model = "mistral-small-latest"
	}
	return &LLMAnalyzer{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
		news:   NewNewsFetcher(),
	}
}

// IsAvailable reports whether the analyzer has credentials
func (a *LLMAnalyzer) IsAvailable() bool {
	return a.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze fetches recent headlines and asks the LLM for a sentiment verdict
func (a *LLMAnalyzer) Analyze(ctx context.Context, ticker string) (Score, error) {
	headlines, err := a.news.FetchHeadlines(ctx, ticker)
	if err != nil {
		return Score{}, fmt.Errorf("fetching headlines: %w", err)
	}
	if len(headlines) == 0 {
		return Score{Value: 0, Reason: "No recent news found."}, nil
	}

	content, err := a.complete(ctx, buildPrompt(ticker, headlines))
	if err != nil {
		return Score{}, err
	}

	score, err := parseVerdict(content)
	if err != nil {
		return Score{}, err
	}

	if len(headlines) > 2 {
		headlines = headlines[:2]
	}
	score.Headlines = headlines
	return score, nil
}

func buildPrompt(ticker string, headlines []string) string {
	list, _ := json.MarshalIndent(headlines, "", "  ")
	return fmt.Sprintf(`Analyze the sentiment of the following news headlines for the stock '%s':
%s

Determine if the news is BULLISH, BEARISH, or NEUTRAL.
Return a JSON object with:
- "score": A float between -1.0 (Very Bearish) and 1.0 (Very Bullish).
- "reason": A brief 1-sentence summary of why.

JSON Response Only:`, ticker, list)
}

func (a *LLMAnalyzer) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    a.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", chatCompletionsURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm API error: %s", string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}
	return chatResp.Choices[0].Message.Content, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseVerdict extracts the JSON verdict from a possibly chatty LLM reply
// and clamps the score into [-1, 1]
func parseVerdict(content string) (Score, error) {
	raw := jsonObjectPattern.FindString(content)
	if raw == "" {
		return Score{}, fmt.Errorf("no JSON object in llm response")
	}

	var verdict struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return Score{}, fmt.Errorf("parsing llm verdict: %w", err)
	}
	if verdict.Reason == "" {
		return Score{}, fmt.Errorf("llm verdict missing reason")
	}

	if verdict.Score > 1 {
		verdict.Score = 1
	}
	if verdict.Score < -1 {
		verdict.Score = -1
	}
	return Score{Value: verdict.Score, Reason: verdict.Reason}, nil
}
