// internal/places/gemini.go
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const geminiModelURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-lite:generateContent"

// travelFlights asks the generative model for flight suggestions to the
// named place. The response is opaque JSON; anything malformed or any
// transport failure degrades to nil.
func (c *Client) travelFlights(ctx context.Context, name string) []interface{} {
	if c.geminiKey == "" {
		return nil
	}

	prompt := fmt.Sprintf(`Provide travel information for %s.
I need a structured JSON response with one key: "flights", a list of 5 items.
Assume a flight from a major nearby airport to %s. Include airline, estimated
price for an economy ticket, and flight duration.
Respond with only the JSON object, no extra text before or after.`, name, name)

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, geminiModelURL+"?key="+c.geminiKey, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnf("gemini travel info: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("gemini travel info: status %d", resp.StatusCode)
		return nil
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warnf("gemini travel info: decode: %v", err)
		return nil
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil
	}

	text := decoded.Candidates[0].Content.Parts[0].Text
	text = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(text, "```json", ""), "```", ""))

	var parsed struct {
		Flights []interface{} `json:"flights"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		c.logger.Warnf("gemini travel info: unparseable model output: %v", err)
		return nil
	}
	return parsed.Flights
}
