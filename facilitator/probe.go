package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// ProbeVariant is one payload shape to try against the facilitator's
// payment endpoints.
type ProbeVariant struct {
	Name string
	Body map[string]any
}

// ProbeResult records how one endpoint answered one payload variant.
type ProbeResult struct {
	Variant    string         `json:"variant"`
	Endpoint   string         `json:"endpoint"`
	StatusCode int            `json:"status_code"`
	Body       map[string]any `json:"body,omitempty"`
	Text       string         `json:"text,omitempty"`
	Err        string         `json:"error,omitempty"`
}

// DefaultProbeVariants covers the payload shapes facilitators have been
// observed to accept: a bare numeric amount, the same amount as a string,
// an amount with metadata, a token-amount object, and a structured
// typed-data placeholder without a real signature.
func DefaultProbeVariants(fromAddress, tokenAddress string) []ProbeVariant {
	if tokenAddress == "" {
		tokenAddress = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	}

	withMeta := map[string]any{
		"amount":   0.01,
		"currency": "USD",
		"metadata": map[string]any{"memo": "probe"},
	}
	if fromAddress != "" {
		withMeta["from_address"] = fromAddress
	}

	return []ProbeVariant{
		{Name: "simple_number", Body: map[string]any{"amount": 0.01, "currency": "USD"}},
		{Name: "amount_string", Body: map[string]any{"amount": "0.01", "currency": "USD"}},
		{Name: "with_metadata_and_from", Body: withMeta},
		{Name: "token_amount_object", Body: map[string]any{
			"amount": map[string]any{
				"amount": "10000",
				"asset": map[string]any{
					"address":  tokenAddress,
					"decimals": 6,
					"eip712":   map[string]any{"name": "USDC", "version": "2"},
				},
			},
		}},
		{Name: "eip712_placeholder", Body: map[string]any{
			"eip712": map[string]any{
				"domain":  map[string]any{"name": "x402"},
				"message": map[string]any{"amount": "0.01", "currency": "USD"},
			},
		}},
	}
}

// Probe posts every variant to /create_payment and /verify and collects
// per-variant outcomes. Transport errors are recorded, not returned, so a
// partially reachable facilitator still yields a full report.
func (c *Client) Probe(ctx context.Context, variants []ProbeVariant) []ProbeResult {
	if len(variants) == 0 {
		variants = DefaultProbeVariants("", "")
	}

	results := make([]ProbeResult, 0, 2*len(variants))
	for _, endpoint := range []string{"/create_payment", "/verify"} {
		for _, v := range variants {
			results = append(results, c.probeOne(ctx, endpoint, v))
		}
	}
	return results
}

func (c *Client) probeOne(ctx context.Context, endpoint string, v ProbeVariant) ProbeResult {
	out := ProbeResult{Variant: v.Name, Endpoint: endpoint}

	payload, err := json.Marshal(v.Body)
	if err != nil {
		out.Err = err.Error()
		return out
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		out.Err = err.Error()
		return out
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		out.Err = err.Error()
		return out
	}
	defer resp.Body.Close()

	out.StatusCode = resp.StatusCode
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		out.Err = err.Error()
		return out
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		out.Text = string(raw)
		return out
	}
	out.Body = decoded
	return out
}
