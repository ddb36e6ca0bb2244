package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sentra-io/sentra/internal/validation"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *SentraClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *SentraClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScoreTransaction scores a transaction and narrates the decision.
func (h *Handlers) HandleScoreTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tx, ok := req.GetArguments()["transaction"].(map[string]any)
	if !ok || len(tx) == 0 {
		return mcp.NewToolResultError("transaction is required"), nil
	}

	var hist map[string]any
	if raw := req.GetArguments()["customer_history"]; raw != nil {
		if m, ok := raw.(map[string]any); ok {
			hist = m
		}
	}

	raw, err := h.client.ScoreTransaction(ctx, tx, hist)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to score transaction: %v", err)), nil
	}

	text, err := formatScoreResult(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scoring result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetDecision fetches a recorded decision by ID.
func (h *Handlers) HandleGetDecision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decisionID := validation.SanitizeString(req.GetString("decision_id", ""), 64)
	if decisionID == "" {
		return mcp.NewToolResultError("decision_id is required"), nil
	}

	raw, err := h.client.GetDecision(ctx, decisionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch decision: %v", err)), nil
	}

	var d decisionView
	if err := json.Unmarshal(raw, &d); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decision: %v", err)), nil
	}

	return mcp.NewToolResultText(formatDecision(&d)), nil
}

// HandleListDecisions lists recent decisions, optionally by customer.
func (h *Handlers) HandleListDecisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	customerID := validation.SanitizeString(req.GetString("customer_id", ""), 64)
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListDecisions(ctx, customerID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list decisions: %v", err)), nil
	}

	var resp struct {
		Decisions []decisionView `json:"decisions"`
		Count     int            `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decisions: %v", err)), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No decisions found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d decision(s):\n\n", resp.Count)
	for _, d := range resp.Decisions {
		fmt.Fprintf(&sb, "- %s  %s  score %d (%s)  tx %s", d.ID, d.Action, d.RiskScore, d.RiskBand, d.TransactionID)
		if d.CustomerID != "" {
			fmt.Fprintf(&sb, "  customer %s", d.CustomerID)
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleGetBaseline fetches a customer's spending baseline.
func (h *Handlers) HandleGetBaseline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	customerID := validation.SanitizeString(req.GetString("customer_id", ""), 64)
	if customerID == "" {
		return mcp.NewToolResultError("customer_id is required"), nil
	}

	raw, err := h.client.GetBaseline(ctx, customerID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch baseline: %v", err)), nil
	}

	var b struct {
		CustomerID string  `json:"customer_id"`
		AvgAmount  float64 `json:"cust_avg_amt"`
		StdAmount  float64 `json:"cust_std_amt"`
		TxCount    int     `json:"cust_tx_count"`
		UsualHours []int   `json:"usual_hours"`
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse baseline: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Customer: %s\n", b.CustomerID)
	fmt.Fprintf(&sb, "Average amount: %.2f\n", b.AvgAmount)
	fmt.Fprintf(&sb, "Std deviation: %.2f\n", b.StdAmount)
	fmt.Fprintf(&sb, "Transactions seen: %d\n", b.TxCount)
	if len(b.UsualHours) > 0 {
		fmt.Fprintf(&sb, "Usual hours: %v\n", b.UsualHours)
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleCheckHealth reports platform health.
func (h *Handlers) HandleCheckHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetHealth(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Service is unhealthy: %v", err)), nil
	}

	var resp struct {
		Status string `json:"status"`
		Checks []struct {
			Name    string `json:"name"`
			Healthy bool   `json:"healthy"`
			Detail  string `json:"detail"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse health report: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Status: %s\n", resp.Status)
	for _, c := range resp.Checks {
		state := "healthy"
		if !c.Healthy {
			state = "unhealthy"
		}
		fmt.Fprintf(&sb, "- %s: %s", c.Name, state)
		if c.Detail != "" {
			fmt.Fprintf(&sb, " (%s)", c.Detail)
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// --- Response shapes and formatting ---

type decisionView struct {
	ID                 string   `json:"id"`
	TransactionID      string   `json:"transaction_id"`
	CustomerID         string   `json:"customer_id"`
	Action             string   `json:"action"`
	Confidence         int      `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	RiskScore          int      `json:"risk_score"`
	RiskBand           string   `json:"risk_band"`
	KeyFactors         []string `json:"key_factors"`
	RecommendedActions []string `json:"recommended_actions"`
}

type anomalyFlagView struct {
	Triggered   bool   `json:"is_anomaly"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
}

type scoreResultView struct {
	Decision decisionView `json:"decision"`
	Score    struct {
		Total    int    `json:"total"`
		Band     string `json:"band"`
		Override bool   `json:"extreme_deviation_override"`
	} `json:"risk_score"`
	Anomalies struct {
		Amount         anomalyFlagView `json:"amount"`
		Time           anomalyFlagView `json:"time"`
		Location       anomalyFlagView `json:"location"`
		DigitPattern   anomalyFlagView `json:"digit_pattern"`
		TriggeredCount int             `json:"triggered_count"`
	} `json:"anomalies"`
	Prediction *struct {
		Probability float64 `json:"fraud_probability"`
		Consensus   string  `json:"consensus"`
	} `json:"prediction"`
	Alert *struct {
		Level        string `json:"level"`
		RequiresPage bool   `json:"requires_page"`
	} `json:"alert"`
}

func formatScoreResult(raw json.RawMessage) (string, error) {
	var r scoreResultView
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Decision: %s (confidence %d%%)\n", r.Decision.Action, r.Decision.Confidence)
	fmt.Fprintf(&sb, "Risk score: %d/100 (%s)\n", r.Score.Total, r.Score.Band)
	if r.Score.Override {
		sb.WriteString("Extreme deviation override triggered\n")
	}
	if r.Prediction != nil {
		fmt.Fprintf(&sb, "Fraud probability: %.1f%% (%s)\n", r.Prediction.Probability*100, r.Prediction.Consensus)
	}
	fmt.Fprintf(&sb, "Decision ID: %s\n", r.Decision.ID)

	flags := []struct {
		name string
		flag anomalyFlagView
	}{
		{"amount", r.Anomalies.Amount},
		{"time", r.Anomalies.Time},
		{"location", r.Anomalies.Location},
		{"digit pattern", r.Anomalies.DigitPattern},
	}
	if r.Anomalies.TriggeredCount > 0 {
		sb.WriteString("\nAnomalies:\n")
		for _, f := range flags {
			if f.flag.Triggered {
				fmt.Fprintf(&sb, "- [%s] %s: %s\n", f.flag.Severity, f.name, f.flag.Explanation)
			}
		}
	}

	if len(r.Decision.KeyFactors) > 0 {
		sb.WriteString("\nKey factors:\n")
		for _, kf := range r.Decision.KeyFactors {
			fmt.Fprintf(&sb, "- %s\n", kf)
		}
	}

	if r.Alert != nil {
		fmt.Fprintf(&sb, "\nAlert raised: %s", r.Alert.Level)
		if r.Alert.RequiresPage {
			sb.WriteString(" (pages on-call)")
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func formatDecision(d *decisionView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Decision %s\n", d.ID)
	fmt.Fprintf(&sb, "Transaction: %s\n", d.TransactionID)
	if d.CustomerID != "" {
		fmt.Fprintf(&sb, "Customer: %s\n", d.CustomerID)
	}
	fmt.Fprintf(&sb, "Action: %s (confidence %d%%)\n", d.Action, d.Confidence)
	fmt.Fprintf(&sb, "Risk score: %d/100 (%s)\n", d.RiskScore, d.RiskBand)
	fmt.Fprintf(&sb, "Reasoning: %s\n", d.Reasoning)

	if len(d.KeyFactors) > 0 {
		sb.WriteString("\nKey factors:\n")
		for _, kf := range d.KeyFactors {
			fmt.Fprintf(&sb, "- %s\n", kf)
		}
	}
	if len(d.RecommendedActions) > 0 {
		sb.WriteString("\nRecommended actions:\n")
		for _, ra := range d.RecommendedActions {
			fmt.Fprintf(&sb, "- %s\n", ra)
		}
	}

	return sb.String()
}

// formatJSON pretty-prints raw JSON for display.
func formatJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
