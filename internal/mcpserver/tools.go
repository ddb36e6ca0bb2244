package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Sentra MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScoreTransaction = mcp.NewTool("score_transaction",
	mcp.WithDescription(
		"Score a card transaction for fraud risk. "+
			"Returns a decision (APPROVE, BLOCK, or MANUAL_REVIEW) with a 0-100 risk score, "+
			"the risk band, triggered anomaly flags, and the model ensemble's fraud probability. "+
			"Pass the customer's spending baseline when you have it; unknown customers are "+
			"scored against neutral defaults."),
	mcp.WithObject("transaction",
		mcp.Required(),
		mcp.Description("The transaction to score. Required fields: amt (positive number), "+
			"trans_date_trans_time (e.g. '2020-12-22 23:13:39'), merchant. "+
			"Optional: transaction_id, customer_id, category, lat, long, merch_lat, merch_long, "+
			"distance_from_home, dob, gender, state, city, zip, job, city_pop.")),
	mcp.WithObject("customer_history",
		mcp.Description("Optional spending baseline: cust_avg_amt, cust_std_amt, cust_tx_count, "+
			"usual_hours (array of 0-23), tx_count_1h, tx_count_24h.")),
)

var ToolGetDecision = mcp.NewTool("get_decision",
	mcp.WithDescription(
		"Look up a previously recorded fraud decision by its ID. "+
			"Returns the action, risk score, reasoning, and recommended follow-up actions."),
	mcp.WithString("decision_id",
		mcp.Required(),
		mcp.Description("The decision ID from a previous score_transaction result (e.g. 'dec_a1b2...')")),
)

var ToolListDecisions = mcp.NewTool("list_decisions",
	mcp.WithDescription(
		"List recent fraud decisions, optionally filtered to one customer. "+
			"Use this to review a customer's decision history or monitor recent activity."),
	mcp.WithString("customer_id",
		mcp.Description("Filter decisions to this customer")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of decisions to return (default 20)")),
)

var ToolGetBaseline = mcp.NewTool("get_customer_baseline",
	mcp.WithDescription(
		"Get the stored spending baseline for a customer: average and standard deviation "+
			"of transaction amounts, transaction count, and usual transaction hours."),
	mcp.WithString("customer_id",
		mcp.Required(),
		mcp.Description("The customer's ID")),
)

var ToolCheckHealth = mcp.NewTool("check_service_health",
	mcp.WithDescription(
		"Check whether the Sentra scoring service is healthy, including whether the "+
			"model artifact bundle is loaded and the database is reachable."),
)
