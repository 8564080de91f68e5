package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RunAgent answers an admin's question about the shop by letting the model
// call read-only tools over inventory and sales.
func RunAgent(userMessage string, apiKey string) (string, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")

	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are a POS back-office assistant.

	RULES:
	1. INVENTORY: For any question about a product's PRICE, STOCK or DETAILS,
	   call 'check_inventory' and read the JSON to answer. Do not guess.
	2. SALES: For revenue or order-count questions, call 'get_sales_report'
	   with a date range.
	3. RESTOCKING: For "what is running low" questions, call 'low_stock'.

	USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "Get the full inventory list. Use this to find ANY product details like ID, Name, Price, or Stock.",
				},
				{
					Name:        "get_sales_report",
					Description: "Get total sales revenue and order count for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
				{
					Name:        "low_stock",
					Description: "List products whose stock is at or below a threshold.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"threshold": {Type: genai.TypeInteger, Description: "Stock threshold"},
						},
						Required: []string{"threshold"},
					},
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			switch funcCall.Name {
			case "check_inventory":
				return executeCheckInventory(ctx, session)
			case "get_sales_report":
				return executeSalesReport(ctx, session, funcCall)
			case "low_stock":
				return executeLowStock(ctx, session, funcCall)
			}
		}
	}

	return printResponse(resp), nil
}

func executeCheckInventory(ctx context.Context, session *genai.ChatSession) (string, error) {
	var products []models.Product
	database.DB.Find(&products)

	type SimpleProduct struct {
		ID    uint    `json:"id"`
		Name  string  `json:"name"`
		Stock int     `json:"stock"`
		Price float64 `json:"price"`
	}
	var simpleList []SimpleProduct
	for _, p := range products {
		simpleList = append(simpleList, SimpleProduct{
			ID:    p.ID,
			Name:  p.Name,
			Stock: p.Stock,
			Price: p.Price,
		})
	}

	jsonBytes, _ := json.Marshal(simpleList)

	toolResp := genai.FunctionResponse{
		Name:     "check_inventory",
		Response: map[string]interface{}{"inventory": string(jsonBytes)},
	}

	finalResp, err := session.SendMessage(ctx, toolResp)
	if err != nil {
		return "", err
	}
	return printResponse(finalResp), nil
}

func executeSalesReport(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) (string, error) {
	args := funcCall.Args
	startStr, _ := args["start_date"].(string)
	endStr, _ := args["end_date"].(string)

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return "", fmt.Errorf("bad start_date from model: %q", startStr)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return "", fmt.Errorf("bad end_date from model: %q", endStr)
	}
	// Make the range inclusive of the end day
	end = end.Add(24*time.Hour - time.Second)

	report, err := database.GetSalesReport(start, end)
	if err != nil {
		return "", err
	}

	toolResp := genai.FunctionResponse{
		Name: "get_sales_report",
		Response: map[string]interface{}{
			"total_revenue": report.TotalRevenue,
			"total_orders":  report.TotalCount,
		},
	}

	finalResp, err := session.SendMessage(ctx, toolResp)
	if err != nil {
		return "", err
	}
	return printResponse(finalResp), nil
}

func executeLowStock(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) (string, error) {
	threshold := 5
	if raw, ok := funcCall.Args["threshold"].(float64); ok {
		threshold = int(raw)
	}

	rows, err := database.GetLowStock(threshold)
	if err != nil {
		return "", err
	}

	jsonBytes, _ := json.Marshal(rows)

	toolResp := genai.FunctionResponse{
		Name:     "low_stock",
		Response: map[string]interface{}{"products": string(jsonBytes)},
	}

	finalResp, err := session.SendMessage(ctx, toolResp)
	if err != nil {
		return "", err
	}
	return printResponse(finalResp), nil
}

func printResponse(resp *genai.GenerateContentResponse) string {
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
	}
	if out == "" {
		return "I could not produce an answer for that."
	}
	return out
}
