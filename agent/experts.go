package agent

import (
	"context"
	"fmt"

	"github.com/quarry/folio"
	"github.com/quarry/folio/docs"
	"github.com/quarry/folio/renderer"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// newFacilitator builds the orchestrating expert. It owns the conversation
// with the user and delegates to the other experts through function calls.
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and of solving the user's request.

			Learn about each expert's skills from the Tools and ask them questions.
			They are at your service and keep the context of your previous questions.

			The user is here to understand the valuation, factor exposures and risk
			of their portfolio. Devise a plan of questions to ask each expert and
			come up with the best response to the user's request.

			The user will assume you already know their portfolio; check it first
			to learn which tickers they hold.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewStrategist builds the market expert. It grounds its answers with Google
// Search and covers news, companies, funds and market regimes.
func NewStrategist() *Expert {
	return &Expert{
		Name: "Strategist",
		Description: `This is an expert market strategist, aware of financial
		products, institutions and the latest news about companies and funds.
		Ask the Strategist whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert market strategist. You can search and find anything
			related to financial institutions, companies, markets and funds.
			Leverage Google Search to ground your assertions, relate the latest
			news to the user's request.
				`}}},
		},
	}
}

// NewQuant builds the portfolio expert. It reads the user's ledger through
// its function library.
func NewQuant(ledger *folio.Ledger) *Expert {
	lib := []Function{positionsFunc(ledger), transactionsFunc(ledger)}

	return &Expert{
		Name: "Quant",
		Description: `This is the Quant, in charge of the user's portfolio
		ledger. Ask the Quant for the positions held on a given day, the cash
		balance and the transaction history.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a quant in charge of the user's portfolio ledger.
				Use the available tools to extract information about the portfolio:
				  - positions and cash held on a date
				  - the transaction history
				Pardon the approximative language of the other experts and figure
				out what they meant.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

func positionsFunc(ledger *folio.Ledger) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Positions",
			Description: `Positions lists the securities held in the portfolio on a given
			day, with the number of shares, the cost basis and the cash balance.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date": dateSchema(),
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown table of the held positions and the cash balance.",
			},
		},
		Body: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			on, err := parseDate(args)
			if err != nil {
				return errorResponse(id, "Positions", err)
			}
			return &genai.FunctionResponse{
				ID:   id,
				Name: "Positions",
				Response: map[string]any{
					"output": renderer.PositionsMarkdown(ledger, on),
				},
			}
		},
	}
}

func transactionsFunc(ledger *folio.Ledger) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Transactions",
			Description: `Transactions lists the full transaction history of the portfolio in chronological order.`,
			Parameters:  &genai.Schema{Type: genai.TypeObject},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown list of all transactions.",
			},
		},
		Body: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			var txs []folio.Transaction
			for _, tx := range ledger.Transactions() {
				txs = append(txs, tx)
			}
			return &genai.FunctionResponse{
				ID:   id,
				Name: "Transactions",
				Response: map[string]any{
					"output": renderer.Transactions(txs),
				},
			}
		},
	}
}

func dateSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeString,
		Description: `The date on which to report. Today is the default.
		Otherwise it uses a flexible format based on YYYY-MM-DD:

		` + must(docs.GetTopic("dates")),
	}
}

func errorResponse(id, name string, err error) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:       id,
		Name:     name,
		Response: map[string]any{"error": err.Error()},
	}
}

func parseDate(args map[string]any) (folio.Date, error) {
	idate, hasDate := args["date"]
	if !hasDate {
		return folio.Today(), nil
	}
	sdate, ok := idate.(string)
	if !ok {
		return folio.Today(), fmt.Errorf("argument 'date' is not a string but %T", idate)
	}
	on, err := folio.ParseDate(sdate)
	if err != nil {
		return folio.Today(), fmt.Errorf("argument 'date' must be a valid date, got %q:\n\n%s", sdate, must(docs.GetTopic("dates")))
	}
	return on, nil
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
