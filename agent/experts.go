package agent

import (
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-pro"

func instruction(s string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: s}}}
}

// creates the facilitator
func newFacilitator(model string, experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: instruction(`
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is here to reduce the taxes on their investments: which lots to sell,
			whether a sale is a wash sale, when it is safe to sell or to buy back, and which
			losses are worth harvesting.

			Devise a plan of questions to ask to each experts and come up with the best response to the user's request.
			Never claim a sale or a purchase was made, you can only simulate them.
			Remind the user that figures are estimates and not tax advice when you recommend a trade.
		`),
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader returns an expert grounded on Google Search, for news and
// security details.
func NewTrader(model string) *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader,
		Very well aware of all the financial products and institutions,
		about the latest news about the different funds or companies and which index a fund tracks.
		Ask the Trader whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: instruction(`
			You are a expert in Trading, you can search and find about anything related to
			financial institutions, companies, markets, funds etc. You Leverage Google Search to
			ground your assertions in a solid truth.
			When asked about replacing a security, prefer funds tracking a different index to
			avoid buying a substantially identical security.
			`),
		},
	}
}

// NewTaxAdvisor returns the expert reading the user's book through the desk
// functions.
func NewTaxAdvisor(model string, desk *Desk) *Expert {
	lib := desk.Functions()
	return &Expert{
		Name: "TaxAdvisor",
		Description: `This is the TaxAdvisor. They know the user's tax lots, accounts and transactions.
		They can simulate sales, check wash sales, tell when it is safe to sell or buy, and scan for tax-loss harvesting opportunities.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: instruction(`
				You are a tax advisor in charge of the user's tax lots.
				You know how to use the Tools to extract relevant information about the user's lots and transactions.
				You are part of a team of experts, yours is everything about the user's book. They might ask
				you questions with approximative language, figure out what they meant.

				Use the available tools to:
				  - list the open lots and their unrealized gains
				  - preview a sale and its wash sale adjustments
				  - find the first date a symbol can be sold at a loss
				  - check whether buying a symbol disallows a recent loss
				  - scan for harvesting opportunities
				  - read the documentation topics
			`),
		},
		Library: NewLibrary(lib),
		Log:     desk.Log,
	}
}
