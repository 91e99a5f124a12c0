package starter

// Starter is a suggested prompt shown before the user types anything.
type Starter struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// Defaults returns the fixed starter prompts offered on an empty conversation.
func Defaults() []Starter {
	return []Starter{
		{
			Label:   "Can Ava access my CRM?",
			Message: "Can Ava access my CRM?",
		},
		{
			Label:   "Ava, the Top-Rated AI SDR on the market",
			Message: "How can Ava help in automating my SDR workflows in my sales pipelines or my outbound demand generation process?",
		},
		{
			Label:   "Create a Campaign",
			Message: "How can Artisan help in creating a campaign to engage potential leads effectively?",
		},
		{
			Label:   "Generate Sample Email",
			Message: "Explain the 'Generate Sample Email feature and how to use it via the Artisan Platform.",
		},
	}
}
