package types

// NotSpecified is rendered in place of any absent business-context field.
const NotSpecified = "Not specified"

// ExtractionMethod records how the business context was obtained.
type ExtractionMethod string

const (
	ExtractionNone        ExtractionMethod = "none"
	ExtractionAIExtracted ExtractionMethod = "ai_extracted"
	ExtractionManual      ExtractionMethod = "manual"
)

// UserInput holds the fields a founder typed into the onboarding form.
// CategoryFields carries category-specific answers (e.g. "pricingModel",
// "primaryMarket") that only the user can provide.
type UserInput struct {
	CompanyName         string            `json:"companyName,omitempty"`
	Industry            string            `json:"industry,omitempty"`
	BusinessStage       string            `json:"businessStage,omitempty"`
	ValueProposition    string            `json:"valueProposition,omitempty"`
	TargetCustomer      string            `json:"targetCustomer,omitempty"`
	KeyFeatures         []string          `json:"keyFeatures,omitempty"`
	UniqueSellingPoints []string          `json:"uniqueSellingPoints,omitempty"`
	CategoryFields      map[string]string `json:"categoryFields,omitempty"`
}

// WebsiteIntelligence is what the crawler + extractor learned from the
// business website.
type WebsiteIntelligence struct {
	CompanyName         string           `json:"companyName,omitempty"`
	Industry            string           `json:"industry,omitempty"`
	ValueProposition    string           `json:"valueProposition,omitempty"`
	TargetCustomer      string           `json:"targetCustomer,omitempty"`
	KeyFeatures         []string         `json:"keyFeatures,omitempty"`
	UniqueSellingPoints []string         `json:"uniqueSellingPoints,omitempty"`
	ExtractionMethod    ExtractionMethod `json:"extractionMethod,omitempty"`
}

// BusinessContext is the canonical, flattened description of the business.
// Every field is optional; prompt rendering substitutes NotSpecified.
type BusinessContext struct {
	CompanyName         string            `json:"companyName"`
	Industry            string            `json:"industry"`
	BusinessStage       string            `json:"businessStage"`
	ValueProposition    string            `json:"valueProposition"`
	TargetCustomer      string            `json:"targetCustomer"`
	KeyFeatures         []string          `json:"keyFeatures"`
	UniqueSellingPoints []string          `json:"uniqueSellingPoints"`
	CategoryFields      map[string]string `json:"categoryFields,omitempty"`

	HasUserInput           bool             `json:"hasUserInput"`
	HasWebsiteIntelligence bool             `json:"hasWebsiteIntelligence"`
	ExtractionMethod       ExtractionMethod `json:"extractionMethod"`
}

// ContextInput is the wire shape callers use to hand both context sources
// to the pipeline.
type ContextInput struct {
	UserInput           *UserInput           `json:"userInput,omitempty"`
	WebsiteIntelligence *WebsiteIntelligence `json:"websiteIntelligence,omitempty"`
}
