package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return a wrapped domain.ErrNotFound.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSystemBase is the case study system prompt. It describes the
	// eight-section structure every template shares.
	PromptSystemBase = "system_base"

	// PromptTemplateTechnical is appended for the technical template.
	PromptTemplateTechnical = "template_technical"

	// PromptTemplateMarketing is appended for the marketing template.
	PromptTemplateMarketing = "template_marketing"

	// PromptTemplateProduct is appended for the product template.
	PromptTemplateProduct = "template_product"

	// PromptUserPreamble opens the user prompt ahead of the formatted data.
	PromptUserPreamble = "user_preamble"

	// ProjectPlaceholder in the user preamble is replaced by the project name.
	ProjectPlaceholder = "{project}"
)
