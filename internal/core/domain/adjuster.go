package domain

// Adjuster is one roster entry available for claim assignment.
type Adjuster struct {
	Name      string   `json:"name" yaml:"name"`
	Email     string   `json:"email" yaml:"email"`
	Phone     string   `json:"phone" yaml:"phone"`
	Location  string   `json:"location" yaml:"location"`
	Expertise string   `json:"expertise" yaml:"expertise"`
	Keywords  []string `json:"keywords" yaml:"keywords"`
}

// AssistantReply is a canned claims-assistant answer.
type AssistantReply struct {
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions"`
}
