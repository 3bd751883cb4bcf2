package model

// StoryStack rappresenta una storia persistita (il "mazzo" di card)
type StoryStack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FirstCardID string `json:"first_card_id,omitempty"`
}

// StoryCard rappresenta una card persistita (UUID stabile)
type StoryCard struct {
	ID               string `json:"id"`
	StackID          string `json:"stack_id"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	Speaker          string `json:"speaker,omitempty"`
	SpeakerType      string `json:"speaker_type,omitempty"`
	ImagePrompt      string `json:"image_prompt,omitempty"`
	ImageDescription string `json:"image_description,omitempty"`
	Message          string `json:"message,omitempty"`
	IsStart          bool   `json:"is_start"`
	OrderIndex       int    `json:"order_index"`
}

// StoryChoice rappresenta una scelta persistita tra due card
type StoryChoice struct {
	ID           string `json:"id"`
	StoryCardID  string `json:"story_card_id"`
	TargetCardID string `json:"target_card_id"`
	Label        string `json:"label"`
	OrderIndex   int    `json:"order_index"`
}
