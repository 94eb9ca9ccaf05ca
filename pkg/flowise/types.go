package flowise

import "time"

// Chatflow is a workflow definition as returned by the catalog API.
type Chatflow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	FlowData    string     `json:"flowData"`
	Deployed    *bool      `json:"deployed"`
	IsPublic    *bool      `json:"isPublic"`
	Category    *string    `json:"category"`
	Type        string     `json:"type"`
	CreatedDate *time.Time `json:"createdDate"`
	UpdatedDate *time.Time `json:"updatedDate"`
}

func (c Chatflow) IsDeployed() bool {
	return c.Deployed != nil && *c.Deployed
}

func (c Chatflow) Public() bool {
	return c.IsPublic != nil && *c.IsPublic
}

func (c Chatflow) CategoryName() string {
	if c.Category == nil {
		return ""
	}
	return *c.Category
}

// pagedChatflows.Total is nil when the provider does not report it.
type pagedChatflows struct {
	Data  []Chatflow `json:"data"`
	Total *int       `json:"total"`
}

// Upload is an attachment forwarded with a prediction.
type Upload struct {
	Data string `json:"data"`
	Type string `json:"type"` // "file" | "url"
	Name string `json:"name"`
	Mime string `json:"mime"`
}

// PredictionRequest is the body of POST /api/v1/prediction/{id}.
type PredictionRequest struct {
	Question       string                 `json:"question"`
	Streaming      bool                   `json:"streaming"`
	OverrideConfig map[string]interface{} `json:"overrideConfig,omitempty"`
	Uploads        []Upload               `json:"uploads,omitempty"`
}

// predictionResponse is the non-streaming answer shape.
type predictionResponse struct {
	Text string `json:"text"`
}
