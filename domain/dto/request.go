package dto

type SaveAIKeyRequest struct {
	Provider string `json:"provider" binding:"required,oneof=openai anthropic openai-compatible"`
	APIKey   string `json:"api_key" binding:"required"`
}

type SaveSetupRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
	RedirectURI  string `json:"redirect_uri" binding:"required"`
}

type SubmitGenerationRequest struct {
	ArticleIDs []string `json:"article_ids" binding:"required,min=1"`
	Platforms  []string `json:"platforms" binding:"required,min=1"`
}

type PublishRequest struct {
	Platforms []string `json:"platforms" binding:"required,min=1"`
}

type SubmitGenerationResponse struct {
	JobID string `json:"job_id"`
}
