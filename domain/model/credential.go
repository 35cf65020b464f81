package model

import "time"

type CredentialPurpose string

const (
	PurposeAIProviderKey      CredentialPurpose = "ai-provider-key"
	PurposeOAuthAppCredential CredentialPurpose = "oauth-app-credential"
	PurposeOAuthUserToken     CredentialPurpose = "oauth-user-token"
)

// Credential is an encrypted secret. Plaintext never leaves the vault boundary.
type Credential struct {
	ID                 string            `json:"id"`
	OwnerID            string            `json:"owner_id"`
	Purpose            CredentialPurpose `json:"purpose"`
	PlatformOrProvider string            `json:"platform_or_provider"`
	Ciphertext         []byte            `json:"-"`
	CreatedAt          time.Time         `json:"created_at"`
	RotatedAt          *time.Time        `json:"rotated_at,omitempty"`
}

// AIKey is a decrypted AI provider key, held only for the duration of a job.
type AIKey struct {
	Provider string
	APIKey   string
}

// AppCredentialSetup records the capability to start an OAuth flow for a platform.
type AppCredentialSetup struct {
	OwnerID         string    `json:"owner_id"`
	Platform        string    `json:"platform"`
	ClientIDRef     string    `json:"-"`
	ClientSecretRef string    `json:"-"`
	RedirectURI     string    `json:"redirect_uri"`
	Validated       bool      `json:"validated"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SetupInput is the user-supplied app registration for a platform.
type SetupInput struct {
	ClientID     string `json:"client_id" validate:"required,max=512"`
	ClientSecret string `json:"client_secret" validate:"required,max=1024"`
	RedirectURI  string `json:"redirect_uri" validate:"required,url"`
}

// AppCredentials are decrypted client credentials used to drive an OAuth flow.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}
