package repository

import (
	"context"
	"time"

	"newsroom/domain/model"
)

// IVault seals and opens secrets. Decrypt returns *model.DecryptError on any failure.
type IVault interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type ICredential interface {
	Insert(ctx context.Context, c *model.Credential) error
	Get(ctx context.Context, id string) (*model.Credential, error)
	// FindLatest returns the newest credential for the owner and purpose. An empty
	// platformOrProvider matches any.
	FindLatest(ctx context.Context, ownerID string, purpose model.CredentialPurpose, platformOrProvider string) (*model.Credential, error)
	Rotate(ctx context.Context, id string, ciphertext []byte, at time.Time) error
}

type IAppCredentialSetup interface {
	Upsert(ctx context.Context, s *model.AppCredentialSetup) error
	Get(ctx context.Context, ownerID, platform string) (*model.AppCredentialSetup, error)
	Delete(ctx context.Context, ownerID, platform string) error
}
