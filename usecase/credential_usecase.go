package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"
)

// ICredentialUsecase is the only path between plaintext secrets and their encrypted rows.
type ICredentialUsecase interface {
	SaveAIKey(ctx context.Context, ownerID, provider, apiKey string) error
	ResolveAIKey(ctx context.Context, ownerID string) (*model.AIKey, error)
	SaveSetup(ctx context.Context, ownerID, platform string, in model.SetupInput) (*model.AppCredentialSetup, error)
	GetSetup(ctx context.Context, ownerID, platform string) (*model.AppCredentialSetup, error)
	DeleteSetup(ctx context.Context, ownerID, platform string) error
	LoadAppCredentials(ctx context.Context, ownerID, platform string) (*model.AppCredentials, error)
	StoreTokenMaterial(ctx context.Context, ownerID, platform string, m model.TokenMaterial) (accessRef, secondaryRef string, err error)
	LoadTokenMaterial(ctx context.Context, conn *model.OAuthConnection) (model.TokenMaterial, error)
}

type credentialUsecase struct {
	vault       repository.IVault
	credentials repository.ICredential
	setups      repository.IAppCredentialSetup
	platforms   map[string]struct{}
	now         func() time.Time
}

func NewCredentialUsecase(vault repository.IVault, credentials repository.ICredential, setups repository.IAppCredentialSetup, platforms []string) ICredentialUsecase {
	return &credentialUsecase{
		vault:       vault,
		credentials: credentials,
		setups:      setups,
		platforms:   platformSet(platforms),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type aiKeyInput struct {
	Provider string `validate:"required,oneof=openai anthropic openai-compatible"`
	APIKey   string `validate:"required,max=4096"`
}

// SaveAIKey rotates the owner's key for the provider in place, or stores a new one.
func (u *credentialUsecase) SaveAIKey(ctx context.Context, ownerID, provider, apiKey string) error {
	in := aiKeyInput{Provider: strings.ToLower(strings.TrimSpace(provider)), APIKey: strings.TrimSpace(apiKey)}
	if err := validateStruct(in); err != nil {
		return err
	}
	existing, err := u.credentials.FindLatest(ctx, ownerID, model.PurposeAIProviderKey, in.Provider)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	if existing != nil {
		return u.rotate(ctx, existing.ID, in.APIKey)
	}
	_, err = u.insert(ctx, ownerID, model.PurposeAIProviderKey, in.Provider, in.APIKey)
	return err
}

func (u *credentialUsecase) ResolveAIKey(ctx context.Context, ownerID string) (*model.AIKey, error) {
	cred, err := u.credentials.FindLatest(ctx, ownerID, model.PurposeAIProviderKey, "")
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: no AI provider key stored", model.ErrCredentialsNotConfigured)
	}
	if err != nil {
		return nil, err
	}
	plain, err := u.open(cred)
	if err != nil {
		return nil, err
	}
	return &model.AIKey{Provider: cred.PlatformOrProvider, APIKey: plain}, nil
}

func (u *credentialUsecase) SaveSetup(ctx context.Context, ownerID, platform string, in model.SetupInput) (*model.AppCredentialSetup, error) {
	platform, err := u.platform(platform)
	if err != nil {
		return nil, err
	}
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.ClientSecret = strings.TrimSpace(in.ClientSecret)
	in.RedirectURI = strings.TrimSpace(in.RedirectURI)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := u.now()
	setup, err := u.setups.Get(ctx, ownerID, platform)
	switch {
	case errors.Is(err, model.ErrNotFound):
		setup = &model.AppCredentialSetup{OwnerID: ownerID, Platform: platform, CreatedAt: now}
		if setup.ClientIDRef, err = u.insert(ctx, ownerID, model.PurposeOAuthAppCredential, platform, in.ClientID); err != nil {
			return nil, err
		}
		if setup.ClientSecretRef, err = u.insert(ctx, ownerID, model.PurposeOAuthAppCredential, platform, in.ClientSecret); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := u.rotate(ctx, setup.ClientIDRef, in.ClientID); err != nil {
			return nil, err
		}
		if err := u.rotate(ctx, setup.ClientSecretRef, in.ClientSecret); err != nil {
			return nil, err
		}
	}
	setup.RedirectURI = in.RedirectURI
	setup.Validated = true
	setup.UpdatedAt = now
	if err := u.setups.Upsert(ctx, setup); err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", platform).Error("Error while saving app credential setup")
		return nil, err
	}
	return setup, nil
}

func (u *credentialUsecase) GetSetup(ctx context.Context, ownerID, platform string) (*model.AppCredentialSetup, error) {
	platform, err := u.platform(platform)
	if err != nil {
		return nil, err
	}
	return u.setups.Get(ctx, ownerID, platform)
}

// DeleteSetup removes the setup row only. Existing connections keep working until they expire.
func (u *credentialUsecase) DeleteSetup(ctx context.Context, ownerID, platform string) error {
	platform, err := u.platform(platform)
	if err != nil {
		return err
	}
	return u.setups.Delete(ctx, ownerID, platform)
}

func (u *credentialUsecase) LoadAppCredentials(ctx context.Context, ownerID, platform string) (*model.AppCredentials, error) {
	setup, err := u.setups.Get(ctx, ownerID, platform)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !setup.Validated) {
		return nil, fmt.Errorf("%w: no app credentials for %s", model.ErrCredentialsNotConfigured, platform)
	}
	if err != nil {
		return nil, err
	}
	clientID, err := u.openRef(ctx, setup.ClientIDRef)
	if err != nil {
		return nil, err
	}
	clientSecret, err := u.openRef(ctx, setup.ClientSecretRef)
	if err != nil {
		return nil, err
	}
	return &model.AppCredentials{ClientID: clientID, ClientSecret: clientSecret, RedirectURI: setup.RedirectURI}, nil
}

// StoreTokenMaterial seals both token slots. The secondary ref is empty when there is nothing to store.
func (u *credentialUsecase) StoreTokenMaterial(ctx context.Context, ownerID, platform string, m model.TokenMaterial) (string, string, error) {
	primary, secondary, _ := model.SplitTokenMaterial(m)
	if primary == "" {
		return "", "", fmt.Errorf("%w: empty access token", model.ErrInvalidInput)
	}
	accessRef, err := u.insert(ctx, ownerID, model.PurposeOAuthUserToken, platform, primary)
	if err != nil {
		return "", "", err
	}
	if secondary == "" {
		return accessRef, "", nil
	}
	secondaryRef, err := u.insert(ctx, ownerID, model.PurposeOAuthUserToken, platform, secondary)
	if err != nil {
		return "", "", err
	}
	return accessRef, secondaryRef, nil
}

func (u *credentialUsecase) LoadTokenMaterial(ctx context.Context, conn *model.OAuthConnection) (model.TokenMaterial, error) {
	primary, err := u.openRef(ctx, conn.AccessTokenRef)
	if err != nil {
		return nil, err
	}
	var secondary string
	if conn.SecondaryTokenRef != "" {
		if secondary, err = u.openRef(ctx, conn.SecondaryTokenRef); err != nil {
			return nil, err
		}
	}
	return model.JoinTokenMaterial(conn.ProtocolVersion, primary, secondary, conn.ExpiresAt)
}

func (u *credentialUsecase) platform(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if _, ok := u.platforms[p]; !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, p)
	}
	return p, nil
}

func (u *credentialUsecase) insert(ctx context.Context, ownerID string, purpose model.CredentialPurpose, platformOrProvider, plaintext string) (string, error) {
	sealed, err := u.vault.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	cred := &model.Credential{
		OwnerID:            ownerID,
		Purpose:            purpose,
		PlatformOrProvider: platformOrProvider,
		Ciphertext:         sealed,
		CreatedAt:          u.now(),
	}
	if err := u.credentials.Insert(ctx, cred); err != nil {
		logger.GetLogger().WithField("error", err).WithField("purpose", purpose).Error("Error while storing credential")
		return "", err
	}
	return cred.ID, nil
}

func (u *credentialUsecase) rotate(ctx context.Context, id, plaintext string) error {
	sealed, err := u.vault.Encrypt([]byte(plaintext))
	if err != nil {
		return err
	}
	return u.credentials.Rotate(ctx, id, sealed, u.now())
}

func (u *credentialUsecase) openRef(ctx context.Context, id string) (string, error) {
	cred, err := u.credentials.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.open(cred)
}

func (u *credentialUsecase) open(cred *model.Credential) (string, error) {
	plain, err := u.vault.Decrypt(cred.Ciphertext)
	if err != nil {
		logger.GetLogger().WithField("credential_id", cred.ID).WithField("purpose", cred.Purpose).Error("Stored credential failed to decrypt")
		return "", err
	}
	return string(plain), nil
}
