package repository

import (
	"context"

	"github.com/garnizeh/clipmarket/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Getters return (nil, nil) when the row does not exist.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// EnableTwoFactor stores the secret, flips the flag and replaces the
	// backup-code set.
	EnableTwoFactor(ctx context.Context, userID int64, secret string, backupCodes []string) error
	// DisableTwoFactor clears the secret and all backup codes.
	DisableTwoFactor(ctx context.Context, userID int64) error
	// ConsumeBackupCode deletes one stored code equal to code and reports
	// whether a row was removed.
	ConsumeBackupCode(ctx context.Context, userID int64, code string) (bool, error)
	CountBackupCodes(ctx context.Context, userID int64) (int, error)
}

type CampaignRepo interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) (int64, error)
	GetCampaign(ctx context.Context, id int64) (*models.Campaign, error)
	ListCampaignsByBrand(ctx context.Context, brandID int64) ([]models.Campaign, error)
	ListPublicCampaigns(ctx context.Context) ([]models.Campaign, error)
	ListAllCampaigns(ctx context.Context) ([]models.Campaign, error)
	DeleteCampaign(ctx context.Context, id, brandID int64) (bool, error)
	CampaignStats(ctx context.Context, ids []int64) (map[int64]models.CampaignStats, error)
}

type ContractRepo interface {
	CreateContract(ctx context.Context, c *models.Contract) (int64, error)
	GetContract(ctx context.Context, id int64) (*models.Contract, error)
	ListContractsForUser(ctx context.Context, userID int64) ([]models.Contract, error)
	UpdateContractStatus(ctx context.Context, id int64, status models.ContractStatus) error
}

type ParticipantRepo interface {
	// JoinCampaign inserts the participant unless one already exists for the
	// (campaign, creator) pair.
	JoinCampaign(ctx context.Context, campaignID, creatorID int64) error
	GetParticipant(ctx context.Context, campaignID, creatorID int64) (*models.CampaignParticipant, error)
	CountParticipants(ctx context.Context, campaignID, creatorID int64) (int, error)
}

type SocialAccountRepo interface {
	UpsertSocialAccount(ctx context.Context, a *models.SocialAccount) (int64, error)
	GetSocialAccount(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error)
	ListSocialAccounts(ctx context.Context, userID int64) ([]models.SocialAccount, error)
}

type PostRepo interface {
	CreatePost(ctx context.Context, p *models.Post) (int64, error)
	CreateEngagement(ctx context.Context, e *models.Engagement) error
	UpdateEngagement(ctx context.Context, e *models.Engagement) error
	CreateFraudLog(ctx context.Context, f *models.FraudLog) (int64, error)
	GetFraudLog(ctx context.Context, postID int64) (*models.FraudLog, error)
	ListPostsByCampaign(ctx context.Context, campaignID int64) ([]models.PostDetail, error)
	ListPostsByCreatorPlatform(ctx context.Context, creatorID int64, platform string) ([]models.PostDetail, error)
}

type DirectoryRepo interface {
	ListCreators(ctx context.Context) ([]models.CreatorEntry, error)
	ListBrands(ctx context.Context) ([]models.BrandEntry, error)
}

type SchemaRepo interface {
	CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error)
	GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error)
	ListSchemas(ctx context.Context) ([]models.Schema, error)
}

type TemplateRepo interface {
	GetTemplate(ctx context.Context, name, version string) (*models.Template, error)
}

// Store bundles the marketplace repositories and runs units of work
// atomically. Inside fn only tx may be used.
type Store interface {
	UserRepo
	CampaignRepo
	ContractRepo
	ParticipantRepo
	SocialAccountRepo
	PostRepo
	DirectoryRepo
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
