package models

import (
	"encoding/json"
	"time"
)

type AccountType string

const (
	AccountBrand   AccountType = "brand"
	AccountCreator AccountType = "creator"
)

type User struct {
	ID               int64       `json:"id" db:"id"`
	Name             string      `json:"name" db:"name"`
	Email            string      `json:"email" db:"email"`
	AccountType      AccountType `json:"accountType" db:"account_type"`
	PasswordHash     string      `json:"-" db:"password_hash"`
	TwoFactorEnabled bool        `json:"twoFactorEnabled" db:"two_factor_enabled"`
	// TwoFactorSecret and TwoFactorBackupCodes are set iff TwoFactorEnabled.
	TwoFactorSecret      *string  `json:"-" db:"two_factor_secret"`
	TwoFactorBackupCodes []string `json:"-" db:"-"`
	Created              int64    `json:"created" db:"created"`
	Updated              int64    `json:"updated" db:"updated"`
}

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Campaign dates are calendar days formatted as 2006-01-02.
type Campaign struct {
	ID            int64          `json:"id" db:"id"`
	BrandID       int64          `json:"brandId" db:"brand_id"`
	Title         string         `json:"title" db:"title"`
	Description   string         `json:"description" db:"description"`
	Budget        float64        `json:"budget" db:"budget"`
	CPM           float64        `json:"cpm" db:"cpm"`
	RequiredViews int64          `json:"requiredViews" db:"required_views"`
	StartDate     string         `json:"startDate" db:"start_date"`
	EndDate       string         `json:"endDate" db:"end_date"`
	Platforms     []string       `json:"platforms" db:"-"`
	Status        CampaignStatus `json:"status" db:"status"`
	Visibility    Visibility     `json:"visibility" db:"visibility"`
	Created       int64          `json:"created" db:"created"`
	Updated       int64          `json:"updated" db:"updated"`
}

// CampaignStats aggregates delivery figures of a campaign's posts.
type CampaignStats struct {
	CampaignID       int64 `db:"campaign_id"`
	ValidatedViews   int64 `db:"validated_views"`
	ParticipantCount int64 `db:"participant_count"`
}

type ContractStatus string

const (
	ContractPending  ContractStatus = "pending"
	ContractAccepted ContractStatus = "accepted"
	ContractDeclined ContractStatus = "declined"
)

type Contract struct {
	ID           int64          `json:"id" db:"id"`
	BrandID      int64          `json:"brandId" db:"brand_id"`
	CreatorID    int64          `json:"creatorId" db:"creator_id"`
	CampaignID   int64          `json:"campaignId" db:"campaign_id"`
	Amount       float64        `json:"amount" db:"amount"`
	Currency     string         `json:"currency" db:"currency"`
	Deliverables []string       `json:"deliverables" db:"-"`
	DueDate      *string        `json:"dueDate,omitempty" db:"due_date"`
	Status       ContractStatus `json:"status" db:"status"`
	Created      int64          `json:"created" db:"created"`
	Updated      int64          `json:"updated" db:"updated"`
}

const ParticipantJoined = "joined"

type CampaignParticipant struct {
	ID         int64  `json:"id" db:"id"`
	CampaignID int64  `json:"campaignId" db:"campaign_id"`
	CreatorID  int64  `json:"creatorId" db:"creator_id"`
	Status     string `json:"status" db:"status"`
	Joined     int64  `json:"joined" db:"joined"`
}

type SocialAccount struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"userId" db:"user_id"`
	Platform    string `json:"platform" db:"platform"`
	Handle      string `json:"handle" db:"handle"`
	AccessToken string `json:"-" db:"access_token"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

const PostPending = "pending"

type Post struct {
	ID             int64  `json:"id" db:"id"`
	ParticipantID  int64  `json:"participantId" db:"participant_id"`
	Platform       string `json:"platform" db:"platform"`
	PostURL        string `json:"postUrl" db:"post_url"`
	ExternalPostID string `json:"externalPostId" db:"external_post_id"`
	Status         string `json:"status" db:"status"`
	Created        int64  `json:"created" db:"created"`
}

type Engagement struct {
	PostID         int64   `json:"postId" db:"post_id"`
	RawViews       int64   `json:"rawViews" db:"raw_views"`
	ValidatedViews int64   `json:"validatedViews" db:"validated_views"`
	Likes          int64   `json:"likes" db:"likes"`
	Comments       int64   `json:"comments" db:"comments"`
	Shares         int64   `json:"shares" db:"shares"`
	WatchTime      float64 `json:"watchTime" db:"watch_time"`
	ClickOffRate   float64 `json:"clickOffRate" db:"click_off_rate"`
	FraudScore     float64 `json:"fraudScore" db:"fraud_score"`
	Updated        int64   `json:"updated" db:"updated"`
}

type FraudLog struct {
	ID      int64   `json:"id" db:"id"`
	PostID  int64   `json:"postId" db:"post_id"`
	Score   float64 `json:"score" db:"score"`
	Reason  string  `json:"reason" db:"reason"`
	Created int64   `json:"created" db:"created"`
}

// PostDetail joins a post with its measurement rows.
type PostDetail struct {
	Post       Post       `json:"post"`
	Engagement Engagement `json:"engagement"`
	FraudLog   *FraudLog  `json:"fraudLog,omitempty"`
	CreatorID  int64      `json:"creatorId"`
	CampaignID int64      `json:"campaignId"`
}

// CreatorEntry and BrandEntry are rows of the public directory.
type CreatorEntry struct {
	ID              int64    `json:"id" db:"id"`
	Name            string   `json:"name" db:"name"`
	Platforms       []string `json:"platforms" db:"-"`
	JoinedCampaigns int64    `json:"joinedCampaigns" db:"joined_campaigns"`
}

type BrandEntry struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	ActiveCampaigns int64  `json:"activeCampaigns" db:"active_campaigns"`
}

type Schema struct {
	ID          int64  `json:"id" db:"id"`
	Version     string `json:"version" db:"version"`
	Description string `json:"description,omitempty" db:"description"`
	SchemaJSON  string `json:"schemaJson" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

type Template struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Version     string  `json:"version" db:"version"`
	TemplateTxt string  `json:"templateText" db:"template_text"`
	SchemaVer   *string `json:"schemaVersion,omitempty" db:"schema_version"`
	Metadata    *string `json:"metadata,omitempty" db:"metadata"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduledAt"`
	NextTryAt   *time.Time      `json:"nextTryAt,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
