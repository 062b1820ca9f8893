package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	DefaultTier = "standard"
)

type Application struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Name            string       `json:"name" gorm:"not null"`
	Email           string       `json:"email" gorm:"not null;index"`
	Company         *string      `json:"company,omitempty"`
	Website         *string      `json:"website,omitempty"`
	Country         *string      `json:"country,omitempty"`
	Audience        *string      `json:"audience,omitempty"`
	PromotionPlan   *string      `json:"promotion_plan,omitempty"`
	Status          string       `json:"status" gorm:"not null;default:pending"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Application) TableName() string { return "partner_applications" }

type Partner struct {
	ID                    snowflake.ID  `json:"id" gorm:"primaryKey"`
	ApplicationID         *snowflake.ID `json:"application_id,omitempty"`
	Name                  string        `json:"name" gorm:"not null"`
	Email                 string        `json:"email" gorm:"not null"`
	ReferralCode          string        `json:"referral_code" gorm:"not null;uniqueIndex"`
	Tier                  string        `json:"tier" gorm:"not null;default:standard"`
	TapfiliateAffiliateID *string       `json:"tapfiliate_affiliate_id,omitempty" gorm:"uniqueIndex"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }
