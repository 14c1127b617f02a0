package course

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is priced in the reference currency.
type Course struct {
	ID              string          `json:"id" db:"course_id"`
	Title           string          `json:"title" db:"title"`
	Description     string          `json:"description" db:"description"`
	LongDescription string          `json:"longDescription" db:"long_description"`
	Price           decimal.Decimal `json:"price" db:"price"`
	VideoURL        string          `json:"-" db:"video_url"`
	ThumbnailURL    string          `json:"thumbnailUrl" db:"thumbnail_url"`
	Published       bool            `json:"published" db:"is_published"`
	DisplayOrder    int             `json:"displayOrder" db:"display_order"`
	Duration        int             `json:"duration" db:"duration"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	Version         int             `json:"-" db:"version"`
}

type CourseNew struct {
	Title           string          `json:"title" validate:"required"`
	Description     string          `json:"description" validate:"required"`
	LongDescription string          `json:"longDescription"`
	Price           decimal.Decimal `json:"price" validate:"gte=0,lte=100000"`
	VideoURL        string          `json:"videoUrl" validate:"omitempty,url"`
	ThumbnailURL    string          `json:"thumbnailUrl" validate:"omitempty,url"`
	Published       bool            `json:"published"`
	DisplayOrder    int             `json:"displayOrder" validate:"gte=0"`
	Duration        int             `json:"duration" validate:"gte=0"`
}

type CourseUp struct {
	Title           *string          `json:"title" validate:"omitempty,min=1"`
	Description     *string          `json:"description"`
	LongDescription *string          `json:"longDescription"`
	Price           *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=100000"`
	VideoURL        *string          `json:"videoUrl" validate:"omitempty,url"`
	ThumbnailURL    *string          `json:"thumbnailUrl" validate:"omitempty,url"`
	Published       *bool            `json:"published"`
	DisplayOrder    *int             `json:"displayOrder" validate:"omitempty,gte=0"`
	Duration        *int             `json:"duration" validate:"omitempty,gte=0"`
}

// Listing is a course as shown in the catalog, with its price converted to
// the currency the gateway charges in.
type Listing struct {
	Course
	SettlementPrice    decimal.Decimal `json:"settlementPrice"`
	SettlementCurrency string          `json:"settlementCurrency"`
}
