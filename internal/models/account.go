package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Region string

const (
	RegionAsia    Region = "Asia"
	RegionAmerica Region = "America"
	RegionEurope  Region = "Europe"
)

func (r Region) Valid() bool {
	switch r {
	case RegionAsia, RegionAmerica, RegionEurope:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountAvailable AccountStatus = "available"
	AccountSold      AccountStatus = "sold"
	AccountReserved  AccountStatus = "reserved"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountAvailable, AccountSold, AccountReserved:
		return true
	}
	return false
}

// Account is a sellable game account in the catalog.
type Account struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AdventureRank int                `bson:"adventure_rank" json:"adventureRank" validate:"min=1,max=60"`
	Characters    []string           `bson:"characters" json:"characters"`
	FiveStars     int                `bson:"five_stars" json:"fiveStars" validate:"min=0"`
	FourStars     int                `bson:"four_stars" json:"fourStars" validate:"min=0"`
	Primogems     int                `bson:"primogems" json:"primogems" validate:"min=0"`
	Price         float64            `bson:"price" json:"price" validate:"gte=0"`
	Region        Region             `bson:"region" json:"region" validate:"oneof=Asia America Europe"`
	Status        AccountStatus      `bson:"status" json:"status" validate:"oneof=available sold reserved"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Images        []string           `bson:"images" json:"images"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// AccountInput carries the writable account fields. A nil field is absent from
// the request: on create it falls back to the default, on update it is left as is.
type AccountInput struct {
	AdventureRank *int     `json:"adventureRank"`
	Characters    []string `json:"characters"`
	FiveStars     *int     `json:"fiveStars"`
	FourStars     *int     `json:"fourStars"`
	Primogems     *int     `json:"primogems"`
	Price         *float64 `json:"price"`
	Region        *string  `json:"region"`
	Status        *string  `json:"status"`
	Description   *string  `json:"description"`
	Images        []string `json:"images"`
}

// Apply copies every present field of in onto a.
func (in AccountInput) Apply(a *Account) {
	if in.AdventureRank != nil {
		a.AdventureRank = *in.AdventureRank
	}
	if in.Characters != nil {
		a.Characters = in.Characters
	}
	if in.FiveStars != nil {
		a.FiveStars = *in.FiveStars
	}
	if in.FourStars != nil {
		a.FourStars = *in.FourStars
	}
	if in.Primogems != nil {
		a.Primogems = *in.Primogems
	}
	if in.Price != nil {
		a.Price = *in.Price
	}
	if in.Region != nil {
		a.Region = Region(*in.Region)
	}
	if in.Status != nil {
		a.Status = AccountStatus(*in.Status)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Images != nil {
		a.Images = in.Images
	}
}

// AccountFilter narrows a catalog listing. Zero values mean "no constraint";
// all present constraints must hold.
type AccountFilter struct {
	Region   Region
	MinAR    *int
	MaxPrice *float64
	Status   AccountStatus
	Search   string
}

type AccountStats struct {
	Total        int64   `json:"total"`
	Available    int64   `json:"available"`
	Sold         int64   `json:"sold"`
	AveragePrice float64 `json:"averagePrice"`
}
