package restaurants

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultCoord is used when a listing is created without coordinates.
var DefaultCoord = []float64{-73.0, 40.0}

const (
	DefaultPage  = 1
	DefaultLimit = 3
	MaxLimit     = 100
)

// SearchFields lists the fields the backend search accepts.
var SearchFields = []string{"name", "cuisine", "borough"}

type Address struct {
	Building string    `json:"building"`
	Street   string    `json:"street"`
	Zipcode  string    `json:"zipcode"`
	Coord    []float64 `json:"coord,omitempty"`
}

type Grade struct {
	Date  *time.Time `json:"date,omitempty"`
	Grade string     `json:"grade"`
	Score int        `json:"score"`
}

// Restaurant is a catalog listing. Picture is derived from the id by the
// client and never sent to the backend.
type Restaurant struct {
	ID           string  `json:"_id,omitempty"`
	RestaurantID string  `json:"restaurant_id,omitempty"`
	Name         string  `json:"name"`
	Cuisine      string  `json:"cuisine"`
	Borough      string  `json:"borough"`
	Address      Address `json:"address"`
	Grades       []Grade `json:"grades"`
	OwnerID      string  `json:"ownerId,omitempty"`
	Picture      string  `json:"-"`
}

// LatestGrade returns the most recent grade, if any.
func (r *Restaurant) LatestGrade() (Grade, bool) {
	if r == nil || len(r.Grades) == 0 {
		return Grade{}, false
	}
	return r.Grades[0], true
}

type Pagination struct {
	CurrentPage      int `json:"currentPage"`
	TotalPages       int `json:"totalPages"`
	TotalRestaurants int `json:"totalRestaurants"`
	Limit            int `json:"limit,omitempty"`
}

// Page is one page of listings.
type Page struct {
	Restaurants []Restaurant `json:"restaurants"`
	Pagination  Pagination   `json:"pagination"`
}

// Input is the editable part of a listing.
type Input struct {
	Name     string `json:"name"`
	Cuisine  string `json:"cuisine"`
	Borough  string `json:"borough"`
	Building string `json:"building"`
	Street   string `json:"street"`
	Zipcode  string `json:"zipcode"`
}

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Cuisine, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Borough, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Street, validation.Required),
		validation.Field(&in.Zipcode, validation.Required, validation.Length(3, 10)),
	)
}

func (in Input) address() Address {
	return Address{
		Building: in.Building,
		Street:   in.Street,
		Zipcode:  in.Zipcode,
	}
}

// newRestaurant is the create payload.
type newRestaurant struct {
	Name    string  `json:"name"`
	Cuisine string  `json:"cuisine"`
	Borough string  `json:"borough"`
	Address Address `json:"address"`
	Grades  []Grade `json:"grades"`
	OwnerID string  `json:"ownerId"`
}

// updateRestaurant is the patch payload; ownerId authorizes the change.
type updateRestaurant struct {
	Name    string  `json:"name"`
	Cuisine string  `json:"cuisine"`
	Borough string  `json:"borough"`
	Address Address `json:"address"`
	OwnerID string  `json:"ownerId"`
}
