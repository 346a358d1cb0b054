package models

import "time"

// Address is a delivery address owned by one user. At most one per owner
// has IsDefault set.
type Address struct {
	ID        string    `gorm:"primaryKey;size:36"     json:"id"         bson:"id"`
	OwnerID   string    `gorm:"size:64;not null;index" json:"owner_id"   bson:"owner_id"`
	Name      string    `gorm:"size:255;not null"      json:"name"       bson:"name"`
	Phone     string    `gorm:"size:32"                json:"phone"      bson:"phone"`
	Street    string    `gorm:"size:255;not null"      json:"street"     bson:"street"`
	City      string    `gorm:"size:100;not null"      json:"city"       bson:"city"`
	State     string    `gorm:"size:100;not null"      json:"state"      bson:"state"`
	Zip       string    `gorm:"size:16;not null"       json:"zip"        bson:"zip"`
	IsDefault bool      `gorm:"default:false"          json:"is_default" bson:"is_default"`
	CreatedAt time.Time `json:"created_at"             bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at"             bson:"updated_at"`
}

// AddressSnapshot is the copy of an address stored on an order. Later
// edits to the live address never reach it.
type AddressSnapshot struct {
	Name   string `gorm:"size:255" json:"name"   bson:"name"`
	Phone  string `gorm:"size:32"  json:"phone"  bson:"phone"`
	Street string `gorm:"size:255" json:"street" bson:"street"`
	City   string `gorm:"size:100" json:"city"   bson:"city"`
	State  string `gorm:"size:100" json:"state"  bson:"state"`
	Zip    string `gorm:"size:16"  json:"zip"    bson:"zip"`
}

func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Name:   a.Name,
		Phone:  a.Phone,
		Street: a.Street,
		City:   a.City,
		State:  a.State,
		Zip:    a.Zip,
	}
}
