package models

import "gorm.io/datatypes"

// Object is an arbitrary JSON document stored under a caller-chosen key.
type Object struct {
	ID     string         `gorm:"primaryKey" json:"id"`
	Object datatypes.JSON `gorm:"not null" json:"object"`
}

func (Object) TableName() string { return "objects" }
