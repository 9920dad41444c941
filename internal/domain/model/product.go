package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//最小通貨単位（円/セント）の整数。floatは使わない。
	Price int64 `gorm:"not null" json:"price"`
	Stock int64 `gorm:"not null" json:"stock"`

	ImageURL string `gorm:"type:varchar(512)" json:"image_url"`
	Category string `gorm:"type:varchar(100);index" json:"category"`
	SKU      string `gorm:"type:varchar(100);uniqueIndex" json:"sku"`

	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
