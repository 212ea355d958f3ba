package models

import "time"

// Transaction is a single recorded property sale. Rows are append-only:
// corrections show up as new rows, never as updates.
type Transaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InstanceDate    time.Time `gorm:"index" json:"instance_date"`
	AreaName        string    `json:"area_name"`
	BuildingName    string    `json:"building_name"`
	ProjectName     string    `json:"project_name"`
	Developer       string    `json:"developer"`
	PropertyType    string    `json:"property_type"`
	PropertySubType string    `json:"property_sub_type"`
	Bedrooms        string    `json:"bedrooms"`
	RegType         string    `json:"reg_type"`
	Size            float64   `json:"size_sqm"`
	Worth           float64   `json:"worth"`
	MeterSalePrice  float64   `json:"meter_sale_price"`
	CreatedAt       time.Time `json:"created_at"`
}

// UnitPrice returns the per-square-meter price, deriving it from the
// worth and size when the source row did not carry one. Returns 0 when
// it cannot be determined.
func (t *Transaction) UnitPrice() float64 {
	if t.MeterSalePrice > 0 {
		return t.MeterSalePrice
	}
	if t.Size > 0 && t.Worth > 0 {
		return t.Worth / t.Size
	}
	return 0
}

// Rental is a single recorded rental contract.
type Rental struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ContractStartDate time.Time `gorm:"index" json:"contract_start_date"`
	AreaName          string    `json:"area_name"`
	PropertyType      string    `json:"property_type"`
	PropertySubType   string    `json:"property_sub_type"`
	Size              float64   `json:"size_sqm"`
	AnnualAmount      float64   `json:"annual_amount"`
	CreatedAt         time.Time `json:"created_at"`
}
