package domain

import (
	"context"
	"strings"
	"time"
)

// PropertyType 房源类别（住宅/商业/土地，共 20 类）
type PropertyType string

const (
	TypeApartment        PropertyType = "apartment"
	TypeStudio           PropertyType = "studio"
	TypeDuplex           PropertyType = "duplex"
	TypeTriplex          PropertyType = "triplex"
	TypePenthouse        PropertyType = "penthouse"
	TypeHouse            PropertyType = "house"
	TypeVilla            PropertyType = "villa"
	TypeRiad             PropertyType = "riad"
	TypeUrbanLand        PropertyType = "urban_land"
	TypeAgriculturalLand PropertyType = "agricultural_land"
	TypeFarmRanch        PropertyType = "farm_ranch"
	TypeOffice           PropertyType = "office"
	TypeShop             PropertyType = "shop"
	TypeWarehouse        PropertyType = "warehouse"
	TypeFactory          PropertyType = "factory"
	TypeRestaurant       PropertyType = "restaurant"
	TypeHotel            PropertyType = "hotel"
	TypeBuilding         PropertyType = "building"
	TypeShowroom         PropertyType = "showroom"
	TypeParking          PropertyType = "parking"
)

var propertyTypes = map[PropertyType]struct{}{
	TypeApartment: {}, TypeStudio: {}, TypeDuplex: {}, TypeTriplex: {},
	TypePenthouse: {}, TypeHouse: {}, TypeVilla: {}, TypeRiad: {},
	TypeUrbanLand: {}, TypeAgriculturalLand: {}, TypeFarmRanch: {},
	TypeOffice: {}, TypeShop: {}, TypeWarehouse: {}, TypeFactory: {},
	TypeRestaurant: {}, TypeHotel: {}, TypeBuilding: {}, TypeShowroom: {},
	TypeParking: {},
}

func (t PropertyType) Valid() bool { _, ok := propertyTypes[t]; return ok }

// ListingStatus 出售/出租状态。不校验状态迁移合法性（老数据里存在任意跳转）
type ListingStatus string

const (
	StatusForSale ListingStatus = "for_sale"
	StatusForRent ListingStatus = "for_rent"
	StatusSold    ListingStatus = "sold"
	StatusRented  ListingStatus = "rented"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusForSale, StatusForRent, StatusSold, StatusRented:
		return true
	}
	return false
}

type Property struct {
	ID          string `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`

	Price  float64       `gorm:"type:decimal(10,2);not null;index" json:"price"`
	Status ListingStatus `gorm:"size:20;not null;default:for_sale;index" json:"status"`

	PropertyType PropertyType `gorm:"size:50;not null;index" json:"propertyType"`
	SurfaceArea  int          `gorm:"not null" json:"surfaceArea"` // 平方米
	Rooms        int          `gorm:"not null" json:"rooms"`
	Bedrooms     int          `gorm:"not null" json:"bedrooms"`
	Bathrooms    int          `gorm:"not null" json:"bathrooms"`
	Furnished    bool         `gorm:"not null;default:false" json:"furnished"`

	City       string   `gorm:"size:100;not null;index" json:"city"`
	Address    string   `gorm:"size:255;not null" json:"address"`
	PostalCode string   `gorm:"size:10" json:"postalCode,omitempty"`
	Latitude   *float64 `gorm:"type:decimal(9,6)" json:"latitude,omitempty"`
	Longitude  *float64 `gorm:"type:decimal(9,6)" json:"longitude,omitempty"`

	PublishedAt time.Time `gorm:"not null" json:"publishedAt"`
	UserID      string    `gorm:"type:varchar(32);not null;index" json:"userId"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`

	// 封面在前，其余按上传时间
	Images []PropertyImage `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"images"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Property) TableName() string { return "properties" }

// PropertyImage 只存引用，二进制落在对象存储/本地盘。入库后不可改，换图 = 新增
type PropertyImage struct {
	ID         string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	PropertyID string    `gorm:"type:varchar(32);not null;index" json:"propertyId"`
	ImageURL   string    `gorm:"type:text;not null" json:"imageUrl"`
	IsCover    bool      `gorm:"not null;default:false" json:"isCover"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (PropertyImage) TableName() string { return "property_images" }

// Validate 落库前的全量字段校验，尽量一次报全
func (p *Property) Validate() FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(p.Title) == "" {
		fe.Add("title", "required")
	}
	if strings.TrimSpace(p.Description) == "" {
		fe.Add("description", "required")
	}
	if p.Price < 0 {
		fe.Add("price", "must be >= 0")
	}
	if !p.Status.Valid() {
		fe.Add("status", "must be one of for_sale, for_rent, sold, rented")
	}
	if !p.PropertyType.Valid() {
		fe.Add("propertyType", "unknown property type")
	}
	if p.SurfaceArea <= 0 {
		fe.Add("surfaceArea", "must be > 0")
	}
	if p.Rooms < 0 {
		fe.Add("rooms", "must be >= 0")
	}
	if p.Bedrooms < 0 {
		fe.Add("bedrooms", "must be >= 0")
	}
	if p.Bathrooms < 0 {
		fe.Add("bathrooms", "must be >= 0")
	}
	if strings.TrimSpace(p.City) == "" {
		fe.Add("city", "required")
	}
	if strings.TrimSpace(p.Address) == "" {
		fe.Add("address", "required")
	}
	if len(p.PostalCode) > 10 {
		fe.Add("postalCode", "at most 10 characters")
	}
	// 经纬度要么都给要么都不给
	switch {
	case p.Latitude != nil && p.Longitude == nil:
		fe.Add("longitude", "required together with latitude")
	case p.Latitude == nil && p.Longitude != nil:
		fe.Add("latitude", "required together with longitude")
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		fe.Add("latitude", "must be between -90 and 90")
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		fe.Add("longitude", "must be between -180 and 180")
	}
	if p.UserID == "" {
		fe.Add("userId", "owner required")
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// ListingFilter 列表筛选。零值字段不参与过滤
type ListingFilter struct {
	OwnerID      string
	City         string
	PropertyType PropertyType
	Status       ListingStatus
	MinPrice     *float64
	MaxPrice     *float64
	ActiveOnly   bool
	Offset       int
	Limit        int
}

type PropertyRepository interface {
	// CreateWithImages 房源 + 图片一个事务，部分失败整体回滚
	CreateWithImages(ctx context.Context, p *Property) error
	FindByID(ctx context.Context, id string) (*Property, error)
	List(ctx context.Context, f ListingFilter) ([]Property, int64, error)
	// UpdateWithImages 保存整条房源并追加新图；resetCover 时先清掉旧封面
	UpdateWithImages(ctx context.Context, p *Property, newImages []PropertyImage, resetCover bool) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}
