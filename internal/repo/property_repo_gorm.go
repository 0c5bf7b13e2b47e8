package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
)

type PropertyRepo struct{ db *gorm.DB }

func NewPropertyRepo(db *gorm.DB) *PropertyRepo { return &PropertyRepo{db: db} }

// imageOrder 封面在前，其余按上传时间；id 兜底保证确定性
const imageOrder = "is_cover desc, created_at asc, id asc"

func (r *PropertyRepo) CreateWithImages(ctx context.Context, p *domain.Property) error {
	// SkipDefaultTransaction 开着，这里显式包一个事务：
	// 房源行和图片行要么全部落库要么全不落
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
	return domain.WrapStorage("create property", err)
}

func (r *PropertyRepo) FindByID(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order(imageOrder) }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, domain.WrapStorage("find property", err)
}

func (r *PropertyRepo) List(ctx context.Context, f domain.ListingFilter) ([]domain.Property, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Property{})
	if f.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}
	if f.OwnerID != "" {
		tx = tx.Where("user_id = ?", f.OwnerID)
	}
	if f.City != "" {
		tx = tx.Where("city = ?", f.City)
	}
	if f.PropertyType != "" {
		tx = tx.Where("property_type = ?", f.PropertyType)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.MinPrice != nil {
		tx = tx.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		tx = tx.Where("price <= ?", *f.MaxPrice)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, domain.WrapStorage("count properties", err)
	}

	var items []domain.Property
	err := tx.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order(imageOrder) }).
		Order("published_at desc").
		Offset(f.Offset).Limit(f.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, domain.WrapStorage("list properties", err)
	}
	return items, total, nil
}

func (r *PropertyRepo) UpdateWithImages(ctx context.Context, p *domain.Property, newImages []domain.PropertyImage, resetCover bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if resetCover {
			if err := tx.Model(&domain.PropertyImage{}).
				Where("property_id = ?", p.ID).
				Update("is_cover", false).Error; err != nil {
				return err
			}
		}
		// Save 不碰关联，图片单独追加
		if err := tx.Omit("Images").Save(p).Error; err != nil {
			return err
		}
		if len(newImages) > 0 {
			if err := tx.Create(&newImages).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return domain.WrapStorage("update property", err)
}

func (r *PropertyRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 显式删图片行，不指望所有部署都开了外键级联
		if err := tx.Where("property_id = ?", id).Delete(&domain.PropertyImage{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Property{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return domain.WrapStorage("delete property", err)
}

func (r *PropertyRepo) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&domain.Property{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return domain.WrapStorage("set property active", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
