package listing

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"go.uber.org/zap"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/cache"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/pkg/utils"
)

// BlobStore 图片二进制的归宿。本地盘实现在 core/storage，测试用内存假货
type BlobStore interface {
	Validate(fh *multipart.FileHeader) error
	Save(fh *multipart.FileHeader) (string, error)
	Remove(ref string)
}

type Service struct {
	props domain.PropertyRepository
	users domain.UserRepository
	blobs BlobStore
	cache *cache.Cache // 可为 nil（测试 / 未配 redis）
	ttl   time.Duration
	log   *zap.Logger
}

func NewService(props domain.PropertyRepository, users domain.UserRepository, blobs BlobStore, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{props: props, users: users, blobs: blobs, cache: c, ttl: ttl, log: log}
}

func cacheKey(id string) string { return "property:" + id }

type CreateInput struct {
	Title       string
	Description string
	Price       float64
	Status      string
	Type        string
	SurfaceArea int
	Rooms       int
	Bedrooms    int
	Bathrooms   int
	Furnished   bool
	City        string
	Address     string
	PostalCode  string
	Latitude    *float64
	Longitude   *float64
	PublishedAt *time.Time // 可回填，缺省取当前时间
	OwnerID     string     // 管理员可代发；普通用户只能写自己
	CoverIndex  int        // images 里哪张做封面
}

// Create 全量校验 → 图片校验 → 落盘 → 一个事务写房源+图片行。
// 任何一张图不合法整单拒绝，不存在"房源建了图丢了"的中间态
func (s *Service) Create(ctx context.Context, caller domain.Identity, in CreateInput, images []*multipart.FileHeader) (*domain.Property, error) {
	ownerID, err := s.resolveOwner(ctx, caller, in.OwnerID)
	if err != nil {
		return nil, err
	}

	status := domain.ListingStatus(in.Status)
	if status == "" {
		status = domain.StatusForSale
	}
	publishedAt := time.Now()
	if in.PublishedAt != nil {
		publishedAt = *in.PublishedAt
	}

	p := &domain.Property{
		ID:           utils.NewID(),
		Title:        in.Title,
		Description:  in.Description,
		Price:        in.Price,
		Status:       status,
		PropertyType: domain.PropertyType(in.Type),
		SurfaceArea:  in.SurfaceArea,
		Rooms:        in.Rooms,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		Furnished:    in.Furnished,
		City:         in.City,
		Address:      in.Address,
		PostalCode:   in.PostalCode,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		PublishedAt:  publishedAt,
		UserID:       ownerID,
		IsActive:     true,
	}

	fe := p.Validate()
	if fe == nil {
		fe = domain.FieldErrors{}
	}
	s.validateImages(fe, images)
	if len(images) > 0 && (in.CoverIndex < 0 || in.CoverIndex >= len(images)) {
		fe.Add("coverIndex", "out of range")
	}
	if len(fe) > 0 {
		return nil, fe
	}

	refs, err := s.saveBlobs(images)
	if err != nil {
		return nil, err
	}
	p.Images = buildImageRows(p.ID, refs, in.CoverIndex)

	if err := s.props.CreateWithImages(ctx, p); err != nil {
		// 库没写进去，盘上的文件也不留
		for _, ref := range refs {
			s.blobs.Remove(ref)
		}
		return nil, err
	}
	s.log.Info("property created",
		zap.String("id", p.ID),
		zap.String("owner", p.UserID),
		zap.Int("images", len(refs)),
	)
	return s.Get(ctx, p.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Property, error) {
	load := func(ctx context.Context) (*domain.Property, error) {
		return s.props.FindByID(ctx, id)
	}
	var p *domain.Property
	var err error
	if s.cache != nil {
		p, err = cache.GetOrLoadJSON(s.cache, ctx, cacheKey(id), s.ttl, load)
	} else {
		p, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f domain.ListingFilter) ([]domain.Property, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.props.List(ctx, f)
}

type UpdateInput struct {
	Title       *string
	Description *string
	Price       *float64
	Status      *string
	Type        *string
	SurfaceArea *int
	Rooms       *int
	Bedrooms    *int
	Bathrooms   *int
	Furnished   *bool
	City        *string
	Address     *string
	PostalCode  *string
	Latitude    *float64
	Longitude   *float64
	PublishedAt *time.Time
	IsActive    *bool
	CoverIndex  *int // 指向本次新增 images 的下标，设了就换封面
}

// Update 只有房主或管理员能改；没给的字段保持原样；新图只追加不覆盖
func (s *Service) Update(ctx context.Context, caller domain.Identity, id string, in UpdateInput, images []*multipart.FileHeader) (*domain.Property, error) {
	p, err := s.props.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if !canMutate(caller, p) {
		return nil, domain.ErrForbidden
	}

	applyPatch(p, in)

	fe := p.Validate()
	if fe == nil {
		fe = domain.FieldErrors{}
	}
	s.validateImages(fe, images)
	if in.CoverIndex != nil && (*in.CoverIndex < 0 || *in.CoverIndex >= len(images)) {
		fe.Add("coverIndex", "out of range")
	}
	if len(fe) > 0 {
		return nil, fe
	}

	refs, err := s.saveBlobs(images)
	if err != nil {
		return nil, err
	}

	coverIdx := -1
	if in.CoverIndex != nil {
		coverIdx = *in.CoverIndex
	}
	newRows := buildImageRows(p.ID, refs, coverIdx)

	if err := s.props.UpdateWithImages(ctx, p, newRows, coverIdx >= 0); err != nil {
		for _, ref := range refs {
			s.blobs.Remove(ref)
		}
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKey(id))
	}
	s.log.Info("property updated", zap.String("id", id), zap.Int("new_images", len(refs)))
	return s.Get(ctx, id)
}

// Delete 连图片行一起删（行在事务里，盘上文件尽力清）
func (s *Service) Delete(ctx context.Context, caller domain.Identity, id string) error {
	p, err := s.props.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrNotFound
	}
	if !canMutate(caller, p) {
		return domain.ErrForbidden
	}
	if err := s.props.Delete(ctx, id); err != nil {
		return err
	}
	for _, img := range p.Images {
		s.blobs.Remove(img.ImageURL)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKey(id))
	}
	s.log.Info("property deleted", zap.String("id", id), zap.String("by", caller.UID))
	return nil
}

// SetActive 管理端上下架
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.props.SetActive(ctx, id, active); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKey(id))
	}
	return nil
}

// resolveOwner 归属解析：显式 ownerID 只有管理员（或本人）可用；
// 都没有就是校验错误，绝不默认到"库里第一个用户"
func (s *Service) resolveOwner(ctx context.Context, caller domain.Identity, explicit string) (string, error) {
	if explicit != "" && explicit != caller.UID {
		if !caller.Role.CanManage() {
			return "", domain.ErrForbidden
		}
		u, err := s.users.FindByID(ctx, explicit)
		if err != nil {
			return "", err
		}
		if u == nil {
			return "", domain.FieldErrors{"userId": "unknown owner"}
		}
		return u.ID, nil
	}
	if caller.UID == "" {
		return "", domain.FieldErrors{"userId": "owner required"}
	}
	return caller.UID, nil
}

func canMutate(caller domain.Identity, p *domain.Property) bool {
	return caller.UID != "" && (caller.UID == p.UserID || caller.Role.CanManage())
}

func (s *Service) validateImages(fe domain.FieldErrors, images []*multipart.FileHeader) {
	for i, fh := range images {
		if err := s.blobs.Validate(fh); err != nil {
			fe.Add(fmt.Sprintf("images[%d]", i), err.Error())
		}
	}
}

func (s *Service) saveBlobs(images []*multipart.FileHeader) ([]string, error) {
	refs := make([]string, 0, len(images))
	for _, fh := range images {
		ref, err := s.blobs.Save(fh)
		if err != nil {
			for _, r := range refs {
				s.blobs.Remove(r)
			}
			return nil, domain.WrapStorage("save image", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// buildImageRows coverIdx 命中的那张标封面；coverIdx < 0 表示不指定
func buildImageRows(propertyID string, refs []string, coverIdx int) []domain.PropertyImage {
	rows := make([]domain.PropertyImage, 0, len(refs))
	for i, ref := range refs {
		rows = append(rows, domain.PropertyImage{
			ID:         utils.NewID(),
			PropertyID: propertyID,
			ImageURL:   ref,
			IsCover:    i == coverIdx,
		})
	}
	return rows
}

func applyPatch(p *domain.Property, in UpdateInput) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Status != nil {
		p.Status = domain.ListingStatus(*in.Status)
	}
	if in.Type != nil {
		p.PropertyType = domain.PropertyType(*in.Type)
	}
	if in.SurfaceArea != nil {
		p.SurfaceArea = *in.SurfaceArea
	}
	if in.Rooms != nil {
		p.Rooms = *in.Rooms
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	if in.Furnished != nil {
		p.Furnished = *in.Furnished
	}
	if in.City != nil {
		p.City = *in.City
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.PostalCode != nil {
		p.PostalCode = *in.PostalCode
	}
	if in.Latitude != nil {
		p.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		p.Longitude = in.Longitude
	}
	if in.PublishedAt != nil {
		p.PublishedAt = *in.PublishedAt
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}
