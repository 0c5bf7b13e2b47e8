package listing

import (
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
	mdw "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/middleware"
	resp "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/response"
)

type Handler struct {
	svc       *Service
	maxImages int
	log       *zap.Logger
}

func NewHandler(svc *Service, maxImages int, log *zap.Logger) *Handler {
	return &Handler{svc: svc, maxImages: maxImages, log: log}
}

type listQ struct {
	OwnerID  string   `form:"owner_id"`
	City     string   `form:"city"`
	Type     string   `form:"property_type"`
	Status   string   `form:"status"`
	MinPrice *float64 `form:"min_price"`
	MaxPrice *float64 `form:"max_price"`
	Page     int      `form:"page,default=1"`
	Size     int      `form:"size,default=20"`
}

// List 公共列表，只吐 is_active 的
func (h *Handler) List(c *gin.Context) {
	var q listQ
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	items, total, err := h.svc.List(c.Request.Context(), domain.ListingFilter{
		OwnerID:      q.OwnerID,
		City:         q.City,
		PropertyType: domain.PropertyType(q.Type),
		Status:       domain.ListingStatus(q.Status),
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		ActiveOnly:   true,
		Offset:       (q.Page - 1) * q.Size,
		Limit:        q.Size,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{
		"list": h.viewList(c, items), "total": total, "page": q.Page, "size": q.Size,
	}))
}

// Mine 自己的房源，含下架的
func (h *Handler) Mine(c *gin.Context) {
	var q listQ
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	items, total, err := h.svc.List(c.Request.Context(), domain.ListingFilter{
		OwnerID:    c.GetString("userId"),
		ActiveOnly: false,
		Offset:     (q.Page - 1) * q.Size,
		Limit:      q.Size,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{
		"list": h.viewList(c, items), "total": total, "page": q.Page, "size": q.Size,
	}))
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(h.view(c, p)))
}

type createForm struct {
	Title       string     `form:"title"`
	Description string     `form:"description"`
	Price       float64    `form:"price"`
	Status      string     `form:"status"`
	Type        string     `form:"property_type"`
	SurfaceArea int        `form:"surface_area"`
	Rooms       int        `form:"rooms"`
	Bedrooms    int        `form:"bedrooms"`
	Bathrooms   int        `form:"bathrooms"`
	Furnished   bool       `form:"furnished"`
	City        string     `form:"city"`
	Address     string     `form:"address"`
	PostalCode  string     `form:"postal_code"`
	Latitude    *float64   `form:"latitude"`
	Longitude   *float64   `form:"longitude"`
	PublishedAt *time.Time `form:"published_at" time_format:"2006-01-02T15:04:05Z07:00"`
	OwnerID     string     `form:"user_id"`
	CoverIndex  int        `form:"cover_index,default=0"`
}

func (h *Handler) Create(c *gin.Context) {
	var f createForm
	if err := c.ShouldBind(&f); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	images, err := h.formImages(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), mdw.CallerIdentity(c), CreateInput{
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		Status:      f.Status,
		Type:        f.Type,
		SurfaceArea: f.SurfaceArea,
		Rooms:       f.Rooms,
		Bedrooms:    f.Bedrooms,
		Bathrooms:   f.Bathrooms,
		Furnished:   f.Furnished,
		City:        f.City,
		Address:     f.Address,
		PostalCode:  f.PostalCode,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		PublishedAt: f.PublishedAt,
		OwnerID:     f.OwnerID,
		CoverIndex:  f.CoverIndex,
	}, images)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(h.view(c, p)))
}

type updateForm struct {
	Title       *string    `form:"title"`
	Description *string    `form:"description"`
	Price       *float64   `form:"price"`
	Status      *string    `form:"status"`
	Type        *string    `form:"property_type"`
	SurfaceArea *int       `form:"surface_area"`
	Rooms       *int       `form:"rooms"`
	Bedrooms    *int       `form:"bedrooms"`
	Bathrooms   *int       `form:"bathrooms"`
	Furnished   *bool      `form:"furnished"`
	City        *string    `form:"city"`
	Address     *string    `form:"address"`
	PostalCode  *string    `form:"postal_code"`
	Latitude    *float64   `form:"latitude"`
	Longitude   *float64   `form:"longitude"`
	PublishedAt *time.Time `form:"published_at" time_format:"2006-01-02T15:04:05Z07:00"`
	IsActive    *bool      `form:"is_active"`
	CoverIndex  *int       `form:"cover_index"`
}

func (h *Handler) Update(c *gin.Context) {
	var f updateForm
	if err := c.ShouldBind(&f); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	images, err := h.formImages(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.svc.Update(c.Request.Context(), mdw.CallerIdentity(c), c.Param("id"), UpdateInput{
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		Status:      f.Status,
		Type:        f.Type,
		SurfaceArea: f.SurfaceArea,
		Rooms:       f.Rooms,
		Bedrooms:    f.Bedrooms,
		Bathrooms:   f.Bathrooms,
		Furnished:   f.Furnished,
		City:        f.City,
		Address:     f.Address,
		PostalCode:  f.PostalCode,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		PublishedAt: f.PublishedAt,
		IsActive:    f.IsActive,
		CoverIndex:  f.CoverIndex,
	}, images)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(h.view(c, p)))
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), mdw.CallerIdentity(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(nil))
}

func (h *Handler) formImages(c *gin.Context) ([]*multipart.FileHeader, error) {
	if c.ContentType() != "multipart/form-data" {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.FieldErrors{"images": "malformed multipart form"}
	}
	files := form.File["images"]
	if len(files) > h.maxImages {
		return nil, domain.FieldErrors{"images": "too many files"}
	}
	return files, nil
}

// view 有请求上下文时把图片引用补成绝对地址
func (h *Handler) view(c *gin.Context, p *domain.Property) *domain.Property {
	base := requestBase(c)
	if base == "" {
		return p
	}
	cp := *p
	cp.Images = make([]domain.PropertyImage, len(p.Images))
	for i, img := range p.Images {
		if strings.HasPrefix(img.ImageURL, "/") {
			img.ImageURL = base + img.ImageURL
		}
		cp.Images[i] = img
	}
	return &cp
}

func (h *Handler) viewList(c *gin.Context, items []domain.Property) []domain.Property {
	out := make([]domain.Property, len(items))
	for i := range items {
		out[i] = *h.view(c, &items[i])
	}
	return out
}

func requestBase(c *gin.Context) string {
	if c == nil || c.Request == nil || c.Request.Host == "" {
		return ""
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (h *Handler) fail(c *gin.Context, err error) {
	if resp.IsInternal(err) {
		h.log.Error("listing request failed",
			zap.String("path", c.FullPath()),
			zap.String("rid", c.GetString("X-Request-ID")),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, resp.FromError(err))
}
