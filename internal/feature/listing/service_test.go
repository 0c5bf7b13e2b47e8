package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
)

// ---------- 内存假仓库 ----------

type memProps struct {
	props  map[string]domain.Property
	images map[string][]domain.PropertyImage
}

func newMemProps() *memProps {
	return &memProps{
		props:  map[string]domain.Property{},
		images: map[string][]domain.PropertyImage{},
	}
}

func (m *memProps) CreateWithImages(_ context.Context, p *domain.Property) error {
	cp := *p
	imgs := append([]domain.PropertyImage(nil), p.Images...)
	cp.Images = nil
	m.props[p.ID] = cp
	m.images[p.ID] = imgs
	return nil
}

func (m *memProps) FindByID(_ context.Context, id string) (*domain.Property, error) {
	p, ok := m.props[id]
	if !ok {
		return nil, nil
	}
	imgs := append([]domain.PropertyImage(nil), m.images[id]...)
	sort.SliceStable(imgs, func(i, j int) bool {
		return imgs[i].IsCover && !imgs[j].IsCover
	})
	p.Images = imgs
	return &p, nil
}

func (m *memProps) List(_ context.Context, f domain.ListingFilter) ([]domain.Property, int64, error) {
	var out []domain.Property
	for id := range m.props {
		p, _ := m.FindByID(context.Background(), id)
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.OwnerID != "" && p.UserID != f.OwnerID {
			continue
		}
		if f.City != "" && p.City != f.City {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	total := int64(len(out))
	if f.Offset > len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memProps) UpdateWithImages(_ context.Context, p *domain.Property, newImages []domain.PropertyImage, resetCover bool) error {
	if _, ok := m.props[p.ID]; !ok {
		return domain.ErrNotFound
	}
	if resetCover {
		imgs := m.images[p.ID]
		for i := range imgs {
			imgs[i].IsCover = false
		}
	}
	cp := *p
	cp.Images = nil
	cp.UpdatedAt = time.Now()
	m.props[p.ID] = cp
	m.images[p.ID] = append(m.images[p.ID], newImages...)
	return nil
}

func (m *memProps) Delete(_ context.Context, id string) error {
	if _, ok := m.props[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.props, id)
	delete(m.images, id)
	return nil
}

func (m *memProps) SetActive(_ context.Context, id string, active bool) error {
	p, ok := m.props[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsActive = active
	m.props[id] = p
	return nil
}

type memUsers struct{ ids map[string]bool }

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if m.ids[id] {
		return &domain.User{ID: id}, nil
	}
	return nil, nil
}
func (m *memUsers) Create(_ context.Context, _ *domain.User) error { return nil }

func (m *memUsers) FindByUsername(_ context.Context, _ string) (*domain.User, error) {
	return nil, nil
}

func (m *memUsers) FindByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, nil
}

func (m *memUsers) List(_ context.Context, _ string, _, _ int, _ bool) ([]domain.User, int64, error) {
	return nil, 0, nil
}

func (m *memUsers) Update(_ context.Context, _ *domain.User) error { return nil }

func (m *memUsers) SoftDelete(_ context.Context, _ string) error { return nil }

// ---------- 假 blob 存储 ----------

type memBlobs struct {
	maxBytes int64
	saved    map[string]bool
	removed  []string
	n        int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{maxBytes: 5 << 20, saved: map[string]bool{}}
}

func (b *memBlobs) Validate(fh *multipart.FileHeader) error {
	if fh.Size > b.maxBytes {
		return errors.New("image exceeds size limit")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, 4)
	if _, err := f.Read(head); err != nil || !bytes.Equal(head, []byte("\x89PNG")) {
		return errors.New("file is not a decodable image")
	}
	return nil
}

func (b *memBlobs) Save(fh *multipart.FileHeader) (string, error) {
	b.n++
	ref := fmt.Sprintf("/media/test/%d-%s", b.n, fh.Filename)
	b.saved[ref] = true
	return ref, nil
}

func (b *memBlobs) Remove(ref string) {
	delete(b.saved, ref)
	b.removed = append(b.removed, ref)
}

// ---------- helpers ----------

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("images", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()
	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["images"][0]
}

func pngBytes(extra int) []byte {
	b := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	return append(b, bytes.Repeat([]byte{1}, extra)...)
}

type env struct {
	svc   *Service
	props *memProps
	blobs *memBlobs
}

func newEnv() *env {
	props := newMemProps()
	blobs := newMemBlobs()
	users := &memUsers{ids: map[string]bool{"u1": true, "u2": true, "root": true}}
	svc := NewService(props, users, blobs, nil, 0, zap.NewNop())
	return &env{svc: svc, props: props, blobs: blobs}
}

var (
	owner = domain.Identity{UID: "u1", Username: "zineb", Role: domain.RoleIndividual}
	other = domain.Identity{UID: "u2", Username: "omar", Role: domain.RoleAgent}
	admin = domain.Identity{UID: "root", Username: "root", Role: domain.RoleAdmin}
)

func cozyStudio() CreateInput {
	return CreateInput{
		Title:       "Cozy Studio",
		Description: "Bright studio near the medina",
		Price:       5000,
		Status:      "for_rent",
		Type:        "studio",
		SurfaceArea: 45,
		Rooms:       1,
		Bedrooms:    1,
		Bathrooms:   1,
		City:        "Casablanca",
		Address:     "12 Hassan II",
	}
}

// ---------- tests ----------

func TestCreateGetRoundTrip(t *testing.T) {
	e := newEnv()
	before := time.Now()
	p, err := e.svc.Create(context.Background(), owner, cozyStudio(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Error("no id assigned")
	}
	if p.UserID != "u1" {
		t.Errorf("owner = %q", p.UserID)
	}
	if len(p.Images) != 0 {
		t.Errorf("images = %v", p.Images)
	}
	if p.PublishedAt.Before(before.Add(-time.Second)) || p.PublishedAt.After(time.Now().Add(time.Second)) {
		t.Errorf("published_at not near now: %v", p.PublishedAt)
	}
	if !p.IsActive {
		t.Error("new listing must be active")
	}

	got, err := e.svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	in := cozyStudio()
	if got.Title != in.Title || got.Description != in.Description ||
		got.Price != in.Price || string(got.Status) != in.Status ||
		string(got.PropertyType) != in.Type || got.SurfaceArea != in.SurfaceArea ||
		got.Rooms != in.Rooms || got.Bedrooms != in.Bedrooms || got.Bathrooms != in.Bathrooms ||
		got.City != in.City || got.Address != in.Address {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCreateValidationRejected(t *testing.T) {
	e := newEnv()
	in := cozyStudio()
	in.Title = ""
	in.Price = -10
	_, err := e.svc.Create(context.Background(), owner, in, nil)
	var fe domain.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if fe["title"] == "" || fe["price"] == "" {
		t.Errorf("expected title+price errors: %v", fe)
	}
	if len(e.props.props) != 0 {
		t.Error("invalid listing must not be persisted")
	}
}

func TestCreateOwnerResolution(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// 没有任何可解析的归属：校验错误，绝不默认
	_, err := e.svc.Create(ctx, domain.Identity{}, cozyStudio(), nil)
	var fe domain.FieldErrors
	if !errors.As(err, &fe) || fe["userId"] == "" {
		t.Fatalf("expected owner validation error, got %v", err)
	}

	// 普通用户不能替别人发
	in := cozyStudio()
	in.OwnerID = "u2"
	if _, err := e.svc.Create(ctx, owner, in, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// 管理员可以
	p, err := e.svc.Create(ctx, admin, in, nil)
	if err != nil {
		t.Fatalf("admin create for u2: %v", err)
	}
	if p.UserID != "u2" {
		t.Errorf("owner = %q", p.UserID)
	}

	// 但目标账号必须存在
	in.OwnerID = "ghost"
	_, err = e.svc.Create(ctx, admin, in, nil)
	if !errors.As(err, &fe) || fe["userId"] == "" {
		t.Fatalf("expected unknown owner error, got %v", err)
	}
}

func TestListOrderedByPublishedAtDesc(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	now := time.Now()

	mk := func(title string, at time.Time) {
		in := cozyStudio()
		in.Title = title
		in.PublishedAt = &at
		if _, err := e.svc.Create(ctx, owner, in, nil); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	mk("B", now.Add(-2*time.Hour))
	mk("A", now)
	// 回填的早于当前最旧的，应排到最后而不是最前
	mk("C", now.Add(-24*time.Hour))

	items, total, err := e.svc.List(ctx, domain.ListingFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("total=%d len=%d", total, len(items))
	}
	gotOrder := []string{items[0].Title, items[1].Title, items[2].Title}
	wantOrder := []string{"A", "B", "C"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	e := newEnv()
	if _, err := e.svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAuthorizationAndPartialPatch(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.svc.Create(ctx, owner, cozyStudio(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 非房主非管理员：Forbidden，数据原样
	newTitle := "Hacked"
	_, err = e.svc.Update(ctx, other, p.ID, UpdateInput{Title: &newTitle}, nil)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	unchanged, _ := e.svc.Get(ctx, p.ID)
	if unchanged.Title != "Cozy Studio" {
		t.Errorf("property mutated by forbidden update: %q", unchanged.Title)
	}

	// 房主改价：其余字段保持
	newPrice := 6200.0
	got, err := e.svc.Update(ctx, owner, p.ID, UpdateInput{Price: &newPrice}, nil)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if got.Price != 6200 || got.Title != "Cozy Studio" || got.City != "Casablanca" {
		t.Errorf("partial patch broke fields: %+v", got)
	}

	// 管理员也能改
	soldStatus := "sold"
	if _, err := e.svc.Update(ctx, admin, p.ID, UpdateInput{Status: &soldStatus}, nil); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	// patch 之后整体还要过校验
	badPrice := -5.0
	_, err = e.svc.Update(ctx, owner, p.ID, UpdateInput{Price: &badPrice}, nil)
	var fe domain.FieldErrors
	if !errors.As(err, &fe) || fe["price"] == "" {
		t.Fatalf("expected price error, got %v", err)
	}
}

func TestImagesAtomicAllOrNothing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	good := fileHeader(t, "a.png", pngBytes(0))
	oversize := fileHeader(t, "big.png", pngBytes(6<<20))
	corrupt := fileHeader(t, "junk.png", []byte("definitely not an image"))

	_, err := e.svc.Create(ctx, owner, cozyStudio(), []*multipart.FileHeader{good, oversize, corrupt})
	var fe domain.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if fe["images[1]"] == "" || fe["images[2]"] == "" {
		t.Errorf("expected per-file errors: %v", fe)
	}
	if _, ok := fe["images[0]"]; ok {
		t.Errorf("valid file flagged: %v", fe)
	}
	// 整单拒绝：房源没建，盘上也没留文件
	if len(e.props.props) != 0 {
		t.Error("property persisted despite image errors")
	}
	if len(e.blobs.saved) != 0 {
		t.Error("blobs leaked")
	}
}

func TestCreateWithImagesAndCover(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	imgs := []*multipart.FileHeader{
		fileHeader(t, "front.png", pngBytes(10)),
		fileHeader(t, "kitchen.png", pngBytes(20)),
	}
	p, err := e.svc.Create(ctx, owner, cozyStudio(), imgs)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(p.Images) != 2 {
		t.Fatalf("images = %d", len(p.Images))
	}
	// 默认第一张是封面，且排最前
	if !p.Images[0].IsCover || p.Images[1].IsCover {
		t.Errorf("cover flags: %+v", p.Images)
	}
	if p.Images[0].PropertyID != p.ID {
		t.Error("image not bound to property")
	}
}

func TestUpdateAppendsImagesAndSwapsCover(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.svc.Create(ctx, owner, cozyStudio(), []*multipart.FileHeader{
		fileHeader(t, "old.png", pngBytes(1)),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	coverIdx := 0
	got, err := e.svc.Update(ctx, owner, p.ID, UpdateInput{CoverIndex: &coverIdx}, []*multipart.FileHeader{
		fileHeader(t, "new.png", pngBytes(2)),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Images) != 2 {
		t.Fatalf("append expected 2 images, got %d", len(got.Images))
	}
	covers := 0
	for _, img := range got.Images {
		if img.IsCover {
			covers++
		}
	}
	if covers != 1 {
		t.Errorf("exactly one cover expected, got %d", covers)
	}
	if !got.Images[0].IsCover {
		t.Error("cover not first")
	}
}

func TestDeleteCascades(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.svc.Create(ctx, owner, cozyStudio(), []*multipart.FileHeader{
		fileHeader(t, "a.png", pngBytes(1)),
		fileHeader(t, "b.png", pngBytes(2)),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 非房主删除被拒
	if err := e.svc.Delete(ctx, other, p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := e.svc.Delete(ctx, owner, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.svc.Get(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if len(e.props.images[p.ID]) != 0 {
		t.Error("image rows survived delete")
	}
	if len(e.blobs.removed) != 2 {
		t.Errorf("blobs removed = %d, want 2", len(e.blobs.removed))
	}

	// 再删报 NotFound
	if err := e.svc.Delete(ctx, owner, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetActiveGatesPublicList(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.svc.Create(ctx, owner, cozyStudio(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.svc.SetActive(ctx, p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	items, _, err := e.svc.List(ctx, domain.ListingFilter{ActiveOnly: true})
	if err != nil || len(items) != 0 {
		t.Errorf("deactivated listing still public: %v %v", items, err)
	}
	mine, _, err := e.svc.List(ctx, domain.ListingFilter{OwnerID: "u1"})
	if err != nil || len(mine) != 1 {
		t.Errorf("owner view must include inactive: %v %v", mine, err)
	}
}
