package storage

import (
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	// 注册常见光栅格式的解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrNotAnImage    = errors.New("file is not a decodable image")
)

// ImageStore 本地盘图片存储。库表只存返回的相对引用
type ImageStore struct {
	baseDir  string
	baseURL  string // 对外访问前缀，如 /media/property_images
	maxBytes int64
	log      *zap.Logger
}

func NewImageStore(dir, baseURL string, maxMB int, l *zap.Logger) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &ImageStore{
		baseDir:  dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: int64(maxMB) << 20,
		log:      l,
	}, nil
}

// Validate 上传前校验：大小上限 + 能被解码成光栅图
func (s *ImageStore) Validate(fh *multipart.FileHeader) error {
	if fh.Size > s.maxBytes {
		return ErrImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return ErrNotAnImage
	}
	return nil
}

// Save 落盘并返回相对引用（baseURL/uuid.ext）。调用方负责先 Validate
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	dst, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	s.log.Debug("image stored",
		zap.String("file", name),
		zap.Int64("size", fh.Size),
		zap.String("original", fh.Filename),
	)
	return s.baseURL + "/" + name, nil
}

// Remove 尽力删除，失败只记日志（孤儿文件可由外部清理任务处理）
func (s *ImageStore) Remove(ref string) {
	p := s.FullPath(ref)
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		s.log.Warn("remove image blob", zap.String("ref", ref), zap.Error(err))
	}
}

// FullPath 相对引用映射回文件路径；不在本 store 前缀下的引用返回空
func (s *ImageStore) FullPath(ref string) string {
	if !strings.HasPrefix(ref, s.baseURL+"/") {
		return ""
	}
	name := path.Base(strings.TrimPrefix(ref, s.baseURL+"/"))
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return filepath.Join(s.baseDir, name)
}

// BaseURL 静态挂载用
func (s *ImageStore) BaseURL() string { return s.baseURL }
func (s *ImageStore) BaseDir() string { return s.baseDir }
