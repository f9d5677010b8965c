// Package images 提供图片源（本地目录、MinIO 桶）与展示地址解析。
package images

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/rushteam/petmatch/core"
)

// Source 是图片源的抽象。名称即图片标识（basename），不包含目录。
//
// 实现：
//   - DirSource：本地目录
//   - MinioSource：MinIO / S3 兼容对象存储
type Source interface {
	// Name 返回图片源名称（用于日志/监控）
	Name() string

	// List 列出图片源中的全部文件名，顺序稳定
	List(ctx context.Context) ([]string, error)

	// Open 打开一张图片；不存在或名称非法时返回 NOT_FOUND
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// supportedExts 特征库只收录这些扩展名（大小写不敏感）
var supportedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsSupportedImage 判断文件名是否是可收录的图片
func IsSupportedImage(name string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(name))]
}

// FilterSupported 保留可收录的图片名，顺序不变
func FilterSupported(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if IsSupportedImage(n) {
			out = append(out, n)
		}
	}
	return out
}

// validName 拒绝空名、路径分隔符与上级目录引用
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}

func notFound(name string, err error) error {
	return core.WrapDomainError(core.ModuleImages, core.ErrorCodeNotFound, "images: image not found: "+name, err)
}
