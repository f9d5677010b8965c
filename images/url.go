package images

import (
	"strings"

	"github.com/rushteam/petmatch/catalog"
)

// URLResolver 把图片路径转换为对外展示地址：{BaseURL}/images/{basename}
type URLResolver struct {
	BaseURL string
}

func NewURLResolver(baseURL string) *URLResolver {
	return &URLResolver{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve 返回图片展示地址；路径没有文件名时返回空串
func (r *URLResolver) Resolve(imagePath string) string {
	id := catalog.ImageID(imagePath)
	if id == "" {
		return ""
	}
	return strings.TrimRight(r.BaseURL, "/") + "/images/" + id
}
