// Package catalog 保存宠物目录（CatalogRecord 列表），启动时从 CSV 加载，之后只读共享。
package catalog

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/rushteam/petmatch/core"
)

// Catalog 是不可变的宠物目录。
// 行号即记录在目录中的位置，推荐与匹配都以行号引用记录。
type Catalog struct {
	pets    []*core.Pet
	columns map[string]bool

	// byImage 图片标识（basename）-> 首个包含它的行号
	byImage map[string]int
	// dups 被多行引用的图片标识 -> 全部行号
	dups map[string][]int

	version uint64
}

// AllColumns 是完整目录应包含的全部列
var AllColumns = []string{
	core.FieldName,
	core.FieldType,
	core.FieldAge,
	core.FieldGender,
	core.FieldMaturitySize,
	core.FieldFurLength,
	core.FieldFee,
	core.FieldColor,
	core.FieldBreed,
	core.FieldHealth,
	core.FieldImagePaths,
}

// New 用已解析的记录构造目录。columns 为目录实际拥有的列，为空时视为拥有全部列。
func New(pets []*core.Pet, columns ...string) *Catalog {
	if len(columns) == 0 {
		columns = AllColumns
	}
	c := &Catalog{
		pets:    pets,
		columns: make(map[string]bool, len(columns)),
		byImage: make(map[string]int),
		dups:    make(map[string][]int),
	}
	for _, col := range columns {
		c.columns[col] = true
	}

	rows := make(map[string][]int)
	for i, p := range pets {
		seen := make(map[string]bool, len(p.ImagePaths))
		for _, ip := range p.ImagePaths {
			id := ImageID(ip)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := c.byImage[id]; !ok {
				c.byImage[id] = i
			}
			rows[id] = append(rows[id], i)
		}
	}
	for id, rs := range rows {
		if len(rs) > 1 {
			c.dups[id] = rs
		}
	}
	c.version = c.digest()
	return c
}

// Version 返回目录内容的摘要，内容（含列集合）相同的目录版本相同
func (c *Catalog) Version() uint64 {
	return c.version
}

func (c *Catalog) digest() uint64 {
	h := xxhash.New()
	cols := make([]string, 0, len(c.columns))
	for col := range c.columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	_, _ = h.WriteString(strings.Join(cols, ",") + "\n")

	for _, p := range c.pets {
		fields := []string{
			p.Name, p.Type, p.Gender, p.MaturitySize, p.FurLength, p.Color, p.Breed, p.Health,
			strconv.FormatFloat(p.AgeMonths, 'g', -1, 64),
			strconv.FormatFloat(p.Fee, 'g', -1, 64),
			strings.Join(p.ImagePaths, "|"),
		}
		_, _ = h.WriteString(strings.Join(fields, "\x1f") + "\n")
	}
	return h.Sum64()
}

// Len 返回记录数
func (c *Catalog) Len() int {
	return len(c.pets)
}

// Pet 返回第 i 行记录
func (c *Catalog) Pet(i int) *core.Pet {
	return c.pets[i]
}

// Pets 返回全部记录（只读）
func (c *Catalog) Pets() []*core.Pet {
	return c.pets
}

// Record 返回第 i 行，供编码器按列名取值
func (c *Catalog) Record(i int) core.Record {
	return c.pets[i]
}

// HasColumn 判断目录是否包含某列
func (c *Catalog) HasColumn(name string) bool {
	return c.columns[name]
}

// FindByImage 按图片标识查找记录：比较 basename，返回第一条包含该图片的记录。
func (c *Catalog) FindByImage(id string) (*core.Pet, int, bool) {
	i, ok := c.byImage[ImageID(id)]
	if !ok {
		return nil, -1, false
	}
	return c.pets[i], i, true
}

// DuplicateImages 返回被多条记录引用的图片标识及其行号
func (c *Catalog) DuplicateImages() map[string][]int {
	return c.dups
}

// ImageID 返回图片路径的标识（basename），兼容 "/" 与 "\" 分隔符。
func ImageID(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
