package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pkg/logging"
)

// LoadFile 从 CSV 文件加载目录
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV 从带表头的 CSV 加载目录。
//
// 表头中缺失的列不会导致加载失败，由使用方（编码器）在需要时报告配置错误。
// 数值列无法解析时返回 INVALID_INPUT 错误，并指明行号（从 1 开始，不含表头）与列名。
// 被多条记录引用的图片标识会以 warn 级别记录。
func LoadCSV(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	columns := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
		columns = append(columns, h)
	}

	var pets []*core.Pet
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row %d: %w", row, err)
		}
		p, err := parseRow(rec, idx, row)
		if err != nil {
			return nil, err
		}
		pets = append(pets, p)
	}

	c := New(pets, columns...)
	for id, rows := range c.DuplicateImages() {
		logging.Warn().Str("image", id).Ints("rows", rows).Msg("image referenced by several catalog records, first record wins")
	}
	return c, nil
}

func parseRow(rec []string, idx map[string]int, row int) (*core.Pet, error) {
	get := func(col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}
	num := func(col string) (float64, error) {
		s, ok := get(col)
		if !ok {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput,
				fmt.Sprintf("catalog: row %d column %q: invalid numeric value %q", row, col, s), err)
		}
		return v, nil
	}

	p := &core.Pet{}
	p.Name, _ = get(core.FieldName)
	p.Type, _ = get(core.FieldType)
	p.Gender, _ = get(core.FieldGender)
	p.MaturitySize, _ = get(core.FieldMaturitySize)
	p.FurLength, _ = get(core.FieldFurLength)
	p.Color, _ = get(core.FieldColor)
	p.Breed, _ = get(core.FieldBreed)
	p.Health, _ = get(core.FieldHealth)

	var err error
	if p.AgeMonths, err = num(core.FieldAge); err != nil {
		return nil, err
	}
	if p.Fee, err = num(core.FieldFee); err != nil {
		return nil, err
	}
	if s, ok := get(core.FieldImagePaths); ok {
		p.ImagePaths = ParseImagePaths(s)
	}
	return p, nil
}

// ParseImagePaths 解析 image_paths 列。
//
// 接受以下写法，内容只做字符串切分，不会被当作代码执行：
//   - ['a.jpg', 'b.jpg']
//   - ["a.jpg", "b.jpg"]
//   - [a.jpg, b.jpg]
//   - 'a.jpg' / a.jpg
//
// 空元素被丢弃，顺序保持不变。
func ParseImagePaths(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `'"`)
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
