package core

// 目录列名。既是 CSV 表头，也是查询 JSON 的字段名，也是编码器 Schema 中的字段标识。
const (
	FieldName         = "Name"
	FieldType         = "Type"
	FieldAge          = "Age(months)"
	FieldGender       = "Gender"
	FieldMaturitySize = "MaturitySize"
	FieldFurLength    = "FurLength"
	FieldFee          = "Fee"
	FieldColor        = "Color1_Name"
	FieldBreed        = "Breed1_Name"
	FieldHealth       = "Health"
	FieldImagePaths   = "image_paths"
)

// Pet 是目录中的一条宠物记录（CatalogRecord）。
// 加载后不可变，整个进程生命周期内只读共享。
type Pet struct {
	Name         string
	Type         string
	Gender       string
	MaturitySize string
	FurLength    string
	Color        string
	Breed        string
	Health       string
	AgeMonths    float64
	Fee          float64

	// ImagePaths 有序的图片路径列表，文件名（basename）即图片标识
	ImagePaths []string
}

// Attr 按列名读取字段值：类别字段返回 string，数值字段返回 float64。
func (p *Pet) Attr(field string) (any, bool) {
	switch field {
	case FieldName:
		return p.Name, true
	case FieldType:
		return p.Type, true
	case FieldGender:
		return p.Gender, true
	case FieldMaturitySize:
		return p.MaturitySize, true
	case FieldFurLength:
		return p.FurLength, true
	case FieldColor:
		return p.Color, true
	case FieldBreed:
		return p.Breed, true
	case FieldHealth:
		return p.Health, true
	case FieldAge:
		return p.AgeMonths, true
	case FieldFee:
		return p.Fee, true
	default:
		return nil, false
	}
}

// Preferences 是一次推荐请求的查询条件（QueryPreferences），请求级生命周期。
//
// 数值字段使用指针，以区分"未提供"和"值为 0"。
// 所有字段必填，由 pkg/validation 根据 validate 标签校验；Breed / Health 不参与默认编码。
type Preferences struct {
	Type         string   `json:"Type" validate:"required"`
	Gender       string   `json:"Gender" validate:"required"`
	MaturitySize string   `json:"MaturitySize" validate:"required"`
	FurLength    string   `json:"FurLength" validate:"required"`
	Color        string   `json:"Color1_Name" validate:"required"`
	AgeMonths    *float64 `json:"Age(months)" validate:"required"`
	Fee          *float64 `json:"Fee" validate:"required"`
	Breed        string   `json:"Breed1_Name" validate:"required"`
	Health       string   `json:"Health" validate:"required"`
}

// Attr 按列名读取查询字段；字段未提供时返回 false。
func (p *Preferences) Attr(field string) (any, bool) {
	str := func(s string) (any, bool) { return s, s != "" }
	switch field {
	case FieldType:
		return str(p.Type)
	case FieldGender:
		return str(p.Gender)
	case FieldMaturitySize:
		return str(p.MaturitySize)
	case FieldFurLength:
		return str(p.FurLength)
	case FieldColor:
		return str(p.Color)
	case FieldBreed:
		return str(p.Breed)
	case FieldHealth:
		return str(p.Health)
	case FieldAge:
		if p.AgeMonths == nil {
			return nil, false
		}
		return *p.AgeMonths, true
	case FieldFee:
		if p.Fee == nil {
			return nil, false
		}
		return *p.Fee, true
	default:
		return nil, false
	}
}

// Record 是可以按列名取值的记录，Pet 与 Preferences 都实现了它。
type Record interface {
	Attr(field string) (any, bool)
}

var (
	_ Record = (*Pet)(nil)
	_ Record = (*Preferences)(nil)
)

// PetResult 是推荐 / 匹配接口返回的单条结果。
// 推荐结果填充 Images（最多 3 张）；匹配结果填充 ImageURL。
type PetResult struct {
	Name         string   `json:"name"`
	Breed        string   `json:"breed"`
	Similarity   float64  `json:"similarity"`
	Type         string   `json:"type"`
	Gender       string   `json:"gender"`
	Age          int      `json:"age"`
	Color        string   `json:"color"`
	MaturitySize string   `json:"maturity_size"`
	FurLength    string   `json:"fur_length"`
	Fee          float64  `json:"fee"`
	Health       string   `json:"health"`
	Images       []string `json:"images,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// NewPetResult 以 Pet 的属性和分数构造结果。
func NewPetResult(p *Pet, score float64) PetResult {
	return PetResult{
		Name:         p.Name,
		Breed:        p.Breed,
		Similarity:   score,
		Type:         p.Type,
		Gender:       p.Gender,
		Age:          int(p.AgeMonths),
		Color:        p.Color,
		MaturitySize: p.MaturitySize,
		FurLength:    p.FurLength,
		Fee:          p.Fee,
		Health:       p.Health,
	}
}
