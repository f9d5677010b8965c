package core

import "github.com/rushteam/petmatch/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选记录、编码向量、分数、展示图片、标签。
// Labels 用于解释与观测；Score 用于排序决策。
type Item struct {
	ID     string  // 候选标识（宠物名）
	Index  int     // 在目录 / 候选矩阵中的行号
	Pet    *Pet    // 对应的目录记录
	Vector []float64
	Score  float64

	// Images 展示用的图片地址，由 rerank.ImageNode 填充
	Images []string
	Labels map[string]utils.Label
}

func NewItem(index int, pet *Pet, vector []float64) *Item {
	it := &Item{
		Index:  index,
		Pet:    pet,
		Vector: vector,
		Labels: make(map[string]utils.Label),
	}
	if pet != nil {
		it.ID = pet.Name
	}
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Result 把 Item 转换为对外输出结构。
func (it *Item) Result() PetResult {
	r := NewPetResult(it.Pet, it.Score)
	r.Images = it.Images
	return r
}
