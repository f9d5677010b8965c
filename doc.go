// Package petmatch 是一个宠物匹配服务：
//
//   - 属性推荐：目录与查询统一编码（z-score + one-hot），余弦相似度排序，
//     阈值与属性严格匹配过滤后返回，最多展示 3 张图片
//   - 以图搜宠：VGG16 特征由模型服务提取，与预先构建的特征库逐条比较，返回最相似的 3 只
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Rank → Filter → ReRank → PostProcess），可由 YAML 配置
// - Labels-first: labels 全链路透传，记录名次与过滤原因，便于 explain / 观测
// - 一次加载、只读共享：目录、特征库、模型客户端在启动时构建，请求之间不共享可变状态
package petmatch

import "github.com/rushteam/petmatch/pipeline"

// 轻量 facade：便于直接 import "petmatch" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRank        = pipeline.KindRank
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
