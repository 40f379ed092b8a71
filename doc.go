// Package cookrec 是一个菜谱推荐服务工具包。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → ReRank → PostProcess）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - 协同过滤召回（User-based CF）+ 热门兜底 + TTL 结果缓存
package cookrec

import "github.com/foodiecorner/cookrec/pipeline"

// 轻量 facade：便于用户直接 import "cookrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
