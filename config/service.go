package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServiceConfig 是推荐服务的顶层配置（YAML）。
type ServiceConfig struct {
	// HTTP 服务监听地址，默认 ":8080"
	HTTPAddr string `yaml:"http_addr"`

	// Redis 连接配置；Addr 为空时使用内存存储（开发 / 测试）
	Redis RedisConfig `yaml:"redis"`

	// Cache 推荐结果缓存配置
	Cache CacheConfig `yaml:"cache"`

	// Recommend 推荐算法参数
	Recommend RecommendConfig `yaml:"recommend"`

	// Feast 特征服务配置（可选）
	Feast FeastConfig `yaml:"feast"`

	// PipelineFile 是后置 Pipeline 配置文件路径（可选）
	PipelineFile string `yaml:"pipeline_file"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	// TTLSeconds 缓存时长（秒），<= 0 时取默认值（1 小时）
	TTLSeconds int `yaml:"ttl_seconds"`

	// Version 缓存 key 版本号，默认 "v1"
	Version string `yaml:"version"`
}

type RecommendConfig struct {
	// Neighbors 参与投票的近邻数量 K，<= 0 时取默认值
	Neighbors int `yaml:"neighbors"`

	// PoolSize 每用户缓存的候选池大小，<= 0 时取默认值
	PoolSize int `yaml:"pool_size"`

	// Metric 相似度度量："cosine" / "jaccard"，空取默认值
	Metric string `yaml:"metric"`
}

type FeastConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Project  string   `yaml:"project"`
	Features []string `yaml:"features"`
}

// Enabled 报告是否配置了 Feast 特征服务。
func (c FeastConfig) Enabled() bool { return c.Host != "" }

// LoadService 从 YAML 文件加载服务配置并填充默认值。
func LoadService(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg ServiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultService 返回全默认值的服务配置（无配置文件时使用）。
func DefaultService() *ServiceConfig {
	cfg := &ServiceConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ServiceConfig) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.Cache.Version == "" {
		c.Cache.Version = "v1"
	}
}
