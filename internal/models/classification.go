// internal/models/classification.go
package models

// Category 分类信息
// Slug 始终为小写ASCII、连字符连接，未由模型提供时根据Name确定性派生
type Category struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsNew       bool   `json:"is_new"`
}

// Tag 标签
type Tag struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color,omitempty"`
}

// ClassificationResult 分类结果，Tags数量上限为5
type ClassificationResult struct {
	Category Category `json:"category"`
	Tags     []Tag    `json:"tags"`
}

// MaxClassificationTags 单条内容允许携带的标签上限
const MaxClassificationTags = 5
