// internal/models/meta.go
package models

// TimelineMeta 时间轴摘要元信息（timeline-summary域的生成结果）
type TimelineMeta struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Era     string `json:"era,omitempty"`
	Icon    string `json:"icon"`
	Color   string `json:"color,omitempty"`
}

// CoupletSetMeta 对联集元信息，供发布流程使用
type CoupletSetMeta struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Theme        string   `json:"theme,omitempty"`
	Icon         string   `json:"icon"`
	CategoryHint string   `json:"category_hint,omitempty"`
	TagHints     []string `json:"tag_hints,omitempty"`
}
