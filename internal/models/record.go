// internal/models/record.go
package models

// TimelineEvent 时间轴事件（生成产物，落库前的瞬态结构）
// StartDate 和 Description 为必填字段，缺失的记录在解析阶段即被丢弃
type TimelineEvent struct {
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
	Description string  `json:"description"`
}

// CoupletDraft 对联草稿
// LowerLine（下联）为必填；旧版两字段编码下 UpperLine 允许为空
type CoupletDraft struct {
	UpperLine        string `json:"upper_line"`
	LowerLine        string `json:"lower_line"`
	HorizontalScroll string `json:"horizontal_scroll"`
	Appreciation     string `json:"appreciation"`
}

// 横批缺失时的占位符
const DefaultHorizontalScroll = "横批待定"
