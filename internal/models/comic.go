// internal/models/comic.go
package models

// ComicScript 漫画台本，四层严格从属的树状结构：
// ComicScript → Volume → Episode → Page → Panel
// 整棵树由单次模型响应一次性产出，不存在部分构建的合法状态
type ComicScript struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Style       string  `json:"style,omitempty"`
	Volumes     []Volume `json:"volumes"`
}

// Volume 分卷
type Volume struct {
	VolumeNumber int       `json:"volume_number"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

// Episode 章节
type Episode struct {
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title"`
	Summary       string `json:"summary,omitempty"`
	Pages         []Page `json:"pages"`
}

// Page 页面，页内画格编号从1开始连续
type Page struct {
	PageNumber int     `json:"page_number"`
	Panels     []Panel `json:"panels"`
}

// Panel 画格
type Panel struct {
	PanelNumber      int      `json:"panel_number"`
	SceneDescription string   `json:"scene_description"`
	Dialogue         string   `json:"dialogue"`
	Narration        string   `json:"narration"`
	Emotion          string   `json:"emotion"`
	CameraAngle      string   `json:"camera_angle"`
	Characters       []string `json:"characters"`
}
