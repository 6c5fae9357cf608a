// internal/services/classify_service.go
package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/InkMuseLab/InkMuseAI/internal/models"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

// taxonomyEntry 静态分类法表项
// 表只读，初始化后被所有并发调用共享，无需加锁
type taxonomyEntry struct {
	Name     string
	Slug     string
	Icon     string
	Color    string
	Keywords []string
}

// taxonomy 固定分类法，平分时按声明顺序先到先得
var taxonomy = []taxonomyEntry{
	{"历史人物", "historical-figures", "👤", "#8D6E63", []string{"人物", "皇帝", "将军", "名人", "传记", "生平", "emperor", "biography", "figure"}},
	{"军事战争", "military-war", "⚔️", "#B71C1C", []string{"战争", "战役", "军事", "军队", "武器", "battle", "war", "military"}},
	{"科学技术", "science-technology", "🔬", "#1565C0", []string{"科学", "科技", "技术", "发明", "物理", "化学", "实验", "science", "technology", "invention"}},
	{"文化艺术", "culture-arts", "🎨", "#6A1B9A", []string{"文化", "艺术", "绘画", "书法", "音乐", "戏曲", "art", "culture", "painting", "music"}},
	{"文学诗词", "literature-poetry", "📜", "#4E342E", []string{"文学", "诗词", "诗歌", "小说", "散文", "对联", "poem", "poetry", "literature", "novel"}},
	{"历史事件", "historical-events", "🏛️", "#795548", []string{"历史", "朝代", "王朝", "古代", "史实", "dynasty", "history", "ancient"}},
	{"地理探索", "geography-exploration", "🗺️", "#00695C", []string{"地理", "探险", "航海", "发现", "地图", "geography", "exploration", "voyage"}},
	{"经济贸易", "economy-trade", "💰", "#F9A825", []string{"经济", "贸易", "商业", "货币", "市场", "economy", "trade", "commerce"}},
	{"政治法律", "politics-law", "⚖️", "#37474F", []string{"政治", "法律", "制度", "改革", "变法", "politics", "law", "reform"}},
	{"哲学思想", "philosophy-thought", "💭", "#5E35B1", []string{"哲学", "思想", "儒家", "道家", "学派", "philosophy", "thought", "confucian"}},
	{"宗教信仰", "religion-belief", "🕊️", "#8E24AA", []string{"宗教", "佛教", "道教", "信仰", "寺庙", "religion", "buddhism", "temple"}},
	{"体育竞技", "sports", "🏅", "#2E7D32", []string{"体育", "运动", "比赛", "奥运", "竞技", "sports", "olympic", "athlete"}},
	{"医学健康", "medicine-health", "🩺", "#00838F", []string{"医学", "医疗", "健康", "疾病", "药物", "medicine", "health", "disease"}},
	{"教育学术", "education", "🎓", "#283593", []string{"教育", "学校", "科举", "学术", "大学", "education", "school", "academic"}},
	{"自然环境", "nature-environment", "🌿", "#33691E", []string{"自然", "环境", "动物", "植物", "生态", "nature", "animal", "plant"}},
	{"天文宇宙", "astronomy-space", "🌌", "#0D47A1", []string{"天文", "宇宙", "星空", "航天", "行星", "astronomy", "space", "planet"}},
	{"美食生活", "food-lifestyle", "🍜", "#E65100", []string{"美食", "饮食", "菜肴", "茶", "生活", "food", "cuisine", "tea"}},
	{"神话传说", "mythology-legend", "🐉", "#AD1457", []string{"神话", "传说", "妖怪", "仙", "民间故事", "myth", "legend", "folklore"}},
	{"影视动漫", "film-animation", "🎬", "#C62828", []string{"电影", "影视", "动漫", "漫画", "动画", "film", "anime", "comic"}},
	{"节日民俗", "festival-customs", "🏮", "#D84315", []string{"节日", "春节", "民俗", "习俗", "庆典", "festival", "custom", "tradition"}},
}

// defaultCategory 无任何关键词命中时的通用回退分类
var defaultCategory = taxonomyEntry{
	Name:  "AI创作",
	Slug:  "ai-generated",
	Icon:  "✨",
	Color: "#607D8B",
}

// crossTagRule 跨领域通用标签规则（时代/地域/领域标记）
type crossTagRule struct {
	Keyword string
	TagName string
}

var crossTagRules = []crossTagRule{
	{"古代", "古代"},
	{"近代", "近代"},
	{"现代", "现代"},
	{"中国", "中国"},
	{"世界", "世界"},
	{"ancient", "古代"},
	{"modern", "现代"},
	{"china", "中国"},
	{"world", "世界"},
}

// ClassifyService 两级分类引擎：
// 一级走模型推断，失败时无条件降级到确定性的关键词打分，
// 因此Classify对调用方保证永不失败
type ClassifyService struct {
	llm *LLMService
}

// NewClassifyService 创建分类服务
func NewClassifyService(llmService *LLMService) *ClassifyService {
	return &ClassifyService{llm: llmService}
}

// classificationWire 一级分类的宽容解析结构
// category/tags键缺失视为无效响应
type classificationWire struct {
	Category *struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Color       string `json:"color"`
		IsNew       bool   `json:"is_new"`
	} `json:"category"`
	Tags []json.RawMessage `json:"tags"`
}

// Classify 为用户输入与生成记录确定分类与标签
// 任何一级失败（提供商错误、JSON畸形、键缺失）都降级到QuickClassify
func (s *ClassifyService) Classify(ctx context.Context, userInput string, recordTexts []string, requestedModel string) models.ClassificationResult {
	prompt := BuildPrompt(DomainClassification, classificationInput(userInput, recordTexts), "")

	resp, err := s.llm.CompleteMeta(ctx, requestedModel, prompt, "")
	if err != nil {
		utils.GetLogger().Warn("一级分类调用失败，使用关键词回退", map[string]interface{}{"err": err})
		return s.QuickClassify(userInput, recordTexts)
	}

	result, ok := parseClassification(resp.Text)
	if !ok {
		utils.GetLogger().Warn("一级分类响应无效，使用关键词回退", map[string]interface{}{
			"response_prefix": utils.TruncateText(resp.Text, 80),
		})
		return s.QuickClassify(userInput, recordTexts)
	}

	return result
}

// classificationInput 拼装分类提示的输入：原始输入加生成记录内容的有界摘要
func classificationInput(userInput string, recordTexts []string) string {
	var b strings.Builder
	b.WriteString(userInput)
	if len(recordTexts) > 0 {
		b.WriteString("\n\n已生成的内容摘录：\n")
		b.WriteString(utils.TruncateText(strings.Join(recordTexts, "\n"), 1500))
	}
	return b.String()
}

// parseClassification 从模型响应中截取首个配平的JSON对象并校验形状
func parseClassification(raw string) (models.ClassificationResult, bool) {
	cleaned := cleanJSONString(raw)
	if cleaned == "" || !strings.HasPrefix(cleaned, "{") {
		return models.ClassificationResult{}, false
	}

	var wire classificationWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return models.ClassificationResult{}, false
	}

	// category与tags两个键都必须存在
	if wire.Category == nil || wire.Tags == nil {
		return models.ClassificationResult{}, false
	}
	if strings.TrimSpace(wire.Category.Name) == "" {
		return models.ClassificationResult{}, false
	}

	category := models.Category{
		Name:        strings.TrimSpace(wire.Category.Name),
		Slug:        strings.TrimSpace(wire.Category.Slug),
		Description: utils.TruncateText(strings.TrimSpace(wire.Category.Description), 200),
		Icon:        strings.TrimSpace(wire.Category.Icon),
		Color:       strings.TrimSpace(wire.Category.Color),
		IsNew:       wire.Category.IsNew,
	}
	if category.Slug == "" {
		category.Slug = utils.Slugify(category.Name)
	}
	if category.Icon == "" {
		category.Icon = defaultCategory.Icon
	}

	tags := parseWireTags(wire.Tags)

	return models.ClassificationResult{Category: category, Tags: tags}, true
}

// parseWireTags 宽容解析标签数组：元素可以是对象也可以是裸字符串
func parseWireTags(raw []json.RawMessage) []models.Tag {
	tags := make([]models.Tag, 0, len(raw))
	seen := make(map[string]bool)

	for _, item := range raw {
		if len(tags) >= models.MaxClassificationTags {
			break
		}

		var obj struct {
			Name  string `json:"name"`
			Slug  string `json:"slug"`
			Color string `json:"color"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			var name string
			if err := json.Unmarshal(item, &name); err != nil {
				continue
			}
			obj.Name = name
		}

		obj.Name = strings.TrimSpace(obj.Name)
		if obj.Name == "" {
			continue
		}
		if obj.Slug == "" {
			obj.Slug = utils.Slugify(obj.Name)
		}
		if seen[obj.Slug] {
			continue
		}
		seen[obj.Slug] = true

		tags = append(tags, models.Tag{Name: obj.Name, Slug: obj.Slug, Color: obj.Color})
	}

	return tags
}

// QuickClassify 确定性关键词打分分类（二级回退），不依赖模型调用
// 对相同输入总是返回相同结果
func (s *ClassifyService) QuickClassify(userInput string, recordTexts []string) models.ClassificationResult {
	text := strings.ToLower(userInput + " " + strings.Join(recordTexts, " "))

	best := defaultCategory
	bestScore := 0
	for _, entry := range taxonomy {
		score := 0
		for _, keyword := range entry.Keywords {
			if strings.Contains(text, strings.ToLower(keyword)) {
				score++
			}
		}
		// 平分时先声明者胜出
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}

	if bestScore > 0 {
		utils.GetLogger().Debug("关键词回退分类命中", map[string]interface{}{
			"category": best.Name, "score": bestScore,
		})
	}

	category := models.Category{
		Name:        best.Name,
		Slug:        best.Slug,
		Description: "",
		Icon:        best.Icon,
		Color:       best.Color,
		IsNew:       false,
	}

	var tags []models.Tag
	seen := make(map[string]bool)

	// 命中的分类名本身作为首个标签
	if bestScore > 0 {
		tags = append(tags, models.Tag{Name: best.Name, Slug: best.Slug, Color: best.Color})
		seen[best.Slug] = true
	}

	// 追加跨领域通用标签，总数上限5
	for _, rule := range crossTagRules {
		if len(tags) >= models.MaxClassificationTags {
			break
		}
		if !strings.Contains(text, strings.ToLower(rule.Keyword)) {
			continue
		}
		slug := utils.Slugify(rule.TagName)
		if slug == "general" {
			// 纯中文标签名slug化后会退化成同一个值，改用拼音风格的固定映射
			slug = crossTagSlug(rule.TagName)
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		tags = append(tags, models.Tag{Name: rule.TagName, Slug: slug})
	}

	if tags == nil {
		tags = []models.Tag{}
	}

	return models.ClassificationResult{Category: category, Tags: tags}
}

// crossTagSlug 跨领域标签的固定slug映射
func crossTagSlug(tagName string) string {
	switch tagName {
	case "古代":
		return "ancient"
	case "近代":
		return "early-modern"
	case "现代":
		return "modern"
	case "中国":
		return "china"
	case "世界":
		return "world"
	default:
		return "general"
	}
}
