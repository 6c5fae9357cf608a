// internal/services/record_parser.go
package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/InkMuseLab/InkMuseAI/internal/models"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

// 单行长度上限（字符数），超限的行无条件丢弃，防御失控生成
const maxLineChars = 20000

// ParseStats 记录一次解析的行统计
// 丢弃行不构成错误，全部丢弃时结果为合法的空列表
type ParseStats struct {
	TotalLines int `json:"total_lines"`
	Parsed     int `json:"parsed"`
	Dropped    int `json:"dropped"`
}

// fieldRule 字段同义词访问规则，按声明顺序首个非空命中生效
// 新增同义词只需扩充表项，不改分支逻辑
type fieldRule struct {
	canonical string
	synonyms  []string
}

var timelineFieldRules = []fieldRule{
	{"start", []string{"startDate", "start_date", "date", "start"}},
	{"end", []string{"endDate", "end_date", "end"}},
	{"description", []string{"description", "desc", "content", "text"}},
}

var coupletFieldRules = []fieldRule{
	{"upper", []string{"upperLine", "upper_line", "upper", "firstLine", "first_line"}},
	{"lower", []string{"lowerLine", "lower_line", "lower", "secondLine", "second_line"}},
	{"scroll", []string{"horizontalScroll", "horizontal_scroll", "scroll", "hengpi"}},
	{"appreciation", []string{"appreciation", "analysis", "comment"}},
}

var panelFieldRules = []fieldRule{
	{"scene", []string{"sceneDescription", "scene_description", "scene", "description"}},
	{"dialogue", []string{"dialogue", "dialog", "lines"}},
	{"narration", []string{"narration", "narrative"}},
	{"emotion", []string{"emotion", "mood"}},
	{"camera", []string{"cameraAngle", "camera_angle", "camera", "shot"}},
}

// 旧版@分隔协议：
// 时间轴  @起始[~结束]@描述
// 对联    @横批@上联@下联  或两字段形式  @横批@下联
var (
	legacyTimelinePattern     = regexp.MustCompile(`^@([^@~]+?)(?:~([^@]*))?@(.+)$`)
	legacyCoupletPattern      = regexp.MustCompile(`^@([^@]*)@([^@]*)@([^@]+)$`)
	legacyCoupletShortPattern = regexp.MustCompile(`^@([^@]*)@([^@]+)$`)
)

// extractFields 将一行严格JSON对象按同义词规则抽取为规范字段表
// 行不是JSON对象（包括数组）时返回false
func extractFields(line string, rules []fieldRule) (map[string]string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}

	fields := make(map[string]string, len(rules))
	for _, rule := range rules {
		for _, key := range rule.synonyms {
			value, ok := raw[key]
			if !ok {
				continue
			}
			if text := stringifyField(value); strings.TrimSpace(text) != "" {
				fields[rule.canonical] = strings.TrimSpace(text)
				break
			}
		}
	}
	return fields, true
}

// stringifyField 宽容地把JSON值转为字符串（模型偶尔把数字/布尔放进文本字段）
func stringifyField(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// splitLines 拆分生成文本为非空行，并应用长度护栏
func splitLines(text string, stats *ParseStats) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		stats.TotalLines++
		if utf8.RuneCountInString(line) > maxLineChars {
			stats.Dropped++
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ParseTimelineEvents 把生成文本解析为时间轴事件序列
// 逐行解析：先尝试严格JSON，失败或必填字段缺失时在同一行上
// 尝试旧版@分隔格式，仍失败则静默丢弃该行；输出保持原行序
func ParseTimelineEvents(text string) ([]models.TimelineEvent, ParseStats) {
	var stats ParseStats
	var events []models.TimelineEvent

	for _, line := range splitLines(text, &stats) {
		if event, ok := parseTimelineLine(line); ok {
			events = append(events, event)
			stats.Parsed++
		} else {
			stats.Dropped++
		}
	}

	logDropped("timeline", stats)
	return events, stats
}

func parseTimelineLine(line string) (models.TimelineEvent, bool) {
	// 优先尝试严格JSON
	if fields, ok := extractFields(line, timelineFieldRules); ok {
		start := fields["start"]
		desc := fields["description"]
		if start != "" && desc != "" {
			var end *string
			if e := fields["end"]; e != "" && !strings.EqualFold(e, "null") {
				end = &e
			}
			return models.TimelineEvent{StartDate: start, EndDate: end, Description: desc}, true
		}
		// JSON语法成立但必填字段为空：同一行继续走旧版格式
	}

	if m := legacyTimelinePattern.FindStringSubmatch(line); m != nil {
		start := strings.TrimSpace(m[1])
		desc := strings.TrimSpace(m[3])
		if start == "" || desc == "" {
			return models.TimelineEvent{}, false
		}
		var end *string
		if e := strings.TrimSpace(m[2]); e != "" {
			end = &e
		}
		return models.TimelineEvent{StartDate: start, EndDate: end, Description: desc}, true
	}

	return models.TimelineEvent{}, false
}

// ParseCoupletDrafts 把生成文本解析为对联草稿序列
func ParseCoupletDrafts(text string) ([]models.CoupletDraft, ParseStats) {
	var stats ParseStats
	var drafts []models.CoupletDraft

	for _, line := range splitLines(text, &stats) {
		if draft, ok := parseCoupletLine(line); ok {
			drafts = append(drafts, draft)
			stats.Parsed++
		} else {
			stats.Dropped++
		}
	}

	logDropped("couplet", stats)
	return drafts, stats
}

func parseCoupletLine(line string) (models.CoupletDraft, bool) {
	if fields, ok := extractFields(line, coupletFieldRules); ok {
		upper := fields["upper"]
		lower := fields["lower"]
		// 严格编码要求上下联俱全；仅旧版两字段形式允许上联为空
		if upper != "" && lower != "" {
			scroll := fields["scroll"]
			if scroll == "" {
				scroll = models.DefaultHorizontalScroll
			}
			return models.CoupletDraft{
				UpperLine:        upper,
				LowerLine:        lower,
				HorizontalScroll: scroll,
				Appreciation:     fields["appreciation"],
			}, true
		}
	}

	// 三字段形式 @横批@上联@下联
	if m := legacyCoupletPattern.FindStringSubmatch(line); m != nil {
		scroll := strings.TrimSpace(m[1])
		if scroll == "" {
			scroll = models.DefaultHorizontalScroll
		}
		return models.CoupletDraft{
			UpperLine:        strings.TrimSpace(m[2]),
			LowerLine:        strings.TrimSpace(m[3]),
			HorizontalScroll: scroll,
		}, true
	}

	// 两字段旧式 @横批@下联
	if m := legacyCoupletShortPattern.FindStringSubmatch(line); m != nil {
		scroll := strings.TrimSpace(m[1])
		if scroll == "" {
			scroll = models.DefaultHorizontalScroll
		}
		return models.CoupletDraft{
			UpperLine:        "",
			LowerLine:        strings.TrimSpace(m[2]),
			HorizontalScroll: scroll,
		}, true
	}

	return models.CoupletDraft{}, false
}

// ParseComicPanels 把生成文本解析为画格序列
// 画格只接受严格JSON行协议，旧版协议中不存在画格的@分隔形式；
// 画格编号按行序重排为从1开始的连续序列
func ParseComicPanels(text string) ([]models.Panel, ParseStats) {
	var stats ParseStats
	var panels []models.Panel

	for _, line := range splitLines(text, &stats) {
		fields, ok := extractFields(line, panelFieldRules)
		if !ok || fields["scene"] == "" {
			stats.Dropped++
			continue
		}

		panel := models.Panel{
			PanelNumber:      len(panels) + 1,
			SceneDescription: fields["scene"],
			Dialogue:         fields["dialogue"],
			Narration:        fields["narration"],
			Emotion:          fields["emotion"],
			CameraAngle:      fields["camera"],
			Characters:       extractCharacters(line),
		}
		panels = append(panels, panel)
		stats.Parsed++
	}

	logDropped("comic-panel", stats)
	return panels, stats
}

// extractCharacters 从画格JSON行中抽取角色名数组
func extractCharacters(line string) []string {
	var raw struct {
		Characters []string `json:"characters"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil
	}
	var names []string
	for _, name := range raw.Characters {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

func logDropped(domain string, stats ParseStats) {
	if stats.Dropped > 0 {
		utils.GetLogger().Warn("解析阶段丢弃了无法识别的行", map[string]interface{}{
			"domain": domain, "dropped": stats.Dropped, "total": stats.TotalLines,
		})
	}
}
