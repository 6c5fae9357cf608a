// internal/services/prompt_builder.go
package services

import (
	"fmt"
	"strings"

	"github.com/InkMuseLab/InkMuseAI/internal/utils"
)

// Domain 生成管线处理的内容域
type Domain string

const (
	DomainTimeline        Domain = "timeline"
	DomainTimelineSummary Domain = "timeline-summary"
	DomainCouplet         Domain = "couplet"
	DomainCoupletSet      Domain = "couplet-set"
	DomainClassification  Domain = "classification"
	DomainGenericMeta     Domain = "generic-meta"
	DomainComicMeta       Domain = "comic-meta"
	DomainComicPanel      Domain = "comic-panel"
)

// IsLineOriented 行式域按"每行一个JSON对象"协议输出
func (d Domain) IsLineOriented() bool {
	switch d {
	case DomainTimeline, DomainCouplet, DomainComicPanel:
		return true
	}
	return false
}

// languageDirective 输出内容的语言指令，与指令语言本身无关
func languageDirective(language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "中文"
	}
	return fmt.Sprintf("输出中所有自然语言内容（描述、对白、摘要等）必须使用%s书写，与本指令的语言无关。", lang)
}

// lineProtocol 行式输出协议说明
const lineProtocol = `输出格式要求（严格遵守）：
1. 每行一个独立的JSON对象，UTF-8编码。
2. 不要输出任何解释、前言、编号或Markdown代码块。
3. 使用半角双引号、冒号和逗号，不得使用全角标点。`

// objectProtocol 单对象输出协议说明
const objectProtocol = `输出格式要求（严格遵守）：
1. 整个回答必须是且仅是一个JSON对象。
2. 不要输出任何解释文字或Markdown代码块。
3. 使用半角双引号、冒号和逗号，不得使用全角标点。`

// BuildPrompt 为指定内容域组装完整的指令文本
// 用户输入原样插入；未知域回落到generic-meta模板；永不失败
func BuildPrompt(domain Domain, userInput, language string) string {
	// 调用方未指定语言时按输入文本推断
	if strings.TrimSpace(language) == "" {
		if utils.IsEnglishText(userInput) {
			language = "英文"
		} else {
			language = "中文"
		}
	}

	switch domain {
	case DomainTimeline:
		return buildTimelinePrompt(userInput, language)
	case DomainTimelineSummary:
		return buildTimelineSummaryPrompt(userInput, language)
	case DomainCouplet:
		return buildCoupletPrompt(userInput, language)
	case DomainCoupletSet:
		return buildCoupletSetPrompt(userInput, language)
	case DomainClassification:
		return buildClassificationPrompt(userInput, language)
	case DomainComicMeta:
		return buildComicScriptPrompt(userInput, language)
	case DomainComicPanel:
		return buildComicPanelPrompt(userInput, language)
	default:
		return buildGenericMetaPrompt(userInput, language)
	}
}

func buildTimelinePrompt(userInput, language string) string {
	return fmt.Sprintf(`你是严谨的历史与专题编年学者，擅长把主题整理为时间轴。
根据以下主题生成按时间先后排列的事件列表：

主题：%s

每行输出一个事件对象，字段为：
{"startDate": "起始时间", "endDate": "结束时间(可为null)", "description": "事件描述"}

%s
%s`, userInput, lineProtocol, languageDirective(language))
}

func buildTimelineSummaryPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是专业的内容编辑，为一条时间轴撰写元信息。
时间轴主题与内容：

%s

输出一个JSON对象，结构示例：
{"title": "标题", "summary": "不超过三句话的摘要", "era": "涵盖的时代", "icon": "一个emoji", "color": "#RRGGBB"}

%s
%s`, userInput, objectProtocol, languageDirective(language))
}

func buildCoupletPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是精通对仗与声律的对联大师。
根据以下主题创作若干副对联：

主题：%s

每行输出一副对联的JSON对象，字段为：
{"upperLine": "上联", "lowerLine": "下联", "horizontalScroll": "横批", "appreciation": "简短赏析"}

%s
%s`, userInput, lineProtocol, languageDirective(language))
}

func buildCoupletSetPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是专业的内容编辑，为一组对联作品集撰写元信息。
作品集主题与内容：

%s

输出一个JSON对象，结构示例：
{"title": "作品集标题", "description": "简介", "theme": "主题", "icon": "一个emoji", "category_hint": "建议分类", "tag_hints": ["标签1", "标签2"]}

%s
%s`, userInput, objectProtocol, languageDirective(language))
}

func buildClassificationPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是内容分类专家，为用户创作的内容确定分类与标签。
待分类内容：

%s

输出一个JSON对象，结构示例：
{"category": {"name": "分类名", "slug": "category-slug", "description": "分类说明", "icon": "一个emoji", "color": "#RRGGBB", "is_new": false}, "tags": [{"name": "标签名", "slug": "tag-slug"}]}

标签最多5个。%s
%s`, userInput, objectProtocol, languageDirective(language))
}

func buildComicScriptPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是资深漫画编剧，根据故事构思创作完整的多层级漫画台本。
故事构思：

%s

输出一个JSON对象，必须包含完整的四层结构 volumes → episodes → pages → panels，结构示例：
{
  "title": "作品标题",
  "description": "作品简介",
  "style": "画风",
  "volumes": [{
    "volume_number": 1,
    "title": "卷标题",
    "summary": "卷摘要",
    "episodes": [{
      "episode_number": 1,
      "title": "话标题",
      "summary": "话摘要",
      "pages": [{
        "page_number": 1,
        "panels": [{
          "panel_number": 1,
          "scene_description": "画面描述",
          "dialogue": "对白",
          "narration": "旁白",
          "emotion": "情绪",
          "camera_angle": "镜头角度",
          "characters": ["角色名"]
        }]
      }]
    }]
  }]
}

每一层都不得为空：每卷至少一话，每话至少一页，每页至少一格。
%s
%s`, userInput, objectProtocol, languageDirective(language))
}

func buildComicPanelPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是资深漫画分镜师，将以下场景拆解为连续画格：

%s

每行输出一个画格的JSON对象，字段为：
{"panelNumber": 1, "sceneDescription": "画面描述", "dialogue": "对白", "narration": "旁白", "emotion": "情绪", "cameraAngle": "镜头角度", "characters": ["角色名"]}

%s
%s`, userInput, lineProtocol, languageDirective(language))
}

func buildGenericMetaPrompt(userInput, language string) string {
	return fmt.Sprintf(`你是专业的内容编辑，为用户创作的内容撰写元信息。
内容：

%s

输出一个JSON对象，结构示例：
{"title": "标题", "description": "简介", "icon": "一个emoji"}

%s
%s`, userInput, objectProtocol, languageDirective(language))
}
