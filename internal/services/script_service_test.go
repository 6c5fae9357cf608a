// internal/services/script_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/InkMuseLab/InkMuseAI/internal/errors"
)

const validScriptJSON = `{
  "title": "  山海小传  ",
  "description": "少年入山的奇遇",
  "volumes": [
    {
      "volume_number": 9,
      "title": "入山",
      "episodes": [
        {
          "episode_number": 3,
          "title": "初遇",
          "pages": [
            {
              "page_number": 7,
              "panels": [
                {"panel_number": 5, "scene_description": " 山门前 ", "dialogue": "你是谁？"},
                {"panel_number": 2, "scene_description": "少年回头", "narration": "风起"}
              ]
            }
          ]
        }
      ]
    }
  ]
}`

func TestGenerateComicScript_RenumbersTree(t *testing.T) {
	provider := &stubProvider{completeText: "```json\n" + validScriptJSON + "\n```"}
	svc := NewScriptService(newStubLLMService(provider))

	script, err := svc.GenerateComicScript(context.Background(), "山海故事", "", "")
	require.NoError(t, err)

	assert.Equal(t, "山海小传", script.Title)
	require.Len(t, script.Volumes, 1)
	assert.Equal(t, 1, script.Volumes[0].VolumeNumber)
	assert.Equal(t, 1, script.Volumes[0].Episodes[0].EpisodeNumber)
	assert.Equal(t, 1, script.Volumes[0].Episodes[0].Pages[0].PageNumber)

	panels := script.Volumes[0].Episodes[0].Pages[0].Panels
	require.Len(t, panels, 2)
	// 编号重排为从1开始的连续序列，与模型给出的编号无关
	assert.Equal(t, 1, panels[0].PanelNumber)
	assert.Equal(t, 2, panels[1].PanelNumber)
	assert.Equal(t, "山门前", panels[0].SceneDescription)
}

func TestGenerateComicScript_StructuralFailures(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"无卷", `{"title":"空","volumes":[]}`},
		{"卷缺话", `{"volumes":[{"title":"一","episodes":[]}]}`},
		{"话缺页", `{"volumes":[{"episodes":[{"title":"一","pages":[]}]}]}`},
		{"页缺画格", `{"volumes":[{"episodes":[{"pages":[{"panels":[]}]}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{completeText: tt.resp}
			svc := NewScriptService(newStubLLMService(provider))

			_, err := svc.GenerateComicScript(context.Background(), "故事", "", "")
			require.Error(t, err)
			assert.True(t, apperrors.IsStructuralError(err), "树形不完整必须报告结构错误: %v", err)
		})
	}
}

func TestGenerateComicScript_NonJSONResponse(t *testing.T) {
	provider := &stubProvider{completeText: "好的，下面是台本：第一卷……"}
	svc := NewScriptService(newStubLLMService(provider))

	_, err := svc.GenerateComicScript(context.Background(), "故事", "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsStructuralError(err))
}

func TestGenerateComicScript_ProviderErrorPropagates(t *testing.T) {
	provider := &stubProvider{completeErr: errors.New("timeout")}
	svc := NewScriptService(newStubLLMService(provider))

	_, err := svc.GenerateComicScript(context.Background(), "故事", "", "")
	require.Error(t, err)
	assert.False(t, apperrors.IsStructuralError(err), "传输错误不是结构错误")
}
