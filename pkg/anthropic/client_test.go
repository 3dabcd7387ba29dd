package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage(t *testing.T) {
	msg := &sdk.Message{
		ID:           "msg_abc",
		Model:        "claude-haiku-4-5-20251001",
		StopReason:   "end_turn",
		StopSequence: "STOP",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `{"score":0.8}`},
		},
		Usage: sdk.Usage{
			InputTokens:              1200,
			OutputTokens:             80,
			CacheCreationInputTokens: 400,
			CacheReadInputTokens:     900,
		},
	}

	resp := fromSDKMessage(msg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_abc", resp.ID)
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "STOP", resp.StopSequence)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, `{"score":0.8}`, resp.Content[0].Text)
	assert.Equal(t, int64(1200), resp.Usage.InputTokens)
	assert.Equal(t, int64(80), resp.Usage.OutputTokens)
	assert.Equal(t, int64(400), resp.Usage.CacheCreationInputTokens)
	assert.Equal(t, int64(900), resp.Usage.CacheReadInputTokens)
}

func TestFromSDKMessage_NoContent(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Content)
	assert.Equal(t, "max_tokens", resp.StopReason)
}

func TestFirstText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "thinking", Text: "hmm"},
		{Type: "text", Text: "the answer"},
		{Type: "text", Text: "ignored"},
	}}
	assert.Equal(t, "the answer", resp.FirstText())

	assert.Empty(t, (&MessageResponse{}).FirstText())
}

func TestToSDKMessages_RolesPreserved(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "analyze this"},
		{Role: "assistant", Content: "{"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, sdk.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, out[1].Role)
}

func TestToSDKSystemBlocks_CacheControl(t *testing.T) {
	out := toSDKSystemBlocks([]SystemBlock{
		{Text: "plain"},
		{Text: "cached", CacheControl: &CacheControl{TTL: "1h"}},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "plain", out[0].Text)
	assert.Equal(t, "cached", out[1].Text)
	assert.Equal(t, sdk.CacheControlEphemeralTTL("1h"), out[1].CacheControl.TTL)
}
