package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
	"github.com/Lllllllleong/slidedeckflow/internal/llm/llmtest"
)

func TestRefusalCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		wantErr error
	}{
		{name: "passes content through", reply: "# Title\n- point"},
		{name: "refusal phrase", reply: "Sorry, I cannot fulfill this request.", wantErr: llm.ErrRefusal},
		{name: "blank reply", reply: "  \n", wantErr: llm.ErrEmptyResponse},
		{name: "leading apology", reply: "\nI'm sorry, but as a large language model I can't read this image.", wantErr: llm.ErrRefusal},
		{
			name:  "phrase inside content",
			reply: "<!DOCTYPE html><html><body><div class=\"slide\"><h2>Risks</h2><p>Without funding the team is unable to ship; " +
				"support said \"I am unable to reproduce\" twice.</p></div></body></html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := llm.WithRefusalCheck(llmtest.Reply(tt.reply))
			out, err := c.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.UserText("x")}})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, out)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reply, out)
		})
	}
}

func TestRefusalCheckPropagatesClientError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := llm.WithRefusalCheck(llmtest.Fail(boom)).Complete(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, boom)
}
