package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ai-tutor/internal/core/tutor"
)

type stubChatter struct {
	calls []tutor.ChatParams
	errs  []error
}

func (c *stubChatter) Chat(ctx context.Context, params tutor.ChatParams) (*tutor.ChatResult, error) {
	c.calls = append(c.calls, params)
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &tutor.ChatResult{
		Answer:    "re: " + params.Message,
		SessionID: params.SessionID.OrElse("new-session"),
	}, nil
}

// lines は与えた行を順に返し、尽きたら end を返す
func lines(end error, input ...string) func() (string, error) {
	return func() (string, error) {
		if len(input) == 0 {
			return "", end
		}
		line := input[0]
		input = input[1:]
		return line, nil
	}
}

func TestRunChat(t *testing.T) {
	ctx := context.Background()

	t.Run("最初の応答のセッションIDを以降の発話で使う", func(t *testing.T) {
		chatter := &stubChatter{}
		var out bytes.Buffer

		err := runChat(ctx, chatter, "", lines(promptui.ErrEOF, "Hello", "  ", "Next"), &out)
		require.NoError(t, err)

		require.Len(t, chatter.calls, 2)
		assert.True(t, chatter.calls[0].SessionID.IsAbsent())
		assert.Equal(t, "new-session", chatter.calls[1].SessionID.MustGet())
		assert.Contains(t, out.String(), "(session: new-session)")
		assert.Contains(t, out.String(), "Tutor: re: Next")
	})

	t.Run("指定したセッションを再開する", func(t *testing.T) {
		chatter := &stubChatter{}
		var out bytes.Buffer

		require.NoError(t, runChat(ctx, chatter, "s1", lines(io.EOF, "Hello"), &out))

		require.Len(t, chatter.calls, 1)
		assert.Equal(t, "s1", chatter.calls[0].SessionID.MustGet())
		assert.NotContains(t, out.String(), "(session:")
	})

	t.Run("終了コマンドと割り込みで終了する", func(t *testing.T) {
		chatter := &stubChatter{}
		require.NoError(t, runChat(ctx, chatter, "", lines(io.EOF, "/exit", "ignored"), io.Discard))
		assert.Empty(t, chatter.calls)

		require.NoError(t, runChat(ctx, chatter, "", lines(promptui.ErrInterrupt), io.Discard))
		assert.Empty(t, chatter.calls)
	})

	t.Run("生成の失敗は表示して続ける", func(t *testing.T) {
		chatter := &stubChatter{errs: []error{fmt.Errorf("%w: timeout", tutor.ErrGenerationService)}}
		var out bytes.Buffer

		require.NoError(t, runChat(ctx, chatter, "", lines(io.EOF, "first", "second"), &out))

		assert.Len(t, chatter.calls, 2)
		assert.Contains(t, out.String(), "エラー:")
		assert.Contains(t, out.String(), "Tutor: re: second")
	})

	t.Run("想定外のエラーは返す", func(t *testing.T) {
		boom := errors.New("boom")
		chatter := &stubChatter{errs: []error{boom}}

		err := runChat(ctx, chatter, "", lines(io.EOF, "first"), io.Discard)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("入力の失敗は返す", func(t *testing.T) {
		err := runChat(ctx, &stubChatter{}, "", lines(errors.New("tty closed")), io.Discard)
		assert.Error(t, err)
	})

	t.Run("キャンセル済みなら何もしない", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		chatter := &stubChatter{}

		require.NoError(t, runChat(cctx, chatter, "", lines(io.EOF, "Hello"), io.Discard))
		assert.Empty(t, chatter.calls)
	})
}
