package gemini

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModel struct {
	calls    int
	contents []*genai.Content
	answer   string
	err      error
}

func (f *fakeModel) generate(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (string, error) {
	f.calls++
	f.contents = contents
	return f.answer, f.err
}

func newTestCaptioner(model *fakeModel, maxImage int64) *Captioner {
	c := NewCaptioner(Config{APIKey: "key", MaxImageBytes: maxImage}, application.TemplateCaptioner{})
	c.generate = model.generate
	return c
}

func mediaFile(t *testing.T, name string, size int) common.Publishable {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	p, err := common.NewPayload(path)
	require.NoError(t, err)
	return p
}

func aiSchedule() common.Schedule {
	return common.Schedule{Name: "Daily", AICaption: true, CaptionTemplate: "New: {filename}", Platforms: []string{"instagram"}}
}

func TestCaptioner_StructuredAnswer(t *testing.T) {
	model := &fakeModel{answer: `{"caption":"Golden hour at the beach","hashtags":["#sunset","beach","two words"]}`}
	c := newTestCaptioner(model, DefaultMaxImageBytes)

	got, err := c.Caption(context.Background(), mediaFile(t, "sunset.jpg", 128), aiSchedule())
	require.NoError(t, err)
	assert.Equal(t, "Golden hour at the beach\n\n#sunset #beach", got)

	require.Len(t, model.contents, 1)
	parts := model.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "sunset.jpg")
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Len(t, parts[1].InlineData.Data, 128)
}

func TestCaptioner_LargeImagesAndVideosAreNotInlined(t *testing.T) {
	model := &fakeModel{answer: "plain caption"}
	c := newTestCaptioner(model, 64)

	got, err := c.Caption(context.Background(), mediaFile(t, "big.png", 128), aiSchedule())
	require.NoError(t, err)
	assert.Equal(t, "plain caption", got)
	assert.Len(t, model.contents[0].Parts, 1)

	_, err = c.Caption(context.Background(), mediaFile(t, "clip.mp4", 8), aiSchedule())
	require.NoError(t, err)
	assert.Len(t, model.contents[0].Parts, 1)
}

func TestCaptioner_FallsBackToTemplate(t *testing.T) {
	media := mediaFile(t, "cat.png", 16)

	t.Run("request error", func(t *testing.T) {
		c := newTestCaptioner(&fakeModel{err: errors.New("quota")}, DefaultMaxImageBytes)
		got, err := c.Caption(context.Background(), media, aiSchedule())
		require.NoError(t, err)
		assert.Equal(t, "New: cat", got)
	})

	t.Run("empty answer", func(t *testing.T) {
		c := newTestCaptioner(&fakeModel{answer: `{"caption":"  "}`}, DefaultMaxImageBytes)
		got, err := c.Caption(context.Background(), media, aiSchedule())
		require.NoError(t, err)
		assert.Equal(t, "New: cat", got)
	})

	t.Run("schedule not opted in", func(t *testing.T) {
		model := &fakeModel{answer: "unused"}
		c := newTestCaptioner(model, DefaultMaxImageBytes)
		sc := aiSchedule()
		sc.AICaption = false
		got, err := c.Caption(context.Background(), media, sc)
		require.NoError(t, err)
		assert.Equal(t, "New: cat", got)
		assert.Zero(t, model.calls)
	})

	t.Run("no api key", func(t *testing.T) {
		c := NewCaptioner(Config{}, nil)
		assert.False(t, c.Enabled())
		got, err := c.Caption(context.Background(), media, aiSchedule())
		require.NoError(t, err)
		assert.Equal(t, "New: cat", got)
	})
}
