package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/slidedeckflow/internal/models"
	"github.com/Lllllllleong/slidedeckflow/internal/pipeline"
	"github.com/Lllllllleong/slidedeckflow/internal/sources"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRequiresInput(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--instruction", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "images")
	assert.Contains(t, err.Error(), "directory")
}

func TestRootRequiresInstruction(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--images", "a.png")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction")
}

func TestRootRejectsImagesWithDirectory(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--images", "a.png", "--directory", t.TempDir(), "--instruction", "x")

	require.Error(t, err)
}

func TestRootEmptyDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	_, err := execute(t, "--directory", dir, "--instruction", "x")

	require.ErrorIs(t, err, sources.ErrNoImages)
}

func TestProgressCountsStages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newProgress(&buf, 5)
	ctx := context.Background()
	st := models.NewState(nil, "x")

	for _, step := range []pipeline.Step{pipeline.StepDescribeImages, pipeline.StepExtractStructure} {
		p.StageStarted(ctx, step, st)
		p.StageFinished(ctx, step, st, 0)
	}

	assert.Contains(t, buf.String(), "2/5")
	assert.Contains(t, buf.String(), "Extracting structure")
}

func TestProgressDisabled(t *testing.T) {
	t.Parallel()

	p := newProgress(nil, 0)

	assert.NotPanics(t, func() {
		p.StageStarted(context.Background(), pipeline.StepRenderHTML, models.State{})
		p.StageFinished(context.Background(), pipeline.StepRenderHTML, models.State{}, 0)
		p.RunFinished(context.Background(), models.State{})
	})
}
