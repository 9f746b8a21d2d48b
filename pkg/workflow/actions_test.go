package workflow

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMoveToDirMovesFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "in", "a.txt")
	dest := filepath.Join(root, "out")
	writeFile(t, src, "alpha")

	action := &MoveToDir{Input: EventFilePath, DirectoryPath: dest, ReplaceOlderFiles: true}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)

	assert.Equal(t, filepath.Join(dest, "a.txt"), ctx.ActionFilePath)
	assert.Equal(t, "alpha", readFile(t, ctx.ActionFilePath))
	assert.NoFileExists(t, src)
}

func TestMoveToDirKeepInput(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src, "alpha")

	action := &MoveToDir{DirectoryPath: filepath.Join(root, "out"), KeepInputFileIntact: true}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)
	assert.FileExists(t, src)
	assert.FileExists(t, ctx.ActionFilePath)
}

func TestMoveToDirRefusesToReplace(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "in", "a.txt")
	dest := filepath.Join(root, "out")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(dest, "a.txt"), "old")

	action := &MoveToDir{DirectoryPath: dest, ReplaceOlderFiles: false}
	ctx := NewExecutionContext(src)
	assert.False(t, action.Run(ctx))
	assert.Equal(t, "Can't replace older file", ctx.Error)
	assert.FileExists(t, src)
	assert.Equal(t, "old", readFile(t, filepath.Join(dest, "a.txt")))
	assert.Empty(t, ctx.ActionFilePath)
}

func TestMoveToDirReplacesAndRemovesSource(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "in", "a.txt")
	dest := filepath.Join(root, "out")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(dest, "a.txt"), "old")

	action := &MoveToDir{DirectoryPath: dest, ReplaceOlderFiles: true}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)
	assert.Equal(t, "new", readFile(t, filepath.Join(dest, "a.txt")))
	assert.NoFileExists(t, src)
}

func TestMoveToDirRequiresDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src, "alpha")

	action := &MoveToDir{DirectoryPath: filepath.Join(root, "missing"), RequiresDirectoryExists: true}
	ctx := NewExecutionContext(src)
	assert.False(t, action.Run(ctx))
	assert.Equal(t, "Directory required to exist", ctx.Error)
	assert.NoDirExists(t, filepath.Join(root, "missing"))
}

func TestMoveToDirMissingInput(t *testing.T) {
	action := &MoveToDir{Input: ActionFilePath, DirectoryPath: t.TempDir()}
	ctx := NewExecutionContext("/in/a.txt")
	assert.False(t, action.Run(ctx))
	assert.Equal(t, "Input doesn't contain value", ctx.Error)
}

func TestMoveToDirDateSubdirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src, "alpha")
	fi, err := os.Stat(src)
	require.NoError(t, err)

	action := &MoveToDir{DirectoryPath: filepath.Join(root, "out"), DateSubdirectory: true}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)
	assert.Equal(t, filepath.Join(root, "out", fi.ModTime().Format("2006-01-02"), "a.txt"), ctx.ActionFilePath)
}

func TestRunCmdSuccessUsesLastLinePath(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "it's here.txt")
	out := filepath.Join(root, "result.txt")
	writeFile(t, src, "alpha")

	action := &RunCmd{Input: EventFilePath, Command: "cp $input.file_path " + shellQuote(out) + " && echo " + shellQuote(out)}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)
	assert.Equal(t, out, ctx.ActionFilePath)
	assert.Equal(t, "alpha", readFile(t, out))
}

func TestRunCmdOutputDefaultsToInput(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "alpha")

	action := &RunCmd{Command: "echo processing"}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)
	assert.Equal(t, src, ctx.ActionFilePath)
}

func TestRunCmdNonZeroExit(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "alpha")

	action := &RunCmd{Command: "echo nope; exit 3"}
	ctx := NewExecutionContext(src)
	assert.False(t, action.Run(ctx))
	assert.Contains(t, ctx.Error, "exit status 3")
	assert.Contains(t, ctx.Error, "nope")
	assert.Empty(t, ctx.ActionFilePath)
}

func TestRunCmdLongOutputLines(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "alpha")

	for _, size := range []int{300000, 2 * maxOutputLine} {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			action := &RunCmd{Command: fmt.Sprintf("head -c %d /dev/zero | tr '\\0' 'a'; echo; echo done", size)}
			ctx := NewExecutionContext(src)

			result := make(chan bool, 1)
			go func() { result <- action.Run(ctx) }()
			select {
			case ok := <-result:
				require.True(t, ok, ctx.Error)
				assert.Equal(t, src, ctx.ActionFilePath)
			case <-time.After(10 * time.Second):
				t.Fatal("command output was not drained")
			}
		})
	}
}

func TestRunCmdExpand(t *testing.T) {
	action := &RunCmd{Command: "mv $input.file_path $input.directory/done-$input.file_name # $event.file_path"}
	ctx := NewExecutionContext("/w/a b.txt")
	assert.Equal(t, "mv '/w/a b.txt' '/w'/done-'a b.txt' # '/w/a b.txt'", action.Expand(ctx, "/w/a b.txt"))
}

func TestExtractArchive(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "bundle.zip")

	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner/readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("packed"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(root, "out")
	action := &ExtractArchive{DirectoryPath: dest}
	ctx := NewExecutionContext(archive)
	require.True(t, action.Run(ctx), ctx.Error)
	assert.Equal(t, dest, ctx.ActionFilePath)
	assert.Equal(t, "packed", readFile(t, filepath.Join(dest, "inner", "readme.txt")))
	assert.NoFileExists(t, archive)
}

func TestExtractArchiveRejectsPlainFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "not an archive")

	action := &ExtractArchive{DirectoryPath: filepath.Join(t.TempDir(), "out"), KeepInputFileIntact: true}
	ctx := NewExecutionContext(src)
	assert.False(t, action.Run(ctx))
	assert.FileExists(t, src)
}

func TestSetPermissions(t *testing.T) {
	src := filepath.Join(t.TempDir(), "script.sh")
	writeFile(t, src, "#!/bin/sh\n")

	action := &SetPermissions{Input: EventFilePath, Mode: "u+x"}
	ctx := NewExecutionContext(src)
	require.True(t, action.Run(ctx), ctx.Error)

	fi, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	assert.Equal(t, src, ctx.ActionFilePath)
}

func TestNotify(t *testing.T) {
	var title, text string
	original := pushNotification
	pushNotification = func(ti, te string) error {
		title, text = ti, te
		return nil
	}
	defer func() { pushNotification = original }()

	action := &Notify{Input: EventFilePath, Title: "folden", Message: "got $input.file_name"}
	ctx := NewExecutionContext("/w/a.txt")
	require.True(t, action.Run(ctx), ctx.Error)
	assert.Equal(t, "folden", title)
	assert.Equal(t, "got a.txt", text)
	assert.Equal(t, "/w/a.txt", ctx.ActionFilePath)

	pushNotification = func(string, string) error { return errors.New("no bus") }
	ctx = NewExecutionContext("/w/a.txt")
	assert.False(t, action.Run(ctx))
	assert.Contains(t, ctx.Error, "no bus")
}
