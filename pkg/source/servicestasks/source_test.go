package servicestasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/source"
)

func collect(t *testing.T, ch <-chan *apphit.AppHit) []*apphit.AppHit {
	t.Helper()
	var hits []*apphit.AppHit
	timeout := time.After(2 * time.Second)
	for {
		select {
		case hit, ok := <-ch:
			if !ok {
				return hits
			}
			hits = append(hits, hit)
		case <-timeout:
			t.Fatal("timed out waiting for source channel to close")
		}
	}
}

func TestExtractExePathHandlesQuotedAndBareForms(t *testing.T) {
	require.Equal(t, `C:\Program Files\svc\svc.exe`, extractExePath(`"C:\Program Files\svc\svc.exe" --flag`))
	require.Equal(t, `C:\svc\svc.exe`, extractExePath(`C:\svc\svc.exe -k netsvcs`))
}

func TestInferServiceScope(t *testing.T) {
	require.Equal(t, apphit.User, inferServiceScope("C:/Users/bob/app/app.exe"))
	require.Equal(t, apphit.Machine, inferServiceScope("C:/Program Files/app/app.exe"))
}

func TestWalkTasksFindsMatchingCommand(t *testing.T) {
	dir := t.TempDir()
	taskXML := `<?xml version="1.0"?>
<Task>
  <Actions>
    <Exec><Command>C:\Tools\Widget\widget.exe</Command></Exec>
  </Actions>
</Task>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WidgetUpdate"), []byte(taskXML), 0o644))

	systemRoot := t.TempDir()
	tasksDir := filepath.Join(systemRoot, "System32", "Tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tasksDir, "WidgetUpdate"), []byte(taskXML), 0o644))
	t.Setenv("SystemRoot", systemRoot)

	var out []*apphit.AppHit
	ch := make(chan *apphit.AppHit, 8)
	walkTasks(context.Background(), "widget", source.Options{IncludeEvidence: true}, ch)
	close(ch)
	for h := range ch {
		out = append(out, h)
	}
	require.Len(t, out, 1)
	require.Equal(t, apphit.Exe, out[0].Type)
}

func TestWalkTasksSkippedWhenMachineDropped(t *testing.T) {
	systemRoot := t.TempDir()
	t.Setenv("SystemRoot", systemRoot)

	ch := make(chan *apphit.AppHit, 1)
	walkTasks(context.Background(), "widget", source.Options{UserOnly: true}, ch)
	close(ch)
	var out []*apphit.AppHit
	for h := range ch {
		out = append(out, h)
	}
	require.Empty(t, out)
}
