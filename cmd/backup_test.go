package cmd

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupCmd(t *testing.T) {
	// 1. Запустить app с bolt, сохранить заметку, сделать бекап.

	dir := t.TempDir()
	port := startApp(t, func(s *Server) {
		s.Store.Engine = EngineBolt
		s.Store.Bolt.File = dir + "/notes.bolt"
	})

	note := newNoteCmd(port)
	note.Date = "3 Vyr 1318"
	note.Text = "Турнир в Кэйре"
	require.NoError(t, note.Execute([]string{}))

	cmd := newBackupCmd(port)

	// Тестируем также генерацию имени файла. Для этого переходим во временную директорию.
	// После теста возвращаемся туда, где были.
	if wd, err := os.Getwd(); err == nil {
		defer os.Chdir(wd)
	}
	require.NoError(t, os.Chdir(dir))

	err := cmd.Execute([]string{})
	require.NoError(t, err)

	files, err := filepath.Glob("notes_*.bolt.gz")
	require.NoError(t, err)
	require.Len(t, files, 1)

	// 2. Запустить новый app из бекапа и проверить наличие заметки.

	dbFile := gzipDecompress(t, files[0])
	port = startApp(t, func(s *Server) {
		s.Store.Engine = EngineBolt
		s.Store.Bolt.File = dbFile
	})

	status, json := getBody(t, apiUrl(port, "/api/cal/1318/8/3"))
	assert.Equal(t, 200, status)
	assert.Contains(t, json, `"text":"Турнир в Кэйре"`)
}

func TestBackupCmd_memory(t *testing.T) {
	port := startApp(t, nil)

	cmd := newBackupCmd(port)
	cmd.OutFile = t.TempDir() + "/out.bolt.gz"

	err := cmd.Execute([]string{})
	assert.ErrorContains(t, err, "backup is supported by bolt store only")
}

func newBackupCmd(port int) (cmd *Backup) {
	return &Backup{
		ServerUrl:   fmt.Sprintf("http://127.0.0.1:%d", port),
		AdminPasswd: "pass",
		Timeout:     10 * time.Minute,
	}
}

func gzipDecompress(t *testing.T, path string) (decompressedPath string) {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decomp := strings.TrimSuffix(path, ".gz")
	if decomp == path {
		decomp = path + "_decomp"
	}

	df, err := os.Create(decomp)
	require.NoError(t, err)
	defer df.Close()

	r, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer r.Close()

	_, err = io.Copy(df, r)
	require.NoError(t, err)

	return decomp
}

func TestBackupName(t *testing.T) {
	now := time.Date(2022, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "notes_2022-03-01.bolt.gz", backupName(`attachment; filename="notes_2022-03-01.bolt.gz"`, now))
	assert.Equal(t, "notes_2022-03-04.bolt.gz", backupName("", now))
	assert.Equal(t, "notes_2022-03-04.bolt.gz", backupName("attachment", now))
	assert.Equal(t, "notes_2022-03-04.bolt.gz", backupName(`attachment; filename="`, now))
}
