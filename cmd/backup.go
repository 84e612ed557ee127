package cmd

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/nvkalinin/fantasy-calendar/log"
)

// Backup скачивает сжатую копию БД заметок через /api/admin/backup.
type Backup struct {
	ServerUrl   string        `long:"server-url" short:"s" env:"SERVER_URL" value-name:"str" default:"http://localhost" description:"URL сервера с REST API календаря."`
	AdminPasswd string        `long:"passwd" short:"p" env:"WEB_ADMIN_PASSWD" value-name:"str" description:"Пароль пользователя admin."`
	OutFile     string        `long:"out" short:"o" env:"OUT" value-name:"path" description:"Куда сохранить бекап. По умолчанию имя берется из ответа сервера, либо notes_YYYY-MM-DD.bolt.gz"`
	Timeout     time.Duration `long:"timeout" short:"t" env:"TIMEOUT" value-name:"duration" default:"600s" description:"Макс. время выполнения запроса."`
}

func (b *Backup) Execute(args []string) error {
	req, err := adminRequest(http.MethodGet, makeUrl(b.ServerUrl, "/api/admin/backup"), b.AdminPasswd, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := send(&http.Client{Timeout: b.Timeout}, req)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	defer closeBody(resp)

	fname := b.OutFile
	if fname == "" {
		fname = backupName(resp.Header.Get("Content-Disposition"), time.Now())
	}

	n, err := saveFile(fname, resp.Body)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	log.Printf("[INFO] backup saved to %s (%d bytes)", fname, n)
	return nil
}

// backupName берет имя файла из Content-Disposition, а если его там нет, строит из даты.
func backupName(disposition string, now time.Time) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return fmt.Sprintf("notes_%s.bolt.gz", now.Format("2006-01-02"))
}

func saveFile(path string, r io.Reader) (n int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close %s: %w", path, cerr)
		}
	}()

	if n, err = io.Copy(f, r); err != nil {
		return n, fmt.Errorf("cannot save to %s: %w", path, err)
	}
	return n, nil
}
