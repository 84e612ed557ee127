package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nvkalinin/fantasy-calendar/log"
)

// Note сохраняет заметку на дату через REST API сервера. Дата разбирается сервером,
// поэтому используется его таблица месяцев.
type Note struct {
	ServerUrl   string        `long:"server-url" short:"s" env:"SERVER_URL" value-name:"str" default:"http://localhost" description:"URL сервера с REST API календаря."`
	AdminPasswd string        `long:"passwd" short:"p" env:"WEB_ADMIN_PASSWD" value-name:"str" description:"Пароль пользователя admin."`
	Timeout     time.Duration `long:"timeout" short:"t" env:"TIMEOUT" value-name:"duration" default:"60s" description:"Макс. время выполнения запроса."`
	Date        string        `long:"date" value-name:"date" required:"true" description:"Дата, например '5 Golus 1318'. Недостающие части берутся из текущей даты мира."`
	Text        string        `long:"text" value-name:"str" description:"Текст заметки. Если пустой, заметка удаляется."`
}

type parsedDate struct {
	Date struct {
		Year  int    `json:"year"`
		Month int    `json:"month"`
		Day   int    `json:"day"`
		Text  string `json:"text"`
	} `json:"date"`
	OK          bool              `json:"ok"`
	Suggestions map[string]string `json:"suggestions"`
}

func (n *Note) Execute(args []string) error {
	client := &http.Client{
		Timeout: n.Timeout,
	}

	date, err := n.resolveDate(client)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"text": n.Text})
	if err != nil {
		return fmt.Errorf("cannot marshal note: %w", err)
	}

	path := fmt.Sprintf("/api/admin/notes/%d/%d/%d", date.Date.Year, date.Date.Month, date.Date.Day)
	req, err := adminRequest(http.MethodPut, makeUrl(n.ServerUrl, path), n.AdminPasswd, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res := struct {
		Stored bool `json:"stored"`
	}{}
	if err := doJson(client, req, &res); err != nil {
		return fmt.Errorf("note: %w", err)
	}

	if res.Stored {
		log.Printf("[INFO] note for %s saved", date.Date.Text)
	} else {
		log.Printf("[INFO] note for %s deleted", date.Date.Text)
	}
	return nil
}

func (n *Note) resolveDate(client *http.Client) (*parsedDate, error) {
	params := url.Values{"q": {n.Date}}
	req, err := http.NewRequest(http.MethodGet, makeUrl(n.ServerUrl, "/api/parse?"+params.Encode()), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("cannot make request: %w", err)
	}

	res := &parsedDate{}
	if err := doJson(client, req, res); err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}

	if !res.OK {
		for typo, month := range res.Suggestions {
			log.Printf("[INFO] unknown word '%s', did you mean '%s'?", typo, month)
		}
		return nil, fmt.Errorf("invalid date '%s'", n.Date)
	}
	return res, nil
}
