package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nvkalinin/fantasy-calendar/log"
)

func makeUrl(serverUrl string, path string) string {
	return strings.TrimRight(serverUrl, "/") + path
}

// adminRequest - запрос к /api/admin/* с basic auth пользователя admin.
func adminRequest(method, url, passwd string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("cannot make request: %w", err)
	}
	req.SetBasicAuth("admin", passwd)
	return req, nil
}

func readJsonError(body []byte) error {
	restErr := &struct {
		Msg string `json:"msg"`
	}{}
	if err := json.Unmarshal(body, restErr); err != nil {
		return fmt.Errorf("cannot read error msg: %w", err)
	}
	return errors.New(restErr.Msg)
}

// send выполняет запрос. Если статус не 200, закрывает тело ответа и возвращает ошибку из него,
// иначе закрыть тело должен вызывающий.
func send(client *http.Client, req *http.Request) (*http.Response, error) {
	log.Printf("[DEBUG] request: %s %s", req.Method, req.URL)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot make request: %w", err)
	}
	if resp.StatusCode == 200 {
		return resp, nil
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read err response (status %d): %w", resp.StatusCode, err)
	}
	return nil, fmt.Errorf("status %d: %w", resp.StatusCode, readJsonError(body))
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		log.Printf("[WARN] cannot close response: %v", err)
	}
}

// doJson выполняет запрос и разбирает JSON-ответ в res.
func doJson(client *http.Client, req *http.Request, res any) error {
	resp, err := send(client, req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cannot read response: %w", err)
	}
	log.Printf("[DEBUG] response: %s", body)

	if err := json.Unmarshal(body, res); err != nil {
		return fmt.Errorf("cannot parse response: %w", err)
	}
	return nil
}
