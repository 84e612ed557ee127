package cmd

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testToday = "1 Naeril 1318"

// testServer - сервер на свободном порту с хранилищем в памяти, паролем "pass" и датой мира testToday.
func testServer(port int) *Server {
	s := &Server{
		Today: testToday,
	}
	s.Web.Listen = fmt.Sprintf("127.0.0.1:%d", port)
	s.Web.AdminPasswd = "pass"
	s.Web.ReadTimeout = 5 * time.Second
	s.Web.ReadHeaderTimeout = 5 * time.Second
	s.Web.WriteTimeout = 5 * time.Second
	s.Web.IdleTimeout = 30 * time.Second
	s.Web.RateLimiter.ReqLimit = 100
	s.Web.RateLimiter.LimitWindow = 1 * time.Second
	s.Store.Engine = EngineMemory
	return s
}

func newApp(t *testing.T, mod func(*Server)) (*Server, *app, int) {
	port := unusedPort(t)
	s := testServer(port)
	if mod != nil {
		mod(s)
	}

	a, err := s.makeApp()
	require.NoError(t, err)
	return s, a, port
}

// startApp запускает сервер и ждет, пока он начнет отвечать. Сервер останавливается после теста.
func startApp(t *testing.T, mod func(*Server)) (port int) {
	_, a, port := newApp(t, mod)
	t.Cleanup(a.shutdown)

	go a.run()
	waitForHTTP(t, port)
	return port
}

func unusedPort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

func apiUrl(port int, path string) string {
	return fmt.Sprintf("http://localhost:%d%s", port, path)
}

func waitForHTTP(t *testing.T, port int) {
	require.Eventually(t, func() bool {
		resp, err := http.Get(apiUrl(port, "/ping"))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == 200
	}, 5*time.Second, 50*time.Millisecond, "server on port %d is not up", port)
}

func getBody(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}
