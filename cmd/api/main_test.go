package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartersCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"starters"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "Can Ava access my CRM?\t"))
	require.True(t, strings.HasPrefix(lines[3], "Generate Sample Email\t"))
}

func TestAskCommandPrintsReply(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"hello"}`))
	}))
	defer api.Close()
	t.Setenv("CHAT_API_ENDPOINT", api.URL)
	t.Setenv("SESSION_STORE", "memory")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ask", "Create", "a", "Campaign"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "hello\n", out.String())
}

func TestAskCommandReportsRelayError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer api.Close()
	t.Setenv("CHAT_API_ENDPOINT", api.URL)
	t.Setenv("SESSION_STORE", "memory")

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"ask", "hi"})

	require.Error(t, cmd.Execute())
	require.Empty(t, out.String())
	require.True(t, strings.HasPrefix(errOut.String(), "Error: HTTP error occurred:"))
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAppServesRegisteredStarters(t *testing.T) {
	t.Setenv("SESSION_STORE", "memory")

	a, err := newApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, newStarterStore().List(), a.starters.List())
	require.Len(t, a.starters.List(), 4)
}
