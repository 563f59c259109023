package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/termhost/internal/client"
)

func TestParseTarget(t *testing.T) {
	tgt, rest, err := parseTarget("exec", []string{"abc", "ls", "-la"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", tgt.id)
	assert.Equal(t, []string{"ls", "-la"}, rest)

	tgt, rest, err = parseTarget("exec", []string{"-name", "web", "ls"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "web", tgt.name)
	assert.Empty(t, tgt.id)
	assert.Equal(t, []string{"ls"}, rest)

	_, _, err = parseTarget("exec", nil, nil)
	var usageErr usageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestRunUsageErrors(t *testing.T) {
	c := client.New(client.DefaultOptions("http://127.0.0.1:1"))
	ctx := context.Background()

	for _, args := range [][]string{
		{"bogus"},
		{"kill"},
		{"resize", "abc", "x", "10"},
		{"create"},
		{"tool"},
		{"tool", "terminal.list_sessions", "not-json"},
	} {
		err := run(ctx, c, args[0], args[1:])
		var usageErr usageError
		assert.True(t, errors.As(err, &usageErr), "%v: %v", args, err)
	}
}

func TestRunKillAgainstServer(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c := client.New(client.DefaultOptions(server.URL))
	require.NoError(t, run(context.Background(), c, "kill", []string{"01ABC"}))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/terminals/01ABC", gotPath)
}
