package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvin/internal/assistant"
)

type scripted map[string]string

func (s scripted) Handle(text string) string {
	if r, ok := s[text]; ok {
		return r
	}
	return "?"
}

func TestChat(t *testing.T) {
	a := scripted{
		"que horas são": "São 10 horas.",
		"tchau":         assistant.Farewell,
	}
	in := strings.NewReader("que horas são\n\n  tchau  \nnunca lido\n")
	var out bytes.Buffer

	require.NoError(t, chat(context.Background(), a, in, &out))

	got := out.String()
	assert.Contains(t, got, "Marvin: São 10 horas.\n")
	assert.Contains(t, got, "Marvin: "+assistant.Farewell+"\n")
	assert.NotContains(t, got, "?")
}

func TestChat_EOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, chat(context.Background(), scripted{}, strings.NewReader("olá"), &out))
	assert.Contains(t, out.String(), "Marvin: ?\n")
}
