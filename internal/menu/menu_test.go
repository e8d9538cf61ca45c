package menu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespond(t *testing.T) {
	cases := []struct {
		in       string
		contains string
	}{
		{in: "!ping", contains: "pong 🏓"},
		{in: "  Hello ", contains: "*KartavyaAI*"},
		{in: "HI", contains: "Type *menu*"},
		{in: "menu", contains: "1. Custom AI Solutions"},
		{in: "help", contains: "5. API & Backend Services"},
		{in: "1", contains: "*Custom AI Solutions*"},
		{in: "2", contains: "Next.js"},
		{in: "3", contains: "Dialogflow"},
		{in: "4", contains: "Zapier"},
		{in: "5", contains: "admin tools"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			require.Contains(t, Respond(tc.in), tc.contains)
		})
	}
}

func TestRespond_Fallback(t *testing.T) {
	for _, in := range []string{"", "6", "hi there", "ping"} {
		require.Equal(t, Fallback, Respond(in), "input=%q", in)
		_, ok := Lookup(in)
		require.False(t, ok)
	}
}
