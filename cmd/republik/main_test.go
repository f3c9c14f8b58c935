package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeepLink(t *testing.T) {
	const base = "https://www.republik.ch"

	for _, tc := range []struct {
		arg  string
		want string
		ok   bool
	}{
		{arg: "https://www.republik.ch/feed", want: "https://www.republik.ch/feed", ok: true},
		{arg: "/2024/05/01/artikel", want: base + "/2024/05/01/artikel", ok: true},
		{arg: "republik://feed", want: base + "/feed", ok: true},
		{arg: "republik://dossier/klima?x=1", want: base + "/dossier/klima?x=1", ok: true},
		{arg: "-psn_0_12345", ok: false},
		{arg: "", ok: false},
	} {
		got, ok := deepLink(base, tc.arg)
		require.Equal(t, tc.ok, ok, tc.arg)
		require.Equal(t, tc.want, got, tc.arg)
	}
}
