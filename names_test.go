package main

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := map[string]channelType{
		"public-chat":     channelPublic,
		"private-room":    channelPrivate,
		"presence-lobby":  channelPresence,
		"presence-":       channelPresence,
		"chat":            channelPublic,
		"privateish-room": channelPublic,
	}
	for name, expected := range cases {
		if got := classify(name); got != expected {
			t.Fatal("Expectation:", expected, "Received:", got, "for", name)
		}
	}
}

func TestIsValidChannel(t *testing.T) {
	valid := []string{
		"public-chat",
		"private-room_1",
		"presence-lobby-2",
		"public-" + strings.Repeat("a", 193),
	}
	for _, name := range valid {
		if !isValidChannel(name) {
			t.Fatal("Expectation: valid, Received: invalid for", name)
		}
	}

	invalid := []string{
		"",
		"chat",
		"public-",
		"public-room!",
		"public-room with space",
		"Public-chat",
		"public-" + strings.Repeat("a", 194),
	}
	for _, name := range invalid {
		if isValidChannel(name) {
			t.Fatal("Expectation: invalid, Received: valid for", name)
		}
	}
}

func TestRequiresAuth(t *testing.T) {
	if requiresAuth("public-chat") {
		t.Fatal("Expectation: public channels need no auth")
	}
	if !requiresAuth("private-room") || !requiresAuth("presence-lobby") {
		t.Fatal("Expectation: private and presence channels require auth")
	}
}
