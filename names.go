package main

import (
	"regexp"
	"strings"
)

// channelType is a pure function of the channel name prefix.
type channelType int

const (
	channelPublic channelType = iota
	channelPrivate
	channelPresence
)

const channelNameMax = 200

var channelNameRe = regexp.MustCompile(`^(public|private|presence)-[A-Za-z0-9_-]+$`)

func classify(name string) channelType {
	switch {
	case strings.HasPrefix(name, "presence-"):
		return channelPresence
	case strings.HasPrefix(name, "private-"):
		return channelPrivate
	}
	return channelPublic
}

func isValidChannel(name string) bool {
	return len(name) <= channelNameMax && channelNameRe.MatchString(name)
}

func requiresAuth(name string) bool {
	return classify(name) != channelPublic
}
