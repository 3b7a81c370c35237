package mqtt

import (
	"strings"

	"github.com/muurk/dlipower/internal/powerswitch"
)

const (
	// DefaultTopicPrefix is used when the configuration names none
	DefaultTopicPrefix = "dlipower"

	bridgeStateTopic = "bridge/state"
)

// topicName makes a switch name safe for use as one topic level
func topicName(name string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_")
	return r.Replace(strings.TrimSpace(name))
}

func statusTopic(prefix, name string) string {
	return prefix + "/" + topicName(name) + "/status"
}

func resultTopic(prefix, name, outlet string) string {
	return prefix + "/" + topicName(name) + "/outlet/" + outlet + "/result"
}

// commandFilter matches every outlet command topic under prefix
func commandFilter(prefix string) string {
	return prefix + "/+/outlet/+/set"
}

// parseCommandTopic splits "<prefix>/<switch>/outlet/<ref>/set" into the
// switch topic name and the outlet reference.
func parseCommandTopic(prefix, topic string) (string, powerswitch.OutletRef, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", powerswitch.OutletRef{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[1] != "outlet" || parts[3] != "set" || parts[0] == "" || parts[2] == "" {
		return "", powerswitch.OutletRef{}, false
	}
	return parts[0], powerswitch.ParseRef(parts[2]), true
}

// parsePayload accepts ON, OFF and CYCLE in any case
func parsePayload(payload []byte) (powerswitch.Command, bool) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "ON":
		return powerswitch.CommandOn, true
	case "OFF":
		return powerswitch.CommandOff, true
	case "CYCLE":
		return powerswitch.CommandCycle, true
	}
	return 0, false
}
