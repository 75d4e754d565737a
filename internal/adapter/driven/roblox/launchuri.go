package roblox

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// placeLauncherURL is the legacy place launcher endpoint embedded in every
// launch descriptor.
const placeLauncherURL = "https://assetgame.roblox.com/game/PlaceLauncher.ashx?request=RequestGame&placeId="

// BuildLaunchURI returns the roblox-player deep link for ticket and placeID.
// Fields are joined with '+' in a fixed order, each as key:value, after a
// leading protocol version of 1. The client parses the descriptor
// positionally, so the order and delimiters must not change.
func BuildLaunchURI(ticket, placeID string, now time.Time, trackerID int) string {
	fields := []struct{ key, value string }{
		{"launchmode", "play"},
		{"gameinfo", ticket},
		{"launchtime", strconv.FormatInt(now.UnixMilli(), 10)},
		{"placelauncherurl", url.QueryEscape(placeLauncherURL + placeID)},
		{"browsertrackerid", strconv.Itoa(trackerID)},
		{"robloxLocale", "en_us"},
		{"gameLocale", "en_us"},
		{"channel", ""},
		{"LaunchExp", "InApp"},
	}

	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, "1")
	for _, f := range fields {
		parts = append(parts, f.key+":"+f.value)
	}
	return "roblox-player:" + strings.Join(parts, "+")
}
