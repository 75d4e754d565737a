package model

// Settings holds the persisted feature toggles.
type Settings struct {
	MultiInstance bool // Keep clearing the client's single-instance lock.
	HideUsernames bool // Replace usernames with [hidden] in labels.
}

// Setting keys in the settings table.
const (
	SettingMultiInstance = "multi_instance"
	SettingHideUsernames = "hide_usernames"
)
