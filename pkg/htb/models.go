package htb

// Profile represents the response of the machine profile endpoint
type Profile struct {
	Info MachineInfo `json:"info"`
}

// MachineInfo holds the machine fields the downloader cares about
type MachineInfo struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	OS             string `json:"os"`
	DifficultyText string `json:"difficultyText"`
	Retired        bool   `json:"retired"`
}
