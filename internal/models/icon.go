package models

import "strings"

// Icon names understood by the map layer.
const (
	IconFire    = "fire"
	IconEMS     = "ems"
	IconPolice  = "police"
	IconDefault = "default"
)

// IconFor classifies an incident's source path into a marker icon. The path
// is only ever used for this classification, never displayed.
func IconFor(sourcePath string) string {
	p := strings.ToLower(sourcePath)
	switch {
	case strings.Contains(p, "fire"):
		return IconFire
	case strings.Contains(p, "ems"), strings.Contains(p, "ambulance"), strings.Contains(p, "medic"):
		return IconEMS
	case strings.Contains(p, "police"), strings.Contains(p, "pd_"), strings.Contains(p, "sheriff"):
		return IconPolice
	default:
		return IconDefault
	}
}
