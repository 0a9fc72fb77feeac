package models

import (
	"fmt"
	"strconv"
)

// minutesPerWorkday converts sqale_index minutes into 8 hour days.
const minutesPerWorkday = 8 * 60

// RatingLabel converts a numeric SonarQube rating ("1".."5") to its letter
// grade. Nil or empty input yields "N/A"; unknown values pass through
// unchanged.
func RatingLabel(rating *string) string {
	if rating == nil || *rating == "" {
		return "N/A"
	}
	switch *rating {
	case "1":
		return "A"
	case "2":
		return "B"
	case "3":
		return "C"
	case "4":
		return "D"
	case "5":
		return "E"
	}
	return *rating
}

// FormatTechnicalDebt renders a sqale_index value (minutes) as days and
// hours, assuming an 8 hour workday. Nil, empty, negative or non-numeric
// input yields "N/A".
func FormatTechnicalDebt(minutes *string) string {
	if minutes == nil || *minutes == "" {
		return "N/A"
	}
	total, err := strconv.Atoi(*minutes)
	if err != nil || total < 0 {
		return "N/A"
	}
	days := total / minutesPerWorkday
	hours := (total % minutesPerWorkday) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh", hours)
}
