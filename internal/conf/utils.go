// conf/utils.go - shared parsing helpers for configuration values

package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRetentionPeriod converts a string like "24h", "7d", "1w", "3m", "1y" to hours.
func ParseRetentionPeriod(retention string) (int, error) {
	if retention == "" {
		return 0, fmt.Errorf("retention period cannot be empty")
	}

	lastChar := retention[len(retention)-1]
	numberPart := retention[:len(retention)-1]

	// Handle case where the input is a plain integer
	if lastChar >= '0' && lastChar <= '9' {
		hours, err := strconv.Atoi(retention)
		if err != nil {
			return 0, fmt.Errorf("invalid retention period format: %s", retention)
		}
		return hours, nil
	}

	number, err := strconv.Atoi(numberPart)
	if err != nil {
		return 0, fmt.Errorf("invalid retention period format: %s", retention)
	}

	switch lastChar {
	case 'h':
		return number, nil
	case 'd':
		return number * 24, nil
	case 'w':
		return number * 24 * 7, nil
	case 'm':
		return number * 24 * 30, nil // Approximation, as months can vary in length
	case 'y':
		return number * 24 * 365, nil // Ignoring leap years for simplicity
	default:
		return 0, fmt.Errorf("invalid suffix for retention period: %c", lastChar)
	}
}

// ParsePercentage converts a string like "80%" to a float64.
func ParsePercentage(percentage string) (float64, error) {
	if !strings.HasSuffix(percentage, "%") {
		return 0, fmt.Errorf("invalid percentage format: %s", percentage)
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(percentage, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage format: %s", percentage)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("percentage out of range [0, 100]: %s", percentage)
	}
	return value, nil
}
