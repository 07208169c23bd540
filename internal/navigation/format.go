package navigation

import (
	"fmt"
	"math"
)

// FormatDistance renders the distance to the next maneuver.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("In %d meters", int(math.Round(meters)))
	}
	return fmt.Sprintf("In %.1f km", meters/1000)
}

// FormatTotalDistance renders a route length.
func FormatTotalDistance(meters float64) string {
	return fmt.Sprintf("Total distance: %.1f km", meters/1000)
}

const arrivedDirectionText = "You have reached your destination"

func arrivedInstruction(d Destination) string {
	return fmt.Sprintf("Arrived at %s!", d.DisplayName())
}

func statusLocating() string { return "Getting your location..." }

func statusRouting(d Destination) string {
	return fmt.Sprintf("Calculating route to %s...", d.DisplayName())
}

func statusNavigating(d Destination) string {
	return fmt.Sprintf("Navigating to %s", d.DisplayName())
}

func statusRemaining(meters float64, d Destination) string {
	return fmt.Sprintf("%.0fm to %s", meters, d.DisplayName())
}

func statusArrived(d Destination) string {
	return fmt.Sprintf("You've arrived at %s!", d.DisplayName())
}

func statusError(err error) string {
	return fmt.Sprintf("Error: %s", err)
}
