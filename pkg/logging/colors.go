package logging

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Color functions
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgBlue)
	eventColor   = color.New(color.FgCyan, color.Bold)
	deviceColor  = color.New(color.FgMagenta)
	debugColor   = color.New(color.FgWhite, color.Faint)

	// Control flags
	colorsEnabled = true
)

// InitColors initializes the color system
func InitColors(enabled bool) {
	colorsEnabled = enabled

	// Respect NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
	}

	// Apply the setting to the color library; whether output is a terminal
	// is not checked here.
	color.NoColor = !colorsEnabled
}

// AreColorsEnabled returns whether colors are currently enabled
func AreColorsEnabled() bool {
	return colorsEnabled
}

// Errorf prints an error message in red. Always shown, regardless of
// verbosity: level 0 still surfaces errors.
func Errorf(format string, args ...interface{}) {
	if colorsEnabled {
		errorColor.Printf("ERROR: "+format+"\n", args...)
	} else {
		fmt.Printf("ERROR: "+format+"\n", args...)
	}
}

// Warningf prints a warning message in yellow, gated on verbosity >= 1.
func Warningf(format string, args ...interface{}) {
	if !defaultConfig.enabled(LevelWarning, "") {
		return
	}
	if colorsEnabled {
		warningColor.Printf("WARN: "+format+"\n", args...)
	} else {
		fmt.Printf("WARN: "+format+"\n", args...)
	}
}

// Infof prints an info message in blue, gated on verbosity >= 2.
func Infof(format string, args ...interface{}) {
	if !defaultConfig.enabled(LevelInfo, "") {
		return
	}
	if colorsEnabled {
		infoColor.Printf(format+"\n", args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}

// Debugf prints a debug message in faint white, gated on verbosity >= 3.
func Debugf(format string, args ...interface{}) {
	if !defaultConfig.enabled(LevelDebug, "") {
		return
	}
	if colorsEnabled {
		debugColor.Printf(format+"\n", args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}

// Event prints an event-loop/dispatch message with the event kind in cyan,
// gated on verbosity >= 3 unless kind has a component-specific override.
func Event(kind string, format string, args ...interface{}) {
	if !defaultConfig.enabled(LevelDebug, kind) {
		return
	}
	if colorsEnabled {
		eventColor.Printf("[%s] ", kind)
		fmt.Printf(format+"\n", args...)
	} else {
		fmt.Printf("[%s] "+format+"\n", append([]interface{}{kind}, args...)...)
	}
}

// Device prints a device-specific message with the AL-MAC in magenta.
func Device(alMac string, format string, args ...interface{}) {
	if !defaultConfig.enabled(LevelInfo, "") {
		return
	}
	if colorsEnabled {
		deviceColor.Printf("[%s] ", alMac)
		fmt.Printf(format+"\n", args...)
	} else {
		fmt.Printf("[%s] "+format+"\n", append([]interface{}{alMac}, args...)...)
	}
}

// Sprintf returns a colored string without printing (useful for building messages)
func Sprintf(colorType string, format string, args ...interface{}) string {
	var c *color.Color
	switch colorType {
	case "error":
		c = errorColor
	case "warning":
		c = warningColor
	case "info":
		c = infoColor
	case "event":
		c = eventColor
	case "device":
		c = deviceColor
	case "debug":
		c = debugColor
	default:
		return fmt.Sprintf(format, args...)
	}

	if colorsEnabled {
		return c.Sprintf(format, args...)
	}
	return fmt.Sprintf(format, args...)
}
