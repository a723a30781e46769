package settings

import "strings"

// RadioInterfaceType selects the radio chip driving the 2.4GHz link.
type RadioInterfaceType uint8

const (
	// NRF24 is the nRF24L01(+) transceiver.
	NRF24 RadioInterfaceType = iota
	// LT8900 is the LT8900 / PL1167 transceiver.
	LT8900
)

// RadioInterfaceTypeFromName decodes s case-insensitively. Anything other than
// "lt8900" selects NRF24.
func RadioInterfaceTypeFromName(s string) RadioInterfaceType {
	if strings.EqualFold(strings.TrimSpace(s), "lt8900") {
		return LT8900
	}
	return NRF24
}

func (t RadioInterfaceType) String() string {
	if t == LT8900 {
		return "LT8900"
	}
	return "nRF24"
}

// RF24Channel is one of the three channel sets a MiLight remote transmits on.
type RF24Channel uint8

const (
	RF24ChannelLow RF24Channel = iota
	RF24ChannelMid
	RF24ChannelHigh
)

var rf24ChannelNames = [...]string{"LOW", "MID", "HIGH"}

// AllRF24Channels lists every channel in declaration order.
func AllRF24Channels() []RF24Channel {
	return []RF24Channel{RF24ChannelLow, RF24ChannelMid, RF24ChannelHigh}
}

// RF24ChannelFromName decodes an exact channel name, falling back to HIGH.
func RF24ChannelFromName(s string) RF24Channel {
	for i, name := range rf24ChannelNames {
		if name == s {
			return RF24Channel(i)
		}
	}
	return RF24ChannelHigh
}

func (c RF24Channel) String() string {
	if int(c) < len(rf24ChannelNames) {
		return rf24ChannelNames[c]
	}
	return RF24ChannelHigh.String()
}

// RF24PowerLevel is the PA level of the nRF24 radio.
type RF24PowerLevel uint8

const (
	RF24PowerMin RF24PowerLevel = iota
	RF24PowerLow
	RF24PowerHigh
	RF24PowerMax
)

var rf24PowerLevelNames = [...]string{"MIN", "LOW", "HIGH", "MAX"}

// RF24PowerLevelFromName decodes an exact power level name, falling back to MAX.
func RF24PowerLevelFromName(s string) RF24PowerLevel {
	for i, name := range rf24PowerLevelNames {
		if name == s {
			return RF24PowerLevel(i)
		}
	}
	return RF24PowerMax
}

func (p RF24PowerLevel) String() string {
	if int(p) < len(rf24PowerLevelNames) {
		return rf24PowerLevelNames[p]
	}
	return RF24PowerMax.String()
}

// LEDMode is a blink pattern of the status LED.
type LEDMode uint8

const (
	LEDOff LEDMode = iota
	LEDSlowToggle
	LEDFastToggle
	LEDSlowBlip
	LEDFastBlip
	LEDFlicker
	LEDOn
	LEDUnknown
)

var ledModeNames = [...]string{
	"Off",
	"Slow toggle",
	"Fast toggle",
	"Slow blip",
	"Fast blip",
	"Flicker",
	"On",
	"Unknown",
}

// LEDModeFromName decodes an exact mode name. Unrecognized names yield LEDUnknown.
func LEDModeFromName(s string) LEDMode {
	for i, name := range ledModeNames {
		if name == s {
			return LEDMode(i)
		}
	}
	return LEDUnknown
}

func (m LEDMode) String() string {
	if int(m) < len(ledModeNames) {
		return ledModeNames[m]
	}
	return LEDUnknown.String()
}

// GroupStateField names one attribute of a light group's state that is
// published over MQTT and the REST API.
type GroupStateField uint8

const (
	FieldUnknown GroupStateField = iota
	FieldState
	FieldStatus
	FieldBrightness
	FieldLevel
	FieldHue
	FieldSaturation
	FieldColor
	FieldMode
	FieldKelvin
	FieldColorTemp
	FieldBulbMode
	FieldComputedColor
	FieldEffect
	FieldDeviceID
	FieldGroupID
	FieldDeviceType
	FieldOHColor
	FieldHexColor
)

var groupStateFieldNames = [...]string{
	"unknown",
	"state",
	"status",
	"brightness",
	"level",
	"hue",
	"saturation",
	"color",
	"mode",
	"kelvin",
	"color_temp",
	"bulb_mode",
	"computed_color",
	"effect",
	"device_id",
	"group_id",
	"device_type",
	"oh_color",
	"hex_color",
}

// GroupStateFieldFromName decodes an exact field name, falling back to FieldUnknown.
func GroupStateFieldFromName(s string) GroupStateField {
	for i, name := range groupStateFieldNames {
		if name == s {
			return GroupStateField(i)
		}
	}
	return FieldUnknown
}

func (f GroupStateField) String() string {
	if int(f) < len(groupStateFieldNames) {
		return groupStateFieldNames[f]
	}
	return FieldUnknown.String()
}
