// Package settings holds the persistent configuration of the radio bridge and
// the rules that merge external documents into it.
package settings

import (
	"strconv"
	"strings"
)

const (
	// FileName is the well-known storage name of the settings document.
	FileName = "settings.json"
	// DefaultMQTTPort applies when the MQTT server carries no port.
	DefaultMQTTPort uint16 = 1883
	// MinimumRestartPeriod is the smallest automatic restart period in seconds.
	MinimumRestartPeriod uint32 = 300
)

// GatewayConfig binds a device id to a UDP port speaking one version of the
// MiLight gateway protocol.
type GatewayConfig struct {
	DeviceID        uint16
	Port            uint16
	ProtocolVersion uint8
}

// NewGatewayConfig builds a gateway entry.
func NewGatewayConfig(deviceID, port uint16, protocolVersion uint8) GatewayConfig {
	return GatewayConfig{DeviceID: deviceID, Port: port, ProtocolVersion: protocolVersion}
}

// Settings is the full device configuration.
type Settings struct {
	AdminUsername string
	AdminPassword string

	CEPin              uint8
	CSNPin             uint8
	ResetPin           uint8
	LEDPin             uint8
	RadioInterfaceType RadioInterfaceType

	PacketRepeats    uint32
	HTTPRepeatFactor uint32
	ListenRepeats    uint8

	autoRestartPeriod uint32

	mqttServer             string
	MQTTUsername           string
	MQTTPassword           string
	MQTTTopicPattern       string
	MQTTUpdateTopicPattern string
	MQTTStateTopicPattern  string
	MQTTClientStatusTopic  string

	DiscoveryPort      uint16
	StateFlushInterval uint32
	MQTTStateRateLimit uint32

	PacketRepeatThrottleSensitivity uint32
	PacketRepeatThrottleThreshold   uint32
	PacketRepeatMinimum             uint32
	EnableAutomaticModeSwitching    bool

	LEDModeWifiConfig  LEDMode
	LEDModeWifiFailed  LEDMode
	LEDModeOperating   LEDMode
	LEDModePacket      LEDMode
	LEDModePacketCount uint8

	Hostname            string
	WifiStaticIP        string
	WifiStaticIPGateway string
	WifiStaticIPNetmask string

	RF24PowerLevel    RF24PowerLevel
	RF24ListenChannel RF24Channel
	RF24Channels      []RF24Channel

	DeviceIDs        []uint16
	GatewayConfigs   []GatewayConfig
	GroupStateFields []GroupStateField
}

// Default returns the factory configuration.
func Default() Settings {
	return Settings{
		CEPin:              4,
		CSNPin:             15,
		ResetPin:           0,
		LEDPin:             2,
		RadioInterfaceType: NRF24,

		PacketRepeats:    50,
		HTTPRepeatFactor: 1,
		ListenRepeats:    3,

		DiscoveryPort:      48899,
		StateFlushInterval: 10000,
		MQTTStateRateLimit: 500,

		PacketRepeatThrottleSensitivity: 0,
		PacketRepeatThrottleThreshold:   200,
		PacketRepeatMinimum:             3,

		LEDModeWifiConfig:  LEDFastToggle,
		LEDModeWifiFailed:  LEDOn,
		LEDModeOperating:   LEDSlowBlip,
		LEDModePacket:      LEDFlicker,
		LEDModePacketCount: 3,

		Hostname: "milight-hub",

		RF24PowerLevel:    RF24PowerMax,
		RF24ListenChannel: RF24ChannelLow,
		RF24Channels:      AllRF24Channels(),

		DeviceIDs:      []uint16{},
		GatewayConfigs: []GatewayConfig{},
		GroupStateFields: []GroupStateField{
			FieldState,
			FieldBrightness,
			FieldComputedColor,
			FieldMode,
			FieldColorTemp,
			FieldBulbMode,
		},
	}
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() Settings {
	out := *s
	out.RF24Channels = append([]RF24Channel{}, s.RF24Channels...)
	out.DeviceIDs = append([]uint16{}, s.DeviceIDs...)
	out.GatewayConfigs = append([]GatewayConfig{}, s.GatewayConfigs...)
	out.GroupStateFields = append([]GroupStateField{}, s.GroupStateFields...)
	return out
}

// HasAuthSettings reports whether both admin credentials are set.
func (s *Settings) HasAuthSettings() bool {
	return s.AdminUsername != "" && s.AdminPassword != ""
}

// SetAutoRestartPeriod stores the restart period in seconds; zero disables it.
func (s *Settings) SetAutoRestartPeriod(seconds uint32) {
	s.autoRestartPeriod = seconds
}

// IsAutoRestartEnabled reports whether a restart period is configured.
func (s *Settings) IsAutoRestartEnabled() bool {
	return s.autoRestartPeriod > 0
}

// AutoRestartPeriod returns the effective restart period in seconds. Non-zero
// periods are raised to MinimumRestartPeriod.
func (s *Settings) AutoRestartPeriod() uint32 {
	if s.autoRestartPeriod == 0 {
		return 0
	}
	return max(s.autoRestartPeriod, MinimumRestartPeriod)
}

// SetMQTTServer stores the combined "host[:port]" broker address.
func (s *Settings) SetMQTTServer(address string) {
	s.mqttServer = address
}

// MQTTServerAddress returns the combined broker address as configured.
func (s *Settings) MQTTServerAddress() string {
	return s.mqttServer
}

// MQTTServer returns the broker host: everything before the first ':'.
func (s *Settings) MQTTServer() string {
	host, _, found := strings.Cut(s.mqttServer, ":")
	if !found {
		return s.mqttServer
	}
	return host
}

// MQTTPort returns the broker port following the first ':', or DefaultMQTTPort
// when there is none or it is not a valid port number. An empty port ("host:")
// and ports above 65535 therefore yield DefaultMQTTPort rather than 0 or a
// truncated value.
func (s *Settings) MQTTPort() uint16 {
	_, port, found := strings.Cut(s.mqttServer, ":")
	if !found {
		return DefaultMQTTPort
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16)
	if err != nil {
		return DefaultMQTTPort
	}
	return uint16(parsed)
}
