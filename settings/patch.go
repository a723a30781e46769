package settings

import (
	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/document"
)

// Document keys. Patch and Document agree on this set.
const (
	KeyAdminUsername                   = "admin_username"
	KeyAdminPassword                   = "admin_password"
	KeyCEPin                           = "ce_pin"
	KeyCSNPin                          = "csn_pin"
	KeyResetPin                        = "reset_pin"
	KeyLEDPin                          = "led_pin"
	KeyRadioInterfaceType              = "radio_interface_type"
	KeyPacketRepeats                   = "packet_repeats"
	KeyHTTPRepeatFactor                = "http_repeat_factor"
	KeyAutoRestartPeriod               = "auto_restart_period"
	KeyMQTTServer                      = "mqtt_server"
	KeyMQTTUsername                    = "mqtt_username"
	KeyMQTTPassword                    = "mqtt_password"
	KeyMQTTTopicPattern                = "mqtt_topic_pattern"
	KeyMQTTUpdateTopicPattern          = "mqtt_update_topic_pattern"
	KeyMQTTStateTopicPattern           = "mqtt_state_topic_pattern"
	KeyMQTTClientStatusTopic           = "mqtt_client_status_topic"
	KeyDiscoveryPort                   = "discovery_port"
	KeyListenRepeats                   = "listen_repeats"
	KeyStateFlushInterval              = "state_flush_interval"
	KeyMQTTStateRateLimit              = "mqtt_state_rate_limit"
	KeyPacketRepeatThrottleSensitivity = "packet_repeat_throttle_sensitivity"
	KeyPacketRepeatThrottleThreshold   = "packet_repeat_throttle_threshold"
	KeyPacketRepeatMinimum             = "packet_repeat_minimum"
	KeyEnableAutomaticModeSwitching    = "enable_automatic_mode_switching"
	KeyLEDModeWifiConfig               = "led_mode_wifi_config"
	KeyLEDModeWifiFailed               = "led_mode_wifi_failed"
	KeyLEDModeOperating                = "led_mode_operating"
	KeyLEDModePacket                   = "led_mode_packet"
	KeyLEDModePacketCount              = "led_mode_packet_count"
	KeyHostname                        = "hostname"
	KeyRF24PowerLevel                  = "rf24_power_level"
	KeyRF24ListenChannel               = "rf24_listen_channel"
	KeyWifiStaticIP                    = "wifi_static_ip"
	KeyWifiStaticIPGateway             = "wifi_static_ip_gateway"
	KeyWifiStaticIPNetmask             = "wifi_static_ip_netmask"
	KeyRF24Channels                    = "rf24_channels"
	KeyDeviceIDs                       = "device_ids"
	KeyGatewayConfigs                  = "gateway_configs"
	KeyGroupStateFields                = "group_state_fields"
)

// Patch merges doc into s.
//
// Only keys present in doc are touched and each key is applied on its own: a
// value of the wrong shape leaves that field as it was and is reported as an
// Issue, list entries that fail to decode are dropped from the new list. List
// fields are replaced, never appended to. Unknown keys are ignored and a doc
// that is not an object changes nothing.
func (s *Settings) Patch(doc document.Value, logger zerolog.Logger) []Issue {
	obj, ok := doc.AsObject()
	if !ok {
		return nil
	}
	p := &patcher{obj: obj, logger: logger}

	p.setString(KeyAdminUsername, &s.AdminUsername)
	p.setString(KeyAdminPassword, &s.AdminPassword)
	setUint(p, KeyCEPin, &s.CEPin)
	setUint(p, KeyCSNPin, &s.CSNPin)
	setUint(p, KeyResetPin, &s.ResetPin)
	setUint(p, KeyLEDPin, &s.LEDPin)
	setUint(p, KeyPacketRepeats, &s.PacketRepeats)
	setUint(p, KeyHTTPRepeatFactor, &s.HTTPRepeatFactor)
	setUint(p, KeyAutoRestartPeriod, &s.autoRestartPeriod)
	p.setString(KeyMQTTServer, &s.mqttServer)
	p.setString(KeyMQTTUsername, &s.MQTTUsername)
	p.setString(KeyMQTTPassword, &s.MQTTPassword)
	p.setString(KeyMQTTTopicPattern, &s.MQTTTopicPattern)
	p.setString(KeyMQTTUpdateTopicPattern, &s.MQTTUpdateTopicPattern)
	p.setString(KeyMQTTStateTopicPattern, &s.MQTTStateTopicPattern)
	p.setString(KeyMQTTClientStatusTopic, &s.MQTTClientStatusTopic)
	setUint(p, KeyDiscoveryPort, &s.DiscoveryPort)
	setUint(p, KeyListenRepeats, &s.ListenRepeats)
	setUint(p, KeyStateFlushInterval, &s.StateFlushInterval)
	setUint(p, KeyMQTTStateRateLimit, &s.MQTTStateRateLimit)
	setUint(p, KeyPacketRepeatThrottleThreshold, &s.PacketRepeatThrottleThreshold)
	setUint(p, KeyPacketRepeatThrottleSensitivity, &s.PacketRepeatThrottleSensitivity)
	setUint(p, KeyPacketRepeatMinimum, &s.PacketRepeatMinimum)
	p.setBool(KeyEnableAutomaticModeSwitching, &s.EnableAutomaticModeSwitching)
	setUint(p, KeyLEDModePacketCount, &s.LEDModePacketCount)
	p.setString(KeyHostname, &s.Hostname)
	p.setString(KeyWifiStaticIP, &s.WifiStaticIP)
	p.setString(KeyWifiStaticIPGateway, &s.WifiStaticIPGateway)
	p.setString(KeyWifiStaticIPNetmask, &s.WifiStaticIPNetmask)

	setList(p, KeyRF24Channels, &s.RF24Channels, nameDecoder(RF24ChannelFromName))
	setEnum(p, KeyRF24ListenChannel, &s.RF24ListenChannel, RF24ChannelFromName)
	setEnum(p, KeyRF24PowerLevel, &s.RF24PowerLevel, RF24PowerLevelFromName)
	setEnum(p, KeyLEDModeWifiConfig, &s.LEDModeWifiConfig, LEDModeFromName)
	setEnum(p, KeyLEDModeWifiFailed, &s.LEDModeWifiFailed, LEDModeFromName)
	setEnum(p, KeyLEDModeOperating, &s.LEDModeOperating, LEDModeFromName)
	setEnum(p, KeyLEDModePacket, &s.LEDModePacket, LEDModeFromName)
	setEnum(p, KeyRadioInterfaceType, &s.RadioInterfaceType, RadioInterfaceTypeFromName)

	setList(p, KeyDeviceIDs, &s.DeviceIDs, decodeDeviceID)
	setList(p, KeyGatewayConfigs, &s.GatewayConfigs, decodeGatewayConfig)
	setList(p, KeyGroupStateFields, &s.GroupStateFields, nameDecoder(GroupStateFieldFromName))

	return p.issues
}
