package settings

import "github.com/timzifer/rfbridge/document"

// Document renders s as the canonical settings document. Every key accepted
// by Patch is present.
func (s *Settings) Document() document.Value {
	root := document.NewObject()
	str := func(key, value string) { root.Set(key, document.String(value)) }
	num := func(key string, value uint64) { root.Set(key, document.Uint(value)) }

	str(KeyAdminUsername, s.AdminUsername)
	str(KeyAdminPassword, s.AdminPassword)
	num(KeyCEPin, uint64(s.CEPin))
	num(KeyCSNPin, uint64(s.CSNPin))
	num(KeyResetPin, uint64(s.ResetPin))
	num(KeyLEDPin, uint64(s.LEDPin))
	str(KeyRadioInterfaceType, s.RadioInterfaceType.String())
	num(KeyPacketRepeats, uint64(s.PacketRepeats))
	num(KeyHTTPRepeatFactor, uint64(s.HTTPRepeatFactor))
	num(KeyAutoRestartPeriod, uint64(s.autoRestartPeriod))
	str(KeyMQTTServer, s.mqttServer)
	str(KeyMQTTUsername, s.MQTTUsername)
	str(KeyMQTTPassword, s.MQTTPassword)
	str(KeyMQTTTopicPattern, s.MQTTTopicPattern)
	str(KeyMQTTUpdateTopicPattern, s.MQTTUpdateTopicPattern)
	str(KeyMQTTStateTopicPattern, s.MQTTStateTopicPattern)
	str(KeyMQTTClientStatusTopic, s.MQTTClientStatusTopic)
	num(KeyDiscoveryPort, uint64(s.DiscoveryPort))
	num(KeyListenRepeats, uint64(s.ListenRepeats))
	num(KeyStateFlushInterval, uint64(s.StateFlushInterval))
	num(KeyMQTTStateRateLimit, uint64(s.MQTTStateRateLimit))
	num(KeyPacketRepeatThrottleSensitivity, uint64(s.PacketRepeatThrottleSensitivity))
	num(KeyPacketRepeatThrottleThreshold, uint64(s.PacketRepeatThrottleThreshold))
	num(KeyPacketRepeatMinimum, uint64(s.PacketRepeatMinimum))
	root.Set(KeyEnableAutomaticModeSwitching, document.Bool(s.EnableAutomaticModeSwitching))
	str(KeyLEDModeWifiConfig, s.LEDModeWifiConfig.String())
	str(KeyLEDModeWifiFailed, s.LEDModeWifiFailed.String())
	str(KeyLEDModeOperating, s.LEDModeOperating.String())
	str(KeyLEDModePacket, s.LEDModePacket.String())
	num(KeyLEDModePacketCount, uint64(s.LEDModePacketCount))
	str(KeyHostname, s.Hostname)
	str(KeyRF24PowerLevel, s.RF24PowerLevel.String())
	str(KeyRF24ListenChannel, s.RF24ListenChannel.String())
	str(KeyWifiStaticIP, s.WifiStaticIP)
	str(KeyWifiStaticIPGateway, s.WifiStaticIPGateway)
	str(KeyWifiStaticIPNetmask, s.WifiStaticIPNetmask)

	root.Set(KeyRF24Channels, encodeList(s.RF24Channels, encodeName[RF24Channel]))
	root.Set(KeyDeviceIDs, encodeList(s.DeviceIDs, encodeUint[uint16]))
	root.Set(KeyGatewayConfigs, encodeList(s.GatewayConfigs, encodeGatewayConfig))
	root.Set(KeyGroupStateFields, encodeList(s.GroupStateFields, encodeName[GroupStateField]))

	return document.ObjectValue(root)
}

// ToJSON renders the canonical document as text.
func (s *Settings) ToJSON(pretty bool) string {
	return string(document.Marshal(s.Document(), pretty))
}
