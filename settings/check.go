package settings

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const schemaTemplate = `
#Uint8:  int & >=0 & <=255
#Uint16: int & >=0 & <=65535
#Uint32: int & >=0 & <=4294967295

#Channel:    %s
#PowerLevel: %s
#LEDMode:    %s
#StateField: %s

#Settings: {
	admin_username?:                     string
	admin_password?:                     string
	ce_pin?:                             #Uint8
	csn_pin?:                            #Uint8
	reset_pin?:                          #Uint8
	led_pin?:                            #Uint8
	radio_interface_type?:               =~"(?i)^(lt8900|nrf24)$"
	packet_repeats?:                     #Uint32
	http_repeat_factor?:                 #Uint32
	auto_restart_period?:                #Uint32
	mqtt_server?:                        string
	mqtt_username?:                      string
	mqtt_password?:                      string
	mqtt_topic_pattern?:                 string
	mqtt_update_topic_pattern?:          string
	mqtt_state_topic_pattern?:           string
	mqtt_client_status_topic?:           string
	discovery_port?:                     #Uint16
	listen_repeats?:                     #Uint8
	state_flush_interval?:               #Uint32
	mqtt_state_rate_limit?:              #Uint32
	packet_repeat_throttle_sensitivity?: #Uint32
	packet_repeat_throttle_threshold?:   #Uint32
	packet_repeat_minimum?:              #Uint32
	enable_automatic_mode_switching?:    bool
	led_mode_wifi_config?:               #LEDMode
	led_mode_wifi_failed?:               #LEDMode
	led_mode_operating?:                 #LEDMode
	led_mode_packet?:                    #LEDMode
	led_mode_packet_count?:              #Uint8
	hostname?:                           string
	rf24_power_level?:                   #PowerLevel
	rf24_listen_channel?:                #Channel
	wifi_static_ip?:                     string
	wifi_static_ip_gateway?:             string
	wifi_static_ip_netmask?:             string
	rf24_channels?: [...#Channel]
	device_ids?: [...#Uint16]
	gateway_configs?: [...[#Uint16, #Uint16, #Uint8]]
	group_state_fields?: [...#StateField]
}
`

// Schema returns the CUE schema describing a well-formed settings document.
// Patch is more lenient than the schema; the schema documents what Document
// produces and what operators should write.
func Schema() string {
	return fmt.Sprintf(schemaTemplate,
		disjunction(rf24ChannelNames[:]),
		disjunction(rf24PowerLevelNames[:]),
		disjunction(ledModeNames[:]),
		disjunction(groupStateFieldNames[:]),
	)
}

func disjunction(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return strings.Join(quoted, " | ")
}

// Check lints a settings document against Schema. It reports every violation
// as an Issue; the returned error is reserved for input that is not a
// document at all. Check never changes what Patch would do with data.
func Check(name string, data []byte) ([]Issue, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(Schema(), cue.Filename("settings.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile settings schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Settings"))

	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	err := def.Unify(value).Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		path := strings.Join(trimDefinition(e.Path()), ".")
		format, args := e.Msg()
		issues = append(issues, Issue{Key: path, Index: -1, Reason: fmt.Sprintf(format, args...)})
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Index: -1, Reason: err.Error()})
	}
	return issues, nil
}

func trimDefinition(path []string) []string {
	if len(path) > 0 && path[0] == "#Settings" {
		return path[1:]
	}
	return path
}
