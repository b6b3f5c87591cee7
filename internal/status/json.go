package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Ready         bool         `json:"ready"`
	Halted        bool         `json:"halted"`
	InputLength   int          `json:"input_length"`
	ComboLength   int          `json:"combo_length"`
	RemainingMs   int64        `json:"remaining_ms"`
	Flashing      bool         `json:"flashing"`
	Outputs       OutputsJSON  `json:"outputs"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// OutputsJSON reports the last level written to each output.
type OutputsJSON struct {
	Accessory bool `json:"accessory"`
	Green     bool `json:"green"`
	Red       bool `json:"red"`
	Blue      bool `json:"blue"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Primes    int `json:"primes"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Timeouts  int `json:"timeouts"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs            int64  `json:"poll_ms"`
	PrimingDebounceMs int64  `json:"priming_debounce_ms"`
	ComboDebounceMs   int64  `json:"combo_debounce_ms"`
	TimeoutMs         int64  `json:"timeout_ms"`
	HeartbeatMs       int64  `json:"heartbeat_ms"`
	ComboButtons      int    `json:"combo_buttons"`
	Broker            string `json:"broker"`
	HTTPAddr          string `json:"http_addr"`
}

// StateName returns the lock state name, or UNKNOWN before the first Update.
func StateName(snap Snapshot) string {
	if !snap.Ready {
		return "UNKNOWN"
	}
	return snap.Lock.State.String()
}

func buildInner(snap Snapshot) StatusInner {
	ls := snap.Lock
	return StatusInner{
		State:       StateName(snap),
		Ready:       snap.Ready,
		Halted:      ls.Halted,
		InputLength: ls.InputLength,
		ComboLength: ls.ComboLength,
		RemainingMs: ls.Remaining.Milliseconds(),
		Flashing:    ls.Flashing,
		Outputs: OutputsJSON{
			Accessory: ls.Outputs.Accessory,
			Green:     ls.Outputs.Green,
			Red:       ls.Outputs.Red,
			Blue:      ls.Outputs.Blue,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Primes:    ls.Counts.Primes,
			Correct:   ls.Counts.Correct,
			Incorrect: ls.Counts.Incorrect,
			Timeouts:  ls.Counts.Timeouts,
		},
		Config: ConfigJSON{
			PollMs:            snap.Config.PollMs,
			PrimingDebounceMs: snap.Config.PrimingDebounceMs,
			ComboDebounceMs:   snap.Config.ComboDebounceMs,
			TimeoutMs:         snap.Config.TimeoutMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			ComboButtons:      snap.Config.ComboButtons,
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
