package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/combo-lock/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"led": func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	},
	// progress renders entered digits as filled dots, e.g. "●●○".
	"progress": func(entered, total int) string {
		if entered > total {
			entered = total
		}
		return strings.Repeat("●", entered) + strings.Repeat("○", total-entered)
	},
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("%.1fs", d.Seconds())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Combo Lock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.state { font-weight: bold; }
.halted { color: red; font-weight: bold; }
.led { display: inline-block; width: 10px; height: 10px; border-radius: 50%; margin-right: 6px; background: #ccc; }
.led.green.on { background: green; }
.led.red.on { background: red; }
.led.blue.on { background: blue; }
.led.accessory.on { background: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Combo Lock</h1>

<h2>Lock</h2>
<table>
<tr><th>State</th><td id="lock-state" class="state">{{.State}}</td></tr>
{{if .Lock.Halted}}<tr><th>Fault</th><td class="halted">halted, restart required</td></tr>{{end}}
<tr><th>Entry</th><td id="progress">{{progress .Lock.InputLength .Lock.ComboLength}}</td></tr>
{{if gt .Lock.Remaining 0}}<tr><th>Remaining</th><td>{{seconds .Lock.Remaining}}</td></tr>{{end}}
<tr><th>Flashing</th><td>{{if .Lock.Flashing}}yes{{else}}no{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Outputs</h2>
<table>
<tr><th>Accessory</th><td><span class="led accessory {{led .Lock.Outputs.Accessory}}"></span>{{led .Lock.Outputs.Accessory}}</td></tr>
<tr><th>Green</th><td><span class="led green {{led .Lock.Outputs.Green}}"></span>{{led .Lock.Outputs.Green}}</td></tr>
<tr><th>Red</th><td><span class="led red {{led .Lock.Outputs.Red}}"></span>{{led .Lock.Outputs.Red}}</td></tr>
<tr><th>Blue</th><td><span class="led blue {{led .Lock.Outputs.Blue}}"></span>{{led .Lock.Outputs.Blue}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Primed</th><td>{{.Lock.Counts.Primes}}</td></tr>
<tr><th>Correct</th><td>{{.Lock.Counts.Correct}}</td></tr>
<tr><th>Incorrect</th><td>{{.Lock.Counts.Incorrect}}</td></tr>
<tr><th>Timeouts</th><td>{{.Lock.Counts.Timeouts}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.PrimingDebounceMs}}ms priming, {{.Config.ComboDebounceMs}}ms combo</td></tr>
<tr><th>Timeout</th><td>{{.Config.TimeoutMs}}ms</td></tr>
<tr><th>Combo buttons</th><td>{{.Config.ComboButtons}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		State  string
		Uptime time.Duration
	}{
		Snapshot: snap,
		State:    status.StateName(snap),
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
