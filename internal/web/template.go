package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/nexus-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		if days := d / (24 * time.Hour); days > 0 {
			return fmt.Sprintf("%dd %s", days, d-days*24*time.Hour)
		}
		return d.String()
	},
	"celsius": func(tenths int16) string {
		return fmt.Sprintf("%.1f", float64(tenths)/10)
	},
	"ago": func(now, t time.Time) string {
		d := now.Sub(t).Truncate(time.Second)
		if d < 0 {
			d = 0
		}
		return d.String() + " ago"
	},
	"channel": func(ch int) string {
		if ch == 0 {
			return "any"
		}
		return fmt.Sprint(ch)
	},
	"plus1": func(v uint8) int { return int(v) + 1 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Nexus Sensor</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 640px; margin: 1.5em auto; padding: 0 1em; color: #222; }
h1 { font-size: 1.3em; margin-bottom: 0; }
h2 { font-size: 1em; text-transform: uppercase; color: #666; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: 3px 6px; border-bottom: 1px solid #eee; }
th { width: 35%; font-weight: normal; color: #555; }
.reading { font-size: 1.8em; font-weight: bold; }
.low, .disconnected { color: #c00; }
.unknown { color: #c80; }
.connected { color: #080; }
</style>
</head>
<body>
<h1>Nexus Sensor</h1>

<h2>Last Reading</h2>
{{with .LastReading}}<table>
<tr><th>Temperature</th><td id="temperature" class="reading">{{celsius .TemperatureTenths}} &deg;C</td></tr>
<tr><th>Humidity</th><td id="humidity" class="reading">{{.Humidity}} %</td></tr>
<tr><th>Sensor</th><td>id {{.ID}}, channel {{plus1 .Channel}}</td></tr>
<tr><th>Battery</th><td{{if not .BatteryOK}} class="low"{{end}}>{{if .BatteryOK}}ok{{else}}low{{end}}</td></tr>
<tr><th>Received</th><td>{{.Time.UTC.Format "2006-01-02T15:04:05Z"}} ({{ago $.Now .Time}})</td></tr>
</table>{{else}}<p class="unknown">No reading yet</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Decoder</h2>
<table>
<tr><th>Samples</th><td>{{.Decoder.Samples}}</td></tr>
<tr><th>Frames</th><td>{{.Decoder.Frames}}</td></tr>
<tr><th>Readings</th><td>{{.Decoder.Readings}}</td></tr>
<tr><th>Rejected</th><td>{{.Decoder.Rejected}}</td></tr>
<tr><th>Abandoned</th><td>{{.Decoder.Abandoned}}</td></tr>
<tr><th>Dropped</th><td>{{.Decoder.Dropped}}</td></tr>
<tr><th>Published</th><td>{{.Counts.Published}}</td></tr>
<tr><th>Filtered</th><td>{{.Counts.Filtered}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Receiver</th><td>{{.Config.Source}}</td></tr>
<tr><th>Channel</th><td>{{channel .Config.Channel}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .HasHistory}} | <a href="/readings.json">History</a>{{end}}</p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, hasHistory bool) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		HasHistory bool
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		HasHistory: hasHistory,
	}
	return indexTmpl.Execute(w, data)
}
