package main

import (
	"html/template"
	"net/http"
)

// serveWebClient answers non-upgrade GETs on the websocket path with a
// small protocol-speaking client, handy for poking at a running server.
func serveWebClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Error: bad request. Websocket upgrade required.", http.StatusBadRequest)
		return
	}
	webTemplate.Execute(w, templateArgs{Path: r.URL.Path})
}

type templateArgs struct {
	Path string
}

var webTemplate = template.Must(template.New("webTemplate").Parse(`
<html>
<head>
<title>pushhub</title>
<script type="text/javascript">
window.addEventListener("load", function() {
    var log = document.getElementById("log");
    var conn = null;

    function append(text) {
        var div = document.createElement("div");
        div.textContent = text;
        log.appendChild(div);
        log.scrollTop = log.scrollHeight;
    }

    if (!window["WebSocket"]) {
        append("Your browser does not support WebSockets.");
        return;
    }

    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    conn = new WebSocket(scheme + location.host + {{.Path}});
    conn.onclose = function() { append("Connection closed."); };
    conn.onmessage = function(evt) { append(evt.data); };

    document.getElementById("subscribe").addEventListener("submit", function(e) {
        e.preventDefault();
        var channel = document.getElementById("channel").value;
        if (!conn || !channel) { return; }
        conn.send(JSON.stringify({event: "pusher:subscribe", data: {}, channel: channel}));
    });

    document.getElementById("send").addEventListener("submit", function(e) {
        e.preventDefault();
        var channel = document.getElementById("channel").value;
        var event = document.getElementById("event").value;
        var data = document.getElementById("data").value;
        if (!conn || !channel || !event) { return; }
        try {
            conn.send(JSON.stringify({event: event, channel: channel, data: JSON.parse(data || "{}")}));
        } catch (err) {
            append("Bad data JSON: " + err);
        }
    });
});
</script>
<style type="text/css">
body { font-family: monospace; margin: 1em; }
#log { border: 1px solid gray; height: 20em; overflow: auto; padding: 0.5em; }
form { margin: 0.5em 0; }
</style>
</head>
<body>
<h3>pushhub client</h3>
<div id="log"></div>
<form id="subscribe">
    <input type="text" id="channel" placeholder="public-lobby" size="32"/>
    <input type="submit" value="Subscribe"/>
</form>
<form id="send">
    <input type="text" id="event" placeholder="client-message" size="20"/>
    <input type="text" id="data" placeholder='{"text":"hi"}' size="32"/>
    <input type="submit" value="Send"/>
</form>
</body>
</html>
`))
