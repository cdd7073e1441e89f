// SPDX-License-Identifier: MPL-2.0

package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>codeexec-server inspector</title>
  <style>
    body { font-family: ui-monospace, monospace; background: #111; color: #ddd; margin: 2rem; }
    h1 { font-size: 1.1rem; color: #9cf; }
    #messages { white-space: pre-wrap; font-size: 0.85rem; border: 1px solid #333; padding: 1rem; height: 60vh; overflow-y: auto; }
    button { margin-right: 0.5rem; }
  </style>
</head>
<body>
  <h1>codeexec-server inspector</h1>
  <div>
    <button onclick="clearMessages()">Clear</button>
    <button onclick="toggleRecording()">Toggle recording</button>
  </div>
  <div id="messages"></div>
  <script>
    const out = document.getElementById('messages');
    function append(line) {
      out.textContent += line + "\n";
      out.scrollTop = out.scrollHeight;
    }
    function clearMessages() {
      fetch('/api/clear', {method: 'POST'}).then(() => { out.textContent = ''; });
    }
    function toggleRecording() {
      fetch('/api/toggle_recording', {method: 'POST'})
        .then(r => r.json())
        .then(d => append('[recording=' + d.recording + ']'));
    }
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    ws.onmessage = (ev) => append(ev.data);
  </script>
</body>
</html>
`
