package main

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ChatServer wires HTTP routes to the registry and relay.
type ChatServer struct {
	reg      *Registry
	relay    *Relay
	name     string
	upgrader websocket.Upgrader
	wg       sync.WaitGroup
}

func NewChatServer(name string, reg *Registry, relay *Relay) *ChatServer {
	return &ChatServer{
		reg:   reg,
		relay: relay,
		name:  name,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the chat HTTP router (UI + websocket).
func (s *ChatServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Get("/", s.serveIndex)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *ChatServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTmpl.Execute(w, struct{ Name string }{Name: s.name})
}

func (s *ChatServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	rooms, sessions := s.reg.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":       true,
		"rooms":    rooms,
		"sessions": sessions,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *ChatServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("[chat] upgrade websocket")
		return
	}
	client := NewClient(conn, s.reg, s.relay)
	s.reg.Register(client)

	s.wg.Add(1)
	go client.writeLoop()
	go func() {
		defer s.wg.Done()
		client.readLoop()
	}()
}

// Shutdown kicks every session and waits for handler goroutines to drain.
func (s *ChatServer) Shutdown() {
	s.relay.ResetAll()
	s.wg.Wait()
}

var indexTmpl = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Chat — {{.Name}}</title>
  <style>
    :root{ --bg:#0d1117; --panel:#111827; --border:#1f2937; --fg:#e5e7eb; --muted:#9ca3af; --accent:#22c55e }
    *{ box-sizing:border-box }
    body { margin:0; padding:24px; background:var(--bg); color:var(--fg); font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial }
    .wrap { max-width: 920px; margin: 0 auto }
    h1 { margin:0 0 12px 0; font-weight:700 }
    .panel { border:1px solid var(--border); border-radius:10px; background:var(--panel); padding:12px; margin-bottom:12px }
    .row { display:flex; gap:8px; align-items:center; flex-wrap:wrap }
    input, button { background:transparent; border:1px solid var(--border); color:var(--fg); padding:8px 10px; border-radius:6px; font-size:14px }
    button { cursor:pointer }
    button:hover { border-color:var(--accent) }
    #log { height:380px; overflow:auto; padding:12px; font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; font-size:14px; line-height:1.5 }
    .line { white-space:pre-wrap; word-break:break-word }
    .usr { color:#60a5fa }
    .adm { color:#f59e0b }
    .err { color:#ef4444 }
    .line img { max-width:320px; max-height:240px; display:block; margin:4px 0; border-radius:6px }
    small { color:var(--muted); display:block; margin-top:10px }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>{{.Name}}</h1>
    <div class="panel row">
      <input id="nick" type="text" placeholder="nickname" />
      <input id="room" type="text" placeholder="room" value="lobby" />
      <button id="join">join</button>
      <button id="leave">leave</button>
      <input id="secret" type="password" placeholder="admin secret" />
      <button id="login">admin login</button>
      <button id="reset">reset all</button>
    </div>
    <div class="panel">
      <div id="log"></div>
      <div class="row" style="margin-top:8px">
        <input id="msg" type="text" style="flex:1 1 auto" placeholder="type a message and press Enter" />
        <input id="file" type="file" accept="image/*" style="display:none" />
        <button id="attach">image</button>
      </div>
    </div>
    <small>Messages relay only to your current room. Admins mirror every room.</small>
  </div>
  <script>
    const log = document.getElementById('log');
    const nick = document.getElementById('nick');
    const room = document.getElementById('room');
    const msg = document.getElementById('msg');
    const file = document.getElementById('file');
    const secret = document.getElementById('secret');

    function esc(s){ return (s||'').replace(/[&<>"]/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c])); }
    function line(html, cls){
      const div = document.createElement('div');
      div.className = 'line' + (cls ? ' ' + cls : '');
      div.innerHTML = html;
      log.appendChild(div);
      log.scrollTop = log.scrollHeight;
    }

    const wsProto = location.protocol === 'https:' ? 'wss' : 'ws';
    const ws = new WebSocket(wsProto + '://' + location.host + '/ws');
    ws.onmessage = (e) => {
      let ev; try { ev = JSON.parse(e.data); } catch(_) { return; }
      if (ev.type === 'chat-message') line('<span class="usr">' + esc(ev.nickname) + '</span>: ' + esc(ev.message));
      else if (ev.type === 'image-message') line('<span class="usr">' + esc(ev.nickname) + '</span>:<img src="' + ev.image + '" />');
      else if (ev.type === 'admin-message-log') {
        if (ev.kind === 'image') line('<span class="adm">[' + esc(ev.room) + '] ' + esc(ev.nickname) + '</span>:<img src="' + ev.message + '" />');
        else line('<span class="adm">[' + esc(ev.room) + '] ' + esc(ev.nickname) + '</span>: ' + esc(ev.message));
      }
      else if (ev.type === 'error') line('error: ' + esc(ev.reason), 'err');
    };
    ws.onclose = () => line('disconnected', 'err');

    const sendEv = (o) => { try { ws.send(JSON.stringify(o)); } catch(_) {} };
    document.getElementById('join').onclick = () => sendEv({type:'join-room', room: room.value});
    document.getElementById('leave').onclick = () => sendEv({type:'leave-room', room: room.value});
    document.getElementById('login').onclick = () => sendEv({type:'admin-login', secret: secret.value});
    document.getElementById('reset').onclick = () => sendEv({type:'admin-reset'});
    document.getElementById('attach').onclick = () => file.click();
    file.onchange = () => {
      const f = file.files[0];
      if (!f) return;
      const rd = new FileReader();
      rd.onload = () => sendEv({type:'image-message', room: room.value, nickname: nick.value, image: rd.result});
      rd.readAsDataURL(f);
      file.value = '';
    };
    msg.addEventListener('keydown', e => {
      if (e.isComposing || e.keyCode === 229) return;
      if (e.key === 'Enter') {
        e.preventDefault();
        const text = msg.value.trim();
        if (!text) return;
        sendEv({type:'chat-message', room: room.value, nickname: nick.value, message: text});
        msg.value = '';
      }
    });
  </script>
</body>
</html>`))
