package main

import (
	"html/template"
	"net/http"
)

func (s *APIServer) serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTmpl.Execute(w, struct{ Name string }{Name: s.name})
}

func serveAppJS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(appJS))
}

// serveManifest lists the assets the client pre-fetches for offline use.
func serveManifest(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/cache-manifest; charset=utf-8")
	_, _ = w.Write([]byte("CACHE MANIFEST\n\nCACHE:\n/\n/index.html\n/app.js\n\nNETWORK:\n*\n"))
}

var indexTmpl = template.Must(template.New("proxy").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Name}}</title>
  <style>
    :root{ --bg:#0d1117; --panel:#111827; --border:#1f2937; --fg:#e5e7eb; --muted:#9ca3af; --accent:#22c55e }
    *{ box-sizing:border-box }
    body { margin:0; padding:24px; background:var(--bg); color:var(--fg); font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial }
    .wrap { max-width: 920px; margin: 0 auto }
    h1 { margin:0 0 12px 0; font-weight:700 }
    .row { display:flex; gap:8px }
    input, button { background:transparent; border:1px solid var(--border); color:var(--fg); padding:10px 12px; border-radius:6px; font-size:15px }
    #q { flex:1 1 auto }
    button { cursor:pointer }
    button:hover { border-color:var(--accent) }
    #player { width:100%; margin-top:16px; border-radius:10px; background:#000; display:none }
    .card { display:flex; gap:12px; border:1px solid var(--border); border-radius:10px; background:var(--panel); padding:10px; margin-top:10px; cursor:pointer }
    .card:hover { border-color:var(--accent) }
    .card img { width:160px; border-radius:6px; object-fit:cover }
    .meta { flex:1 1 auto }
    .meta .title { font-weight:600 }
    .meta .sub { color:var(--muted); font-size:13px; margin-top:4px }
    #status { color:var(--muted); margin-top:10px }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>{{.Name}}</h1>
    <div class="row">
      <input id="q" type="search" placeholder="search videos" enterkeyhint="search" />
      <button id="go">search</button>
    </div>
    <video id="player" controls></video>
    <div id="status"></div>
    <div id="results"></div>
  </div>
  <script src="/app.js"></script>
</body>
</html>`))

const appJS = `(() => {
  const q = document.getElementById('q');
  const go = document.getElementById('go');
  const results = document.getElementById('results');
  const player = document.getElementById('player');
  const status = document.getElementById('status');

  function esc(s){ return (s||'').replace(/[&<>"]/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c])); }
  function fmtDuration(sec){
    sec = sec|0;
    const m = (sec/60)|0, s = sec%60;
    return m + ':' + String(s).padStart(2,'0');
  }

  async function search(){
    const query = q.value.trim();
    if (!query) return;
    status.textContent = 'searching...';
    results.innerHTML = '';
    try {
      const resp = await fetch('/api/search?q=' + encodeURIComponent(query));
      if (!resp.ok) { const e = await resp.json(); status.textContent = e.error || 'search failed'; return; }
      const items = await resp.json();
      status.textContent = items.length ? '' : 'no results';
      for (const it of items) {
        const card = document.createElement('div');
        card.className = 'card';
        card.innerHTML = '<img src="/api/yt-img?id=' + encodeURIComponent(it.id) + '" loading="lazy" />' +
          '<div class="meta"><div class="title">' + esc(it.title) + '</div>' +
          '<div class="sub">' + esc(it.author) + ' · ' + (it.views||0).toLocaleString() + ' views · ' + fmtDuration(it.duration) + '</div></div>';
        card.onclick = () => play(it.id);
        results.appendChild(card);
      }
    } catch (_) {
      status.textContent = 'search failed, try again later';
    }
  }

  async function play(id){
    status.textContent = 'loading stream...';
    try {
      const resp = await fetch('/api/stream/' + encodeURIComponent(id));
      if (!resp.ok) { const e = await resp.json(); status.textContent = e.error || 'stream failed'; return; }
      const info = await resp.json();
      if (info.muxed) {
        player.src = info.muxed.url;
        player.style.display = 'block';
        player.play().catch(() => {});
        status.textContent = '';
      } else if (info.adaptive && info.adaptive.video) {
        // No combined stream; play video-only as a fallback.
        player.src = info.adaptive.video.url;
        player.style.display = 'block';
        player.play().catch(() => {});
        status.textContent = info.adaptive.audio ? 'video-only playback (separate audio track available)' : 'video-only playback';
      } else {
        status.textContent = 'no playable stream found';
      }
    } catch (_) {
      status.textContent = 'stream lookup failed, try again later';
    }
  }

  go.onclick = search;
  q.addEventListener('keydown', e => { if (e.key === 'Enter') search(); });
})();
`
